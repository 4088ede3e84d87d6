package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "Idempotent-Replayed"

	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
)

var errIdempotencyInFlight = apperror.New(
	apperror.CodeConflict,
	"A request with this Idempotency-Key is still being processed",
	http.StatusConflict,
)

var errIdempotencyKeyReused = apperror.New(
	apperror.CodeKeyReused,
	"Idempotency-Key was already used with a different request body",
	http.StatusUnprocessableEntity,
)

type cachedResponse struct {
	Status   int             `json:"status"`
	BodyHash string          `json:"bodyHash"`
	Body     json.RawMessage `json:"body"`
}

// hashRequestBody fingerprints the body and leaves it readable for the handler.
func hashRequestBody(c *gin.Context) (string, error) {
	if c.Request.Body == nil {
		return hex.EncodeToString(sha256.New().Sum(nil)), nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first successful response for a repeated POST carrying the
// same Idempotency-Key from the same caller. Reusing a key with a different body is
// rejected with 422. Requests without the header pass through.
// Redis errors fail open so the store stays the source of truth.
func Idempotency(rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader(HeaderIdempotencyKey)
		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		logger := contextutil.GetLogger(ctx, zap.L()).Named("middleware.idempotency")

		userID := ""
		if id, ok := IdentityFrom(c); ok {
			userID = id.ID
		}
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), userID, idempKey)
		lockKey := cacheKey + ":lock"

		bodyHash, err := hashRequestBody(c)
		if err != nil {
			response.Fail(c, apperror.MapValidationError(err))
			c.Abort()
			return
		}

		val, err := rdb.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached cachedResponse
			if jsonErr := json.Unmarshal(val, &cached); jsonErr == nil {
				if cached.BodyHash != bodyHash {
					logger.Warn("idempotency key reused with different body", zap.String("key", idempKey))
					response.Fail(c, errIdempotencyKeyReused)
					c.Abort()
					return
				}
				logger.Debug("idempotent replay", zap.String("key", idempKey))
				c.Header(HeaderIdempotentReplay, "true")
				c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
				c.Abort()
				return
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Warn("idempotency lookup failed", zap.Error(err))
			c.Next()
			return
		}

		acquired, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
		if err != nil {
			logger.Warn("idempotency lock failed", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.Fail(c, errIdempotencyInFlight)
			c.Abort()
			return
		}
		defer rdb.Del(ctx, lockKey)

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < 200 || status >= 300 {
			return
		}
		payload, err := json.Marshal(cachedResponse{Status: status, BodyHash: bodyHash, Body: w.body.Bytes()})
		if err != nil {
			return
		}
		if err := rdb.Set(ctx, cacheKey, payload, idempotencyTTL).Err(); err != nil {
			logger.Warn("idempotency store failed", zap.Error(err))
		}
	}
}
