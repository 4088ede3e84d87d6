package response

import (
	"net/http"

	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListMeta always reports the number of items in data; the paging fields are set only
// when the caller asked for a page.
type ListMeta struct {
	Count      int   `json:"count"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"totalPages,omitempty"`
	Page       int   `json:"page,omitempty"`
	PageSize   int   `json:"pageSize,omitempty"`
}

func NewListMeta(count int) ListMeta {
	return ListMeta{Count: count}
}

func NewPaginationMeta(count int, total int64, page, limit int) ListMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return ListMeta{
		Count:      count,
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   limit,
	}
}

type ApiEnvelope struct {
	Ok      bool      `json:"ok"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	Meta    *ListMeta `json:"meta,omitempty"`
	Error   any       `json:"error,omitempty"`
}

func Success(c *gin.Context, status int, message string, data any, meta *ListMeta) {
	c.JSON(status, ApiEnvelope{
		Ok:      true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, errorCode string, message string, details any) {
	c.JSON(status, ApiEnvelope{
		Ok: false,
		Error: map[string]any{
			"code":    errorCode,
			"message": message,
			"details": details,
		},
	})
}

// Fail writes err using its apperror mapping. Anything that is not an *apperror.AppError
// becomes an opaque 500 and the cause goes to the request logger.
func Fail(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Status >= http.StatusInternalServerError {
		contextutil.GetLogger(c.Request.Context(), zap.L()).
			Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}
