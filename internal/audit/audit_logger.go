package audit

import (
	"context"
	"os"
	"time"

	"go-leave/internal/shared/contextutil"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Entry is one human-readable audit line plus structured metadata.
type Entry struct {
	Action  string
	Message string
	Meta    map[string]any
}

// Logger records audit lines. Implementations hold no per-call state and need no
// teardown beyond what the process does for its loggers.
type Logger interface {
	Log(ctx context.Context, entry Entry)
}

type ZapLogger struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewStdoutLogger writes JSON audit lines to standard output, apart from the process
// logger, which goes to stderr.
func NewStdoutLogger() *ZapLogger {
	return NewWriterLogger(zapcore.Lock(os.Stdout))
}

// NewWriterLogger writes JSON audit lines to w.
func NewWriterLogger(w zapcore.WriteSyncer) *ZapLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, zapcore.InfoLevel)
	return NewZapLogger(zap.New(core))
}

// NewFileLogger appends JSON audit lines to path.
func NewFileLogger(path string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l.Named("audit"), now: time.Now}
}

func (l *ZapLogger) Log(ctx context.Context, entry Entry) {
	ts := l.now().UTC().Format(time.RFC3339)
	fields := []zap.Field{
		zap.String("timestamp", ts),
		zap.String("action", entry.Action),
		zap.Any("meta", entry.Meta),
	}
	if rid := contextutil.GetRequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	l.logger.Info("[AUDIT LOG] "+ts+" - "+entry.Message, fields...)
}

// Sync flushes buffered lines.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
