package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	userIDKey       contextKey = "user_id"
	connectionIDKey contextKey = "connection_id"
)

// contextFields are copied from the context onto every record, in this order.
var contextFields = []contextKey{requestIDKey, userIDKey, connectionIDKey}

// Config holds logger configuration. Zero values mean info level, JSON
// output, and stdout.
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	Output      io.Writer
	AddSource   bool
	ServiceName string
	Environment string
}

// NewLogger builds the service logger. Every record carries the service and
// environment plus any request, user, or connection id found in its context.
func NewLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: utcTime,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	var static []slog.Attr
	if cfg.ServiceName != "" {
		static = append(static, slog.String("service", cfg.ServiceName))
	}
	if cfg.Environment != "" {
		static = append(static, slog.String("environment", cfg.Environment))
	}
	return slog.New(contextHandler{handler.WithAttrs(static)})
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return a
}

// contextHandler appends the ids carried by the record's context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(fromContext(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func fromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextFields {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// WithRequestID tags ctx with the HTTP request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID tags ctx with the authenticated user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithConnectionID tags ctx with a realtime connection id.
func WithConnectionID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connectionIDKey, connID)
}

// GetRequestID returns the request id in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LogPanic records a recovered panic with the goroutine's stack.
func LogPanic(ctx context.Context, logger *slog.Logger, panicValue any) {
	logger.ErrorContext(ctx, "panic recovered",
		"panic", panicValue,
		"stack_trace", string(debug.Stack()),
	)
}

// Request is one completed HTTP request.
type Request struct {
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
	Bytes     int64
	ClientIP  string
	UserAgent string
}

// LogRequest writes an access log line. Server errors log at error level and
// client errors at warn.
func LogRequest(ctx context.Context, logger *slog.Logger, req Request) {
	level := slog.LevelInfo
	switch {
	case req.Status >= 500:
		level = slog.LevelError
	case req.Status >= 400:
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "http request",
		"method", req.Method,
		"path", req.Path,
		"status_code", req.Status,
		"duration_ms", req.Duration.Milliseconds(),
		"bytes_written", req.Bytes,
		"client_ip", req.ClientIP,
		"user_agent", req.UserAgent,
	)
}
