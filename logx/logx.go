// Package logx provides the structured logger used across the settings service.
//
// Overview:
//   - Responsibility: core/log.Logger implementation with logfmt or JSON output
//   - Key Types: Logger, Options, Format
//   - Concurrency Model: All loggers are safe for concurrent use
//   - Error Semantics: Logging never fails the caller; write errors are dropped
//   - Performance Notes: Attributes sorted once per record; payloads optionally truncated
//
// Usage:
//
//	level, _ := logx.ParseLevel(cfg.LogLevel)
//	logger := logx.New(logx.WithFormat(logx.FormatJSON), logx.WithLevel(level))
//	logger.Info("setting updated", log.Str("group", "chatbot"), log.Str("label", "fallback"))
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/logx/internal"
)

// Format specifies the output format for logs.
type Format string

const (
	// FormatLogfmt outputs key=value pairs.
	FormatLogfmt Format = "logfmt"
	// FormatJSON outputs one JSON object per line.
	FormatJSON Format = "json"
)

// Options configures the logger behavior.
type Options struct {
	Format           Format     // Output format: logfmt or json
	Level            slog.Level // Minimum log level
	Color            bool       // Colorize the level field (logfmt only)
	Writer           io.Writer  // Output writer (default: os.Stderr)
	PayloadMaxBytes  int        // Truncate string values longer than this (0 = unlimited)
	SensitiveFields  []string   // Field names to mask
	DisableTimestamp bool       // Omit the time field
}

// Option configures logger behavior.
type Option func(*Options)

// Logger implements core/log.Logger on top of the internal handler.
type Logger struct {
	handler *internal.Handler
	attrs   []slog.Attr
}

// New creates a Logger. Defaults: logfmt, info level, stderr, no timestamp.
func New(opts ...Option) log.Logger {
	options := Options{
		Format:           FormatLogfmt,
		Level:            slog.LevelInfo,
		Writer:           os.Stderr,
		DisableTimestamp: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Writer == nil {
		options.Writer = os.Stderr
	}

	return &Logger{
		handler: internal.NewHandler(internal.Options{
			JSON:             options.Format == FormatJSON,
			Level:            options.Level,
			Color:            options.Color,
			PayloadMaxBytes:  options.PayloadMaxBytes,
			SensitiveFields:  options.SensitiveFields,
			DisableTimestamp: options.DisableTimestamp,
		}, options.Writer),
	}
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(o *Options) { o.Format = format }
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *Options) { o.Level = level }
}

// WithColor enables colorization for the level field only.
func WithColor(enabled bool) Option {
	return func(o *Options) { o.Color = enabled }
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.Writer = w }
}

// WithPayloadLimit sets the maximum bytes logged for a string value.
func WithPayloadLimit(maxBytes int) Option {
	return func(o *Options) { o.PayloadMaxBytes = maxBytes }
}

// WithSensitiveFields sets field names to mask in logs.
func WithSensitiveFields(fields ...string) Option {
	return func(o *Options) { o.SensitiveFields = fields }
}

// WithTimestamp enables the time field.
func WithTimestamp() Option {
	return func(o *Options) { o.DisableTimestamp = false }
}

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// With returns a Logger with kv attached to every record.
func (l *Logger) With(kv ...any) log.Logger {
	attrs := append([]slog.Attr{}, l.attrs...)
	attrs = append(attrs, internal.KVToAttrs(kv)...)
	return &Logger{handler: l.handler, attrs: attrs}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...any) {
	l.log(slog.LevelDebug, msg, internal.KVToAttrs(kv))
}

// Info logs an informational message.
func (l *Logger) Info(msg string, kv ...any) {
	l.log(slog.LevelInfo, msg, internal.KVToAttrs(kv))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...any) {
	l.log(slog.LevelWarn, msg, internal.KVToAttrs(kv))
}

// Error logs an error message with err under the "error" key.
func (l *Logger) Error(err error, msg string, kv ...any) {
	attrs := internal.KVToAttrs(kv)
	if err != nil {
		attrs = append([]slog.Attr{slog.String("error", err.Error())}, attrs...)
	}
	l.log(slog.LevelError, msg, attrs)
}

func (l *Logger) log(level slog.Level, msg string, attrs []slog.Attr) {
	if !l.handler.Enabled(level) {
		return
	}
	all := make([]slog.Attr, 0, len(l.attrs)+len(attrs))
	all = append(all, l.attrs...)
	all = append(all, attrs...)
	l.handler.LogRecord(level, msg, all)
}

// FromContext returns base enriched with request_id, user_id and remote_ip from ctx.
func FromContext(ctx context.Context, base log.Logger) log.Logger {
	var attrs []any

	if meta, ok := identity.MetaFrom(ctx); ok {
		if meta.RequestID != "" {
			attrs = append(attrs, log.Str("request_id", meta.RequestID))
		}
		if meta.RemoteIP != "" {
			attrs = append(attrs, log.Str("remote_ip", meta.RemoteIP))
		}
	}
	if user, ok := identity.UserFrom(ctx); ok && user.UserID != "" {
		attrs = append(attrs, log.Str("user_id", user.UserID))
	}

	if len(attrs) == 0 {
		return base
	}
	return base.With(attrs...)
}
