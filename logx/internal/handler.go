// Package internal provides internal implementation details for logx.
package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const redacted = "***REDACTED***"

// Options configures the handler.
type Options struct {
	JSON             bool
	Level            slog.Level
	Color            bool
	PayloadMaxBytes  int
	SensitiveFields  []string
	DisableTimestamp bool
}

// Handler renders records as logfmt or JSON lines with sorted attributes.
type Handler struct {
	opts   Options
	mu     sync.Mutex
	writer io.Writer
}

// NewHandler creates a Handler writing to w.
func NewHandler(opts Options, w io.Writer) *Handler {
	return &Handler{opts: opts, writer: w}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(level slog.Level) bool {
	return level >= h.opts.Level
}

// LogRecord writes one record.
func (h *Handler) LogRecord(level slog.Level, msg string, attrs []slog.Attr) {
	if !h.Enabled(level) {
		return
	}

	var line []byte
	if h.opts.JSON {
		line = h.renderJSON(level, msg, attrs)
	} else {
		line = h.renderLogfmt(level, msg, attrs)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = h.writer.Write(line)
}

func (h *Handler) renderLogfmt(level slog.Level, msg string, attrs []slog.Attr) []byte {
	var buf strings.Builder

	if !h.opts.DisableTimestamp {
		buf.WriteString("time=")
		buf.WriteString(time.Now().Format(time.RFC3339))
		buf.WriteString(" ")
	}

	buf.WriteString("level=")
	if h.opts.Color {
		buf.WriteString(ColorizeLevel(LevelString(level)))
	} else {
		buf.WriteString(LevelString(level))
	}

	buf.WriteString(" msg=")
	buf.WriteString(strconv.Quote(msg))

	for _, attr := range SortAttrs(attrs) {
		buf.WriteString(" ")
		buf.WriteString(attr.Key)
		buf.WriteString("=")
		buf.WriteString(FormatValue(attr.Key, attr.Value, h.opts))
	}

	buf.WriteString("\n")
	return []byte(buf.String())
}

func (h *Handler) renderJSON(level slog.Level, msg string, attrs []slog.Attr) []byte {
	record := make(map[string]any, len(attrs)+3)
	for _, attr := range attrs {
		record[attr.Key] = JSONValue(attr.Key, attr.Value, h.opts)
	}
	if !h.opts.DisableTimestamp {
		record["time"] = time.Now().Format(time.RFC3339)
	}
	record["level"] = LevelString(level)
	record["msg"] = msg

	// encoding/json sorts map keys.
	data, err := json.Marshal(record)
	if err != nil {
		data, _ = json.Marshal(map[string]any{
			"level":        LevelString(level),
			"msg":          msg,
			"encode_error": err.Error(),
		})
	}
	return append(data, '\n')
}

// KVToAttrs converts key-value pairs to attributes.
// Packed pairs produced by core/log helpers are flattened first.
func KVToAttrs(kv []any) []slog.Attr {
	flat := make([]any, 0, len(kv)*2)
	for _, item := range kv {
		if pair, ok := item.([]any); ok && len(pair) == 2 {
			flat = append(flat, pair[0], pair[1])
			continue
		}
		flat = append(flat, item)
	}

	attrs := make([]slog.Attr, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs = append(attrs, slog.Any(fmt.Sprint(flat[i]), flat[i+1]))
	}
	return attrs
}

// SortAttrs returns attrs sorted by key. Later duplicates keep their order.
func SortAttrs(attrs []slog.Attr) []slog.Attr {
	sorted := make([]slog.Attr, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

func isSensitive(key string, opts Options) bool {
	for _, field := range opts.SensitiveFields {
		if strings.EqualFold(key, field) {
			return true
		}
	}
	return false
}

func truncate(s string, opts Options) string {
	if opts.PayloadMaxBytes > 0 && len(s) > opts.PayloadMaxBytes {
		return fmt.Sprintf("%s...(truncated, %d bytes)", s[:opts.PayloadMaxBytes], len(s))
	}
	return s
}

// FormatValue renders v for logfmt output.
func FormatValue(key string, v slog.Value, opts Options) string {
	if isSensitive(key, opts) {
		return strconv.Quote(redacted)
	}

	switch v.Kind() {
	case slog.KindString:
		return strconv.Quote(truncate(v.String(), opts))
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return strconv.FormatInt(v.Duration().Milliseconds(), 10)
	case slog.KindTime:
		return strconv.Quote(v.Time().Format(time.RFC3339))
	default:
		return strconv.Quote(truncate(fmt.Sprint(v.Any()), opts))
	}
}

// JSONValue converts v to a value encoding/json renders sensibly.
func JSONValue(key string, v slog.Value, opts Options) any {
	if isSensitive(key, opts) {
		return redacted
	}

	switch v.Kind() {
	case slog.KindString:
		return truncate(v.String(), opts)
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().Milliseconds()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		switch val := v.Any().(type) {
		case error:
			return val.Error()
		case fmt.Stringer:
			return truncate(val.String(), opts)
		default:
			return val
		}
	}
}

// LevelString returns the string representation of a log level.
func LevelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}

// ColorizeLevel adds ANSI color codes to the level value only.
func ColorizeLevel(level string) string {
	const (
		reset   = "\033[0m"
		red     = "\033[31m"
		yellow  = "\033[33m"
		cyan    = "\033[36m"
		magenta = "\033[35m"
	)

	switch level {
	case "DEBUG":
		return magenta + level + reset
	case "INFO":
		return cyan + level + reset
	case "WARN":
		return yellow + level + reset
	case "ERROR":
		return red + level + reset
	default:
		return level
	}
}
