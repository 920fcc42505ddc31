package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go.eggybyte.com/settings/core/log"
)

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix string // Only variables with this prefix are read; the prefix is stripped
}

// EnvSource loads configuration from environment variables.
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new environment variable source.
func NewEnvSource(opts EnvOptions) *EnvSource {
	return &EnvSource{prefix: opts.Prefix}
}

// Load reads configuration from environment variables.
func (s *EnvSource) Load(ctx context.Context) (map[string]string, error) {
	config := make(map[string]string)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if s.prefix != "" {
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.prefix)
		}
		config[key] = value
	}
	return config, nil
}

// Watch never publishes: the environment is fixed for the process lifetime.
func (s *EnvSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	return idle(ctx), nil
}

// FileOptions configures file source behavior.
type FileOptions struct {
	Watch    bool          // Poll the file for changes
	Format   string        // "yaml" or "json"; detected from the extension when empty
	Interval time.Duration // Polling interval (default: 1s)
	Logger   log.Logger    // Receives poll failures
}

// FileSource loads configuration from a YAML or JSON file.
//
// Nested keys are flattened to UPPER_SNAKE so a file can set the same keys
// as the environment:
//
//	database:
//	  dsn: file:settings.db   # DATABASE_DSN
type FileSource struct {
	path     string
	format   string
	watch    bool
	interval time.Duration
	logger   log.Logger
}

// NewFileSource creates a new file source.
func NewFileSource(path string, opts FileOptions) *FileSource {
	format := opts.Format
	if format == "" {
		format = detectFileFormat(path)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &FileSource{
		path:     path,
		format:   format,
		watch:    opts.Watch,
		interval: interval,
		logger:   logger,
	}
}

// Load reads the file. A missing file yields an empty snapshot.
func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	config, err := ParseConfig(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return config, nil
}

// Watch polls the file's modification time and publishes a snapshot when it changes.
func (s *FileSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	if !s.watch {
		return idle(ctx), nil
	}

	var lastMod time.Time
	if info, err := os.Stat(s.path); err == nil {
		lastMod = info.ModTime()
	}

	ch := make(chan map[string]string)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(s.path)
			if err != nil {
				if !os.IsNotExist(err) {
					s.logger.Error(err, "config file stat failed", log.Str("path", s.path))
				}
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			config, err := s.Load(ctx)
			if err != nil {
				s.logger.Error(err, "config file reload failed", log.Str("path", s.path))
				continue
			}
			select {
			case ch <- config:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// ParseConfig decodes a YAML or JSON document into a flat UPPER_SNAKE map.
func ParseConfig(data []byte, format string) (map[string]string, error) {
	var doc map[string]any
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(joinKey(prefix, k), child, out)
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, scalar(e))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = scalar(t)
	}
}

func joinKey(prefix, key string) string {
	key = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, ",")
	default:
		return fmt.Sprint(t)
	}
}
