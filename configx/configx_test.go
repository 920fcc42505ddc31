package configx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/testingx"
)

// isolatedEnv reads only SETTINGSTEST_-prefixed variables.
func isolatedEnv() Source {
	return NewEnvSource(EnvOptions{Prefix: "SETTINGSTEST_"})
}

func TestNewManager_Validation(t *testing.T) {
	logger := testingx.NewMockLogger(t)
	tests := []struct {
		name string
		opts Options
	}{
		{"nil logger", Options{Sources: []Source{isolatedEnv()}}},
		{"no sources", Options{Logger: logger}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(context.Background(), tt.opts)
			testingx.AssertError(t, err, errors.CodeInvalidArgument)
		})
	}
}

func TestBaseConfig_Defaults(t *testing.T) {
	mgr, err := NewManager(context.Background(), Options{
		Logger:  testingx.NewMockLogger(t),
		Sources: []Source{isolatedEnv()},
	})
	testingx.AssertNoError(t, err)

	var cfg BaseConfig
	testingx.AssertNoError(t, mgr.Bind(&cfg))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"service name", cfg.ServiceName, "settingd"},
		{"env", cfg.Env, "dev"},
		{"log level", cfg.LogLevel, "info"},
		{"log format", cfg.LogFormat, "logfmt"},
		{"http", cfg.GetHTTPPort(), ":8080"},
		{"health", cfg.GetHealthPort(), ":8081"},
		{"metrics", cfg.GetMetricsPort(), ":9091"},
		{"locale", cfg.DefaultLocale, "en"},
		{"driver", cfg.Database.Driver, "sqlite"},
		{"max open", cfg.Database.MaxOpen, 100},
		{"lifetime", cfg.Database.MaxLifetime, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestBind_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settingd.yaml")
	doc := "log_level: debug\ndb:\n  driver: postgres\n  dsn: postgres://localhost/settings\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SETTINGSTEST_LOG_LEVEL", "warn")

	mgr, err := NewManager(context.Background(), Options{
		Logger:  testingx.NewMockLogger(t),
		Sources: []Source{NewFileSource(path, FileOptions{}), isolatedEnv()},
	})
	testingx.AssertNoError(t, err)

	var cfg BaseConfig
	testingx.AssertNoError(t, mgr.Bind(&cfg))
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env value warn", cfg.LogLevel)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://localhost/settings" {
		t.Errorf("Database = %+v", cfg.Database)
	}
}

func TestBind_Validation(t *testing.T) {
	t.Setenv("SETTINGSTEST_DB_DRIVER", "oracle")
	mgr, err := NewManager(context.Background(), Options{
		Logger:  testingx.NewMockLogger(t),
		Sources: []Source{isolatedEnv()},
	})
	testingx.AssertNoError(t, err)

	var cfg BaseConfig
	testingx.AssertError(t, mgr.Bind(&cfg), errors.CodeInvalidArgument)
	testingx.AssertNoError(t, mgr.Bind(&cfg, WithoutValidation()))
	if cfg.Database.Driver != "oracle" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}

	testingx.AssertError(t, mgr.Bind(nil), errors.CodeInvalidArgument)

	var bad struct {
		Port int `env:"DB_DRIVER"`
	}
	testingx.AssertError(t, mgr.Bind(&bad), errors.CodeInvalidArgument)
}

func TestBind_UpdateCallbackRebinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settingd.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr, err := NewManager(ctx, Options{
		Logger:   testingx.NewMockLogger(t),
		Sources:  []Source{NewFileSource(path, FileOptions{Watch: true, Interval: 10 * time.Millisecond})},
		Debounce: 10 * time.Millisecond,
	})
	testingx.AssertNoError(t, err)

	var cfg BaseConfig
	updated := make(chan string, 1)
	testingx.AssertNoError(t, mgr.Bind(&cfg, WithUpdateCallback(func() {
		select {
		case updated <- cfg.LogLevel:
		default:
		}
	})))

	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case level := <-updated:
		if level != "debug" {
			t.Errorf("rebound LogLevel = %q, want debug", level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("update callback not called")
	}
}

func TestDefaultSources(t *testing.T) {
	if n := len(DefaultSources("", nil)); n != 1 {
		t.Errorf("without a file: %d sources, want 1", n)
	}
	if n := len(DefaultSources("settingd.yaml", nil)); n != 2 {
		t.Errorf("with a file: %d sources, want 2", n)
	}
}
