package internal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go.eggybyte.com/settings/configx"
)

func TestNewServiceConfig(t *testing.T) {
	cfg := NewServiceConfig()

	if !cfg.EnableMetrics {
		t.Error("EnableMetrics should be true by default")
	}
	if cfg.DefaultTimeout != 30*time.Second {
		t.Errorf("DefaultTimeout = %v, want 30s", cfg.DefaultTimeout)
	}
	if cfg.SlowRequest != time.Second {
		t.Errorf("SlowRequest = %v, want 1s", cfg.SlowRequest)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
}

type appConfig struct {
	Base  configx.BaseConfig
	Extra string `env:"EXTRA"`
}

func (c *appConfig) GetBaseConfig() *configx.BaseConfig { return &c.Base }

func TestExtractBaseConfig(t *testing.T) {
	base := &configx.BaseConfig{ServiceName: "direct"}
	app := &appConfig{Base: configx.BaseConfig{ServiceName: "provider"}}

	tests := []struct {
		name     string
		cfg      any
		wantOK   bool
		wantName string
	}{
		{"direct pointer", base, true, "direct"},
		{"provider", app, true, "provider"},
		{"nil pointer", (*configx.BaseConfig)(nil), false, ""},
		{"nil", nil, false, ""},
		{"unrelated struct", &struct{ Name string }{}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractBaseConfig(tt.cfg)
			if ok != tt.wantOK {
				t.Fatalf("ExtractBaseConfig() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ServiceName != tt.wantName {
				t.Errorf("ServiceName = %q, want %q", got.ServiceName, tt.wantName)
			}
		})
	}
}

func TestExtractBaseConfig_ProviderSharesStorage(t *testing.T) {
	app := &appConfig{}
	bc, _ := ExtractBaseConfig(app)
	bc.HTTPPort = ":9000"
	if app.Base.HTTPPort != ":9000" {
		t.Errorf("provider returned a copy, HTTPPort = %q", app.Base.HTTPPort)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		level    string
		contains []string
		wantErr  bool
	}{
		{"logfmt", "logfmt", "info", []string{`msg="hello"`, `service="settingd"`}, false},
		{"json", "json", "debug", []string{`"msg":"hello"`, `"service":"settingd"`}, false},
		{"console", "console", "info", []string{"hello"}, false},
		{"bad level", "logfmt", "loud", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &configx.BaseConfig{ServiceName: "settingd", LogFormat: tt.format, LogLevel: tt.level}

			logger, err := NewLogger(cfg, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			logger.Info("hello")
			out := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output %q missing %q", out, s)
				}
			}
		})
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&configx.BaseConfig{LogLevel: "warn"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buf.String())
	}
}

func TestNewServiceRuntime_RejectsUnknownConfig(t *testing.T) {
	cfg := NewServiceConfig()
	cfg.Config = &struct{}{}
	if _, err := NewServiceRuntime(cfg); err == nil {
		t.Fatal("expected an error for a config without BaseConfig")
	}
}

func TestNewServiceRuntime_DefaultsToBaseConfig(t *testing.T) {
	cfg := NewServiceConfig()
	if _, err := NewServiceRuntime(cfg); err != nil {
		t.Fatalf("NewServiceRuntime() error = %v", err)
	}
	if _, ok := cfg.Config.(*configx.BaseConfig); !ok {
		t.Errorf("Config = %T, want *configx.BaseConfig", cfg.Config)
	}
}
