package internal

import (
	"testing"
	"time"
)

type dbConfig struct {
	DSN     string        `env:"DB_DSN"`
	MaxOpen int           `env:"DB_MAX_OPEN" default:"10"`
	Timeout time.Duration `env:"DB_TIMEOUT" default:"1s"`
}

type appConfig struct {
	Name     string   `env:"NAME" default:"app"`
	Debug    bool     `env:"DEBUG"`
	Ratio    float64  `env:"RATIO"`
	Workers  uint8    `env:"WORKERS" default:"4"`
	Locales  []string `env:"LOCALES" default:"en"`
	Ignored  string
	internal string `env:"INTERNAL"`
	Database dbConfig
}

func TestBindToStruct(t *testing.T) {
	tests := []struct {
		name     string
		snapshot map[string]string
		check    func(t *testing.T, cfg appConfig)
	}{
		{
			name:     "defaults",
			snapshot: map[string]string{},
			check: func(t *testing.T, cfg appConfig) {
				if cfg.Name != "app" || cfg.Workers != 4 || cfg.Database.MaxOpen != 10 || cfg.Database.Timeout != time.Second {
					t.Errorf("defaults not applied: %+v", cfg)
				}
				if len(cfg.Locales) != 1 || cfg.Locales[0] != "en" {
					t.Errorf("Locales = %v", cfg.Locales)
				}
			},
		},
		{
			name: "values override defaults",
			snapshot: map[string]string{
				"NAME": "settingd", "DEBUG": "true", "RATIO": "0.5", "WORKERS": "8",
				"LOCALES": "en, fr,,", "DB_DSN": "file:x.db", "DB_TIMEOUT": "250ms",
			},
			check: func(t *testing.T, cfg appConfig) {
				if cfg.Name != "settingd" || !cfg.Debug || cfg.Ratio != 0.5 || cfg.Workers != 8 {
					t.Errorf("values not applied: %+v", cfg)
				}
				if len(cfg.Locales) != 2 || cfg.Locales[1] != "fr" {
					t.Errorf("Locales = %v", cfg.Locales)
				}
				if cfg.Database.DSN != "file:x.db" || cfg.Database.Timeout != 250*time.Millisecond {
					t.Errorf("nested struct not bound: %+v", cfg.Database)
				}
			},
		},
		{
			name:     "empty value falls back to default",
			snapshot: map[string]string{"NAME": ""},
			check: func(t *testing.T, cfg appConfig) {
				if cfg.Name != "app" {
					t.Errorf("Name = %q, want app", cfg.Name)
				}
			},
		},
		{
			name:     "untagged and unexported fields are skipped",
			snapshot: map[string]string{"INTERNAL": "x", "Ignored": "y"},
			check: func(t *testing.T, cfg appConfig) {
				if cfg.internal != "" || cfg.Ignored != "" {
					t.Errorf("unexpected binding: %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg appConfig
			if err := BindToStruct(tt.snapshot, &cfg); err != nil {
				t.Fatalf("BindToStruct() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestBindToStruct_Errors(t *testing.T) {
	tests := []struct {
		name     string
		snapshot map[string]string
		target   any
	}{
		{"non-pointer", nil, appConfig{}},
		{"nil pointer", nil, (*appConfig)(nil)},
		{"pointer to non-struct", nil, new(string)},
		{"bad int", map[string]string{"DB_MAX_OPEN": "many"}, &appConfig{}},
		{"bad uint", map[string]string{"WORKERS": "-1"}, &appConfig{}},
		{"bad bool", map[string]string{"DEBUG": "maybe"}, &appConfig{}},
		{"bad float", map[string]string{"RATIO": "half"}, &appConfig{}},
		{"bad duration", map[string]string{"DB_TIMEOUT": "soon"}, &appConfig{}},
		{"unsupported type", map[string]string{"M": "x"}, &struct {
			M map[string]string `env:"M"`
		}{}},
		{"unsupported slice", map[string]string{"N": "1,2"}, &struct {
			N []int `env:"N"`
		}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := BindToStruct(tt.snapshot, tt.target); err == nil {
				t.Error("expected error")
			}
		})
	}
}
