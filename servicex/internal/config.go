// Package internal holds the bootstrap sequence behind servicex.Run.
package internal

import (
	"io"
	"time"

	"go.eggybyte.com/settings/configx"
	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/logx"
)

// ServiceConfig collects the options given to servicex.Run.
type ServiceConfig struct {
	ServiceName    string // Overrides SERVICE_NAME when set
	ServiceVersion string // Overrides SERVICE_VERSION when set
	Config         any    // *configx.BaseConfig or a BaseConfigProvider
	ConfigFile     string // Overrides CONFIG_FILE when set
	Logger         log.Logger
	LogWriter      io.Writer
	EnableMetrics  bool
	RegisterFn     func(*Components) error
	OnReady        func(*Components)

	DefaultTimeout  time.Duration
	SlowRequest     time.Duration
	ShutdownTimeout time.Duration

	AutoMigrateModels []any
}

// NewServiceConfig returns the defaults.
func NewServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		EnableMetrics:   true,
		DefaultTimeout:  30 * time.Second,
		SlowRequest:     time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// BaseConfigProvider is implemented by config structs that embed
// configx.BaseConfig under another name.
//
//	type AppConfig struct {
//	    Base configx.BaseConfig
//	    Extra string `env:"EXTRA"`
//	}
//
//	func (c *AppConfig) GetBaseConfig() *configx.BaseConfig { return &c.Base }
type BaseConfigProvider interface {
	GetBaseConfig() *configx.BaseConfig
}

// ExtractBaseConfig returns the BaseConfig held by cfg.
func ExtractBaseConfig(cfg any) (*configx.BaseConfig, bool) {
	switch c := cfg.(type) {
	case *configx.BaseConfig:
		return c, c != nil
	case BaseConfigProvider:
		bc := c.GetBaseConfig()
		return bc, bc != nil
	default:
		return nil, false
	}
}

// NewLogger builds the process logger from the bound configuration.
// The console format is logfmt with coloured levels.
func NewLogger(cfg *configx.BaseConfig, w io.Writer) (log.Logger, error) {
	level, err := logx.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "servicex.logger", err)
	}

	opts := []logx.Option{logx.WithLevel(level), logx.WithTimestamp()}
	if w != nil {
		opts = append(opts, logx.WithWriter(w))
	}
	switch cfg.LogFormat {
	case "json":
		opts = append(opts, logx.WithFormat(logx.FormatJSON))
	case "console":
		opts = append(opts, logx.WithFormat(logx.FormatLogfmt), logx.WithColor(true))
	default:
		opts = append(opts, logx.WithFormat(logx.FormatLogfmt))
	}
	return logx.New(opts...).With(log.Str("service", cfg.ServiceName)), nil
}
