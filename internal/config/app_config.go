// Package config holds the settingd configuration.
//
// Usage:
//
//	cfg := &config.AppConfig{}
//	servicex.Run(ctx, servicex.WithConfig(cfg))
package config

import (
	"go.eggybyte.com/settings/configx"
)

// AppConfig extends BaseConfig with the settings service options.
type AppConfig struct {
	configx.BaseConfig

	// SeedOnStart creates missing defaults from DefaultsFile at startup.
	SeedOnStart bool `env:"SETTINGS_SEED_ON_START" default:"true"`
	// RequireDefaults fails startup when DefaultsFile is set but missing.
	RequireDefaults bool `env:"SETTINGS_REQUIRE_DEFAULTS" default:"false"`
}

// GetBaseConfig returns the embedded BaseConfig.
func (c *AppConfig) GetBaseConfig() *configx.BaseConfig {
	return &c.BaseConfig
}
