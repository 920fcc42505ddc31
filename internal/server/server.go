// Package server assembles settingd: store, view, defaults seeding and
// handlers on top of the servicex components.
package server

import (
	"context"
	"time"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/internal/config"
	"go.eggybyte.com/settings/internal/handler"
	"go.eggybyte.com/settings/internal/service"
	"go.eggybyte.com/settings/servicex"
	"go.eggybyte.com/settings/settingx"
)

// startupTimeout bounds seeding and the initial view load.
const startupTimeout = 30 * time.Second

// Models lists the tables settingd migrates.
func Models() []any {
	return []any{&settingx.Setting{}}
}

// Register returns the servicex registration function for cfg.
func Register(cfg *config.AppConfig) func(*servicex.App) error {
	return func(app *servicex.App) error {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		logger := app.Logger()
		repo := settingx.NewGORMRepository(app.DB())

		opts := []settingx.Option{
			settingx.WithTranslator(app.Translator()),
			settingx.WithLogger(logger),
		}
		if otel := app.Otel(); otel != nil {
			opts = append(opts, settingx.WithMeterProvider(otel.MeterProvider()))
		}
		store := settingx.NewStore(repo, app.Bus(), opts...)

		if err := seedDefaults(ctx, cfg, store, logger); err != nil {
			return err
		}

		view := settingx.NewView(repo, app.Bus(), logger)
		if err := view.Load(ctx); err != nil {
			return errors.Wrap(errors.CodeOf(err), "server.view", err)
		}
		app.AddShutdownHook(func(context.Context) error {
			view.Close()
			return nil
		})

		svc := service.NewSettingService(store, app.Translator(), logger)
		handler.NewSettingHandler(svc, view, logger).Register(app)
		return nil
	}
}

func seedDefaults(ctx context.Context, cfg *config.AppConfig, store *settingx.Store, logger log.Logger) error {
	if !cfg.SeedOnStart || cfg.DefaultsFile == "" {
		return nil
	}

	defaults, err := settingx.LoadDefaultsFile(cfg.DefaultsFile)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) && !cfg.RequireDefaults {
			logger.Warn("defaults file not found, skipping seed", log.Str("path", cfg.DefaultsFile))
			return nil
		}
		return err
	}

	if _, err := store.Seed(ctx, defaults); err != nil {
		return err
	}
	return nil
}
