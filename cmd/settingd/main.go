// Command settingd serves the typed settings store.
//
// Configuration comes from the environment and the optional CONFIG_FILE:
//
//	DB_DRIVER=postgres DB_DSN="host=db user=settings dbname=settings" \
//	SETTINGS_DEFAULTS_FILE=/etc/settingd/defaults.yaml settingd
//
// Endpoints:
//   - HTTP_PORT (:8080): Connect API under /settings.v1.SettingService/ and GET /api/settings/{group}
//   - HEALTH_PORT (:8081): /healthz and /readyz
//   - METRICS_PORT (:9091): /metrics
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.eggybyte.com/settings/internal/config"
	"go.eggybyte.com/settings/internal/server"
	"go.eggybyte.com/settings/servicex"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.AppConfig{}
	err := servicex.Run(ctx,
		servicex.WithConfig(cfg),
		servicex.WithAutoMigrate(server.Models()...),
		servicex.WithRegister(server.Register(cfg)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "settingd: %v\n", err)
		os.Exit(1)
	}
}
