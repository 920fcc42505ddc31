// Package servicex starts a settings process in one call.
//
// Overview:
//   - Responsibility: Bind configuration, then build the logger, database, telemetry,
//     translator, notification bus and Connect stack, and serve them through runtimex
//   - Key Types: App for registration, Option for Run
//   - Concurrency Model: Run blocks; App is only used from the register callback
//   - Error Semantics: Bootstrap failures are returned as core errors; shutdown
//     failures are logged and joined into Run's result
//   - Performance Notes: The database is pinged with backoff before registration
//
// Usage:
//
//	err := servicex.Run(ctx,
//		servicex.WithConfig(&cfg),
//		servicex.WithAutoMigrate(&settingx.Setting{}),
//		servicex.WithRegister(func(app *servicex.App) error {
//			servicex.Handle(app, "/settings.v1.SettingService/GetSetting", h.GetSetting)
//			return nil
//		}),
//	)
package servicex
