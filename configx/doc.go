// Package configx loads service configuration from the environment and an
// optional YAML or JSON file, and binds it into validated structs.
//
// Overview:
//   - Responsibility: Merge configuration sources and bind them into structs
//   - Key Types: Source, Manager, BaseConfig
//   - Concurrency Model: Manager is safe for concurrent use; sources publish from their own goroutines
//   - Error Semantics: Load, bind and validation failures are returned as INVALID_ARGUMENT or INTERNAL errors
//   - Performance Notes: Updates are debounced; reads copy the merged map
//
// Sources are merged in order, later ones winning. Empty values never
// override. File keys are flattened to UPPER_SNAKE so one name works in both.
//
// Usage:
//
//	mgr, err := configx.NewManager(ctx, configx.Options{
//		Logger:  logger,
//		Sources: configx.DefaultSources(os.Getenv("CONFIG_FILE"), logger),
//	})
//	var cfg configx.BaseConfig
//	err = mgr.Bind(&cfg)
package configx
