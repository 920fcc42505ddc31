// Package storex opens GORM connection pools and tracks storage backends for
// health checks and shutdown.
//
// Overview:
//   - Responsibility: Open sqlite/mysql/postgres pools and check their health
//   - Key Types: Store, GORMStore, Registry
//   - Concurrency Model: Stores and the registry are safe for concurrent use
//   - Error Semantics: Bad options are INVALID_ARGUMENT; unreachable databases are UNAVAILABLE
//   - Performance Notes: Startup pings retry with exponential backoff
//
// Usage:
//
//	store, err := storex.NewGORMStore(ctx, storex.GORMOptions{Driver: "sqlite", DSN: "file:settings.db"})
//	reg := storex.NewRegistry()
//	_ = reg.Register("settings", store)
//	err = reg.Ping(ctx)
package storex
