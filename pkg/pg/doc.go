// Package pg bootstraps the PostgreSQL layer backing the notification
// storages: a pgx/v5 connection pool with startup retries, goose schema
// migrations, a healthcheck closure, and error classification helpers.
//
// Configuration is environment-driven (see Config field tags, NOTIFY_PG_*
// variables) and can be loaded in one call:
//
//	cfg, err := pg.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// The error helpers (IsNotFoundError, IsDuplicateKeyError) let the storage
// implementations translate driver errors into their package sentinels
// without leaking pgx types upward.
package pg
