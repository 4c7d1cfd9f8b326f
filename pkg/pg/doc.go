// Package pg connects the Postgres-backed parts of the framework to a
// pgx/v5 connection pool.
//
// Config is populated from PG_* environment variables via config.Load.
// Connect opens a verified pool with linear-backoff retry, Migrate runs
// the goose migrations that create the audit schema, and Healthcheck
// adapts the pool to the func(context.Context) error probe shape.
//
//	cfg, err := config.Load[pg.Config]()
//	if err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//	store := audit.NewPostgresStore(pool)
//
// IsNotFound, IsDuplicateKey, and IsForeignKeyViolation classify driver
// errors without leaking pgconn types into calling code.
package pg
