// Package httpserver runs the framework's HTTP stack with graceful
// shutdown. Run blocks until the context is canceled or the process is
// signaled, then drains in-flight requests within the shutdown timeout.
// HealthHandler turns the storage connectors' Healthcheck closures into
// liveness and readiness probes.
//
// Typical wiring:
//
//	cfg, _ := config.Load[httpserver.Config]()
//
//	r := chi.NewRouter()
//	r.Use(core.Middleware())
//	r.Get("/healthz", httpserver.HealthHandler(core.Logger(),
//		mongo.Healthcheck(client),
//		redis.Healthcheck(rdb),
//	))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(core.Logger()))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", slog.Any("error", err))
//	}
package httpserver
