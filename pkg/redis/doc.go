// Package redis connects the Redis-backed parts of the framework: the
// cross-instance cache transport expects an established client, and this
// package produces one from environment configuration with retry on
// transient startup failures.
//
// Typical wiring:
//
//	cfg, err := config.Load[redis.Config]()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	manager := cache.NewManager(10_000, cache.WithRemote(cache.NewRedisRemote(client)))
//
// Connect retries with a linear backoff and verifies each attempt with a
// ping, bounded overall by the configured connect timeout. Healthcheck
// returns a probe function for readiness endpoints.
package redis
