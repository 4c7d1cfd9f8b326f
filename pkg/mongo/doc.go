// Package mongo connects the MongoDB-backed parts of the framework: tenant-aware
// repositories and the Mongo audit store both expect an established client or
// database handle, and this package produces them from environment configuration
// with retry on transient startup failures.
//
// Typical wiring:
//
//	cfg, err := config.Load[mongo.Config]()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	db, err := mongo.ConnectDatabase(ctx, cfg, "app")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	projects := repository.New[Project](repository.NewMongoCollection(db.Collection("projects")))
//	auditStore := audit.NewMongoStore(db.Collection("audit_events"))
//
// Connect retries with a linear backoff and verifies each attempt with a ping,
// so a service starting alongside its database converges without crash loops.
// Healthcheck returns a probe function for readiness endpoints.
package mongo
