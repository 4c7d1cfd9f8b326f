// Package opensearch connects the search-backed audit store: audit.NewOpenSearchStore
// expects an established client, and this package produces one from environment
// configuration with an initial reachability check.
//
// Typical wiring:
//
//	cfg, err := config.Load[opensearch.Config]()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := opensearch.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	auditStore := audit.NewOpenSearchStore(client)
//
// Healthcheck returns a probe function for readiness endpoints.
package opensearch
