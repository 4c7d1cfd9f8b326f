// Package s3 connects the object-storage side of audit archival: the
// archiver expects an established S3 client, and this package produces
// one from environment configuration.
//
// Typical wiring:
//
//	cfg, err := config.Load[s3.Config]()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := s3.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	archiver := audit.NewArchiver(archiveStore, client, "audit-archive")
//
// Endpoint and ForcePathStyle support S3-compatible services such as
// MinIO. Healthcheck returns a probe function for readiness endpoints.
package s3
