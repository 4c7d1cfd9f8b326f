// Package audit records who did what to which resource across tenants.
//
// Trail is the write side. It is best-effort on purpose: a broken audit
// backend must never fail the business operation being audited, so storage
// errors are logged and swallowed. Trail satisfies the repository layer's
// Auditor interface, which wires every repository write into the trail
// automatically:
//
//	store := audit.NewMongoStore(db.Collection("audit_events"))
//	trail := audit.NewTrail(store,
//	    audit.WithMetadataFilter(audit.NewMetadataFilter()),
//	    audit.WithRequestIDExtractor(requestIDFromContext),
//	)
//	repo := repository.New[Project](coll, repository.WithAuditor(trail))
//
// Update events carry field-level changes computed by Diff, with bookkeeping
// fields excluded. Reader is the query side and clamps every query to the
// tenants the caller may see.
//
// Storage backends: MongoStore (primary), PostgresStore, OpenSearchStore
// (search and dashboards) and MemoryStore (tests, local development).
// AsyncWriter wraps any of them with buffered batching so audit writes stay
// off the request path. Archiver ships expired events to S3 and prunes hot
// storage.
package audit
