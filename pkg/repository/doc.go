// Package repository provides generic, tenant-scoped data access on top of
// MongoDB collections.
//
// Every read and write goes through a base query that combines the caller's
// tenant constraint with a soft-delete guard, so application code cannot
// accidentally reach documents belonging to another tenant. The caller's
// identity is taken from the request context (see package tenant), or pinned
// explicitly with WithScope for background work.
//
// Entities embed Base to pick up identity, ownership and bookkeeping fields:
//
//	type Project struct {
//	    repository.Base `bson:",inline"`
//	    Name            string `bson:"name" json:"name"`
//	}
//
//	repo := repository.New[Project](repository.NewMongoCollection(coll))
//
//	project, err := repo.Create(ctx, &Project{Name: "onboarding"})
//	projects, err := repo.Find(ctx, bson.M{"name": "onboarding"})
//
// Deletes are soft by default: Delete marks the document and later reads skip
// it. HardDelete removes the document permanently and is restricted to
// platform administrators.
//
// Write operations report to an optional Auditor after they succeed. Failures
// of the auditor never affect the data operation.
package repository
