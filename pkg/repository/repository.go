package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/tenantkit/pkg/apierror"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Auditor receives write notifications after storage operations succeed, and
// denial notifications when an operation is refused. Implementations must not
// block or fail the calling operation. audit.Trail satisfies this interface.
type Auditor interface {
	LogCreate(ctx context.Context, access tenant.Access, resource, resourceID string, doc any)
	LogUpdate(ctx context.Context, access tenant.Access, resource, resourceID string, before, after any)
	LogDelete(ctx context.Context, access tenant.Access, resource, resourceID string)
	LogHardDelete(ctx context.Context, access tenant.Access, resource, resourceID string)
	LogPermissionDenied(ctx context.Context, access tenant.Access, resource, resourceID, action string)
}

// Repository provides tenant-scoped access to a collection of T. Every query
// it issues carries the caller's tenant constraint, so documents from other
// tenants are unreachable through it regardless of the filters passed in.
//
// The caller's identity comes from the request context by default; WithScope
// pins an explicit one for background work.
type Repository[T any, PT Doc[T]] struct {
	coll     Collection
	resource string
	auditor  Auditor
	clock    clock.Clock
	log      *slog.Logger
	scope    *tenant.Access
}

// New builds a repository over coll. The entity pointer type is inferred:
//
//	repo := repository.New[Project](repository.NewMongoCollection(coll))
func New[T any, PT Doc[T]](coll Collection, opts ...Option) *Repository[T, PT] {
	s := settings{
		resource: coll.Name(),
		clock:    clock.New(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Repository[T, PT]{
		coll:     coll,
		resource: s.resource,
		auditor:  s.auditor,
		clock:    s.clock,
		log:      s.log,
	}
}

// WithScope returns a repository bound to access instead of the ambient
// request identity. Use it for background jobs and system tasks that run
// outside a request.
func (r *Repository[T, PT]) WithScope(access tenant.Access) *Repository[T, PT] {
	clone := *r
	clone.scope = &access
	return &clone
}

// Resource returns the name used in errors and audit events.
func (r *Repository[T, PT]) Resource() string { return r.resource }

func (r *Repository[T, PT]) access(ctx context.Context) (tenant.Access, error) {
	if r.scope != nil {
		return *r.scope, nil
	}
	access, ok := tenant.FromContext(ctx)
	if !ok {
		return tenant.Access{}, apierror.Authentication("authentication required")
	}
	return access, nil
}

// baseQuery merges the soft-delete default, the caller's filter and the
// tenant constraint. The constraint is applied last so a filter can never
// widen visibility beyond the caller's tenants; the deleted default can be
// overridden to inspect soft-deleted documents.
func baseQuery(access tenant.Access, filter bson.M) bson.M {
	q := bson.M{"deleted": false}
	for k, v := range filter {
		q[k] = v
	}
	tf := access.TenantFilter()
	if tf.Unrestricted {
		return q
	}
	if len(tf.TenantIDs) == 1 {
		q["tenant_id"] = tf.TenantIDs[0]
	} else {
		q["tenant_id"] = bson.M{"$in": tf.TenantIDs}
	}
	return q
}

// Find returns all documents matching filter within the caller's scope.
func (r *Repository[T, PT]) Find(ctx context.Context, filter bson.M, opts ...FindOptions) ([]*T, error) {
	access, err := r.access(ctx)
	if err != nil {
		return nil, err
	}
	var o FindOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	raws, err := r.coll.Find(ctx, baseQuery(access, filter), o)
	if err != nil {
		return nil, r.storageError(ctx, "find", err)
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		doc, err := r.decode(ctx, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// FindOne returns the first document matching filter within the caller's
// scope, or a not-found error.
func (r *Repository[T, PT]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	access, err := r.access(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := r.coll.FindOne(ctx, baseQuery(access, filter), nil)
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return nil, apierror.NotFound(r.resource)
		}
		return nil, r.storageError(ctx, "find_one", err)
	}
	return r.decode(ctx, raw)
}

// FindByID returns the document with the given identifier, or a not-found
// error. Documents outside the caller's scope report not found rather than
// forbidden.
func (r *Repository[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// Count returns the number of documents matching filter within the caller's
// scope.
func (r *Repository[T, PT]) Count(ctx context.Context, filter bson.M) (int64, error) {
	access, err := r.access(ctx)
	if err != nil {
		return 0, err
	}
	n, err := r.coll.CountDocuments(ctx, baseQuery(access, filter))
	if err != nil {
		return 0, r.storageError(ctx, "count", err)
	}
	return n, nil
}

// FindWithPagination returns one page of matching documents plus total
// counters. Page numbers start at 1; limit defaults to 20 and is capped at
// 100. A page past the end returns empty data with the real total.
func (r *Repository[T, PT]) FindWithPagination(ctx context.Context, filter bson.M, page, limit int64, opts ...FindOptions) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	var o FindOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Limit = limit
	o.Skip = (page - 1) * limit

	data, err := r.Find(ctx, filter, o)
	if err != nil {
		return nil, err
	}
	return &Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Create stores doc, stamping identity, ownership and bookkeeping fields.
// Non-admin callers always write into their own tenant; platform admins
// acting without a tenant keep whatever tenant the document names.
func (r *Repository[T, PT]) Create(ctx context.Context, doc *T) (*T, error) {
	access, err := r.access(ctx)
	if err != nil {
		return nil, err
	}
	r.stampNew(access, doc)
	if err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apierror.Conflict(fmt.Sprintf("%s already exists", r.resource))
		}
		return nil, r.storageError(ctx, "create", err)
	}
	if r.auditor != nil {
		r.auditor.LogCreate(ctx, access, r.resource, PT(doc).GetID(), doc)
	}
	return doc, nil
}

// BulkCreate stores docs in order, stamping each one like Create. An empty
// input returns an empty slice without touching storage.
func (r *Repository[T, PT]) BulkCreate(ctx context.Context, docs []*T) ([]*T, error) {
	if len(docs) == 0 {
		return []*T{}, nil
	}
	access, err := r.access(ctx)
	if err != nil {
		return nil, err
	}
	payload := make([]any, 0, len(docs))
	for _, doc := range docs {
		r.stampNew(access, doc)
		payload = append(payload, doc)
	}
	if err := r.coll.InsertMany(ctx, payload); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apierror.Conflict(fmt.Sprintf("%s already exists", r.resource))
		}
		return nil, r.storageError(ctx, "bulk_create", err)
	}
	if r.auditor != nil {
		for _, doc := range docs {
			r.auditor.LogCreate(ctx, access, r.resource, PT(doc).GetID(), doc)
		}
	}
	return docs, nil
}

// Update applies updates to the document with the given identifier and
// returns the updated document. Identity and ownership fields in updates are
// ignored. The previous and new states are reported to the auditor.
func (r *Repository[T, PT]) Update(ctx context.Context, id string, updates bson.M) (*T, error) {
	access, err := r.access(ctx)
	if err != nil {
		return nil, err
	}
	before, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := make(bson.M, len(updates)+2)
	for k, v := range updates {
		switch k {
		case "_id", "tenant_id", "created_date", "created_by":
			continue
		}
		set[k] = v
	}
	now := r.clock.Now().UTC()
	set["last_updated"] = now
	set["last_updated_by"] = access.UserID()

	matched, err := r.coll.UpdateOne(ctx, baseQuery(access, bson.M{"_id": id}), bson.M{"$set": set})
	if err != nil {
		return nil, r.storageError(ctx, "update", err)
	}
	if matched == 0 {
		return nil, apierror.NotFound(r.resource)
	}

	after, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.auditor != nil {
		r.auditor.LogUpdate(ctx, access, r.resource, id, before, after)
	}
	return after, nil
}

// Delete marks the document with the given identifier as deleted. It keeps
// the document in storage; subsequent reads and deletes report not found.
func (r *Repository[T, PT]) Delete(ctx context.Context, id string) error {
	access, err := r.access(ctx)
	if err != nil {
		return err
	}
	now := r.clock.Now().UTC()
	matched, err := r.coll.UpdateOne(ctx, baseQuery(access, bson.M{"_id": id}), bson.M{"$set": bson.M{
		"deleted":         true,
		"deleted_at":      now,
		"deleted_by":      access.UserID(),
		"last_updated":    now,
		"last_updated_by": access.UserID(),
	}})
	if err != nil {
		return r.storageError(ctx, "delete", err)
	}
	if matched == 0 {
		return apierror.NotFound(r.resource)
	}
	if r.auditor != nil {
		r.auditor.LogDelete(ctx, access, r.resource, id)
	}
	return nil
}

// HardDelete permanently removes the document with the given identifier.
// Only platform administrators may call it; denials are reported to the
// auditor.
func (r *Repository[T, PT]) HardDelete(ctx context.Context, id string) error {
	access, err := r.access(ctx)
	if err != nil {
		return err
	}
	if !access.IsPlatformAdmin() {
		if r.auditor != nil {
			r.auditor.LogPermissionDenied(ctx, access, r.resource, id, "hard_delete")
		}
		return apierror.Authorization("platform administrator role required")
	}
	deleted, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return r.storageError(ctx, "hard_delete", err)
	}
	if deleted == 0 {
		return apierror.NotFound(r.resource)
	}
	if r.auditor != nil {
		r.auditor.LogHardDelete(ctx, access, r.resource, id)
	}
	return nil
}

// Aggregate runs pipeline with the caller's scope prepended as a $match
// stage, so aggregations can never read across tenants.
func (r *Repository[T, PT]) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	access, err := r.access(ctx)
	if err != nil {
		return nil, err
	}
	scoped := make([]bson.M, 0, len(pipeline)+1)
	scoped = append(scoped, bson.M{"$match": baseQuery(access, nil)})
	scoped = append(scoped, pipeline...)

	raws, err := r.coll.Aggregate(ctx, scoped)
	if err != nil {
		return nil, r.storageError(ctx, "aggregate", err)
	}
	out := make([]bson.M, 0, len(raws))
	for _, raw := range raws {
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, r.storageError(ctx, "aggregate", err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *Repository[T, PT]) stampNew(access tenant.Access, doc *T) {
	pt := PT(doc)
	if pt.GetID() == "" {
		pt.SetID(uuid.NewString())
	}
	if access.IsPlatformAdmin() {
		if access.TenantID() != "" {
			pt.SetTenantID(access.TenantID())
		}
	} else {
		pt.SetTenantID(access.TenantID())
	}
	pt.StampCreate(r.clock.Now().UTC(), access.UserID())
}

func (r *Repository[T, PT]) decode(ctx context.Context, raw bson.Raw) (*T, error) {
	doc := new(T)
	if err := bson.Unmarshal(raw, doc); err != nil {
		return nil, r.storageError(ctx, "decode", err)
	}
	return doc, nil
}

func (r *Repository[T, PT]) storageError(ctx context.Context, op string, err error) error {
	r.log.ErrorContext(ctx, "storage operation failed",
		slog.String("collection", r.coll.Name()),
		slog.String("op", op),
		slog.Any("error", err),
	)
	return apierror.Database(err)
}
