package repository_test

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/tenantkit/pkg/repository"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// fakeCollection is an in-memory Collection. Documents are stored as bson
// maps after a marshal round-trip so they look exactly like driver output.
type fakeCollection struct {
	mu           sync.Mutex
	name         string
	docs         map[string]bson.M
	order        []string
	fail         error
	lastPipeline []bson.M
}

func newFakeCollection(name string) *fakeCollection {
	return &fakeCollection{name: name, docs: make(map[string]bson.M)}
}

func (f *fakeCollection) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeCollection) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeCollection) stored(id string) (bson.M, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	return doc, ok
}

func (f *fakeCollection) Name() string { return f.name }

func (f *fakeCollection) FindOne(_ context.Context, filter bson.M, _ bson.M) (bson.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	for _, id := range f.order {
		doc, ok := f.docs[id]
		if ok && matches(doc, filter) {
			return mustRaw(doc), nil
		}
	}
	return nil, repository.ErrNoDocument
}

func (f *fakeCollection) Find(_ context.Context, filter bson.M, opts repository.FindOptions) ([]bson.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	var matched []bson.Raw
	for _, id := range f.order {
		doc, ok := f.docs[id]
		if ok && matches(doc, filter) {
			matched = append(matched, mustRaw(doc))
		}
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			return nil, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (f *fakeCollection) CountDocuments(_ context.Context, filter bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	var n int64
	for _, id := range f.order {
		doc, ok := f.docs[id]
		if ok && matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeCollection) InsertOne(_ context.Context, doc any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	return f.insertLocked(doc)
}

func (f *fakeCollection) InsertMany(_ context.Context, docs []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for _, doc := range docs {
		if err := f.insertLocked(doc); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCollection) insertLocked(doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return err
	}
	id, _ := m["_id"].(string)
	if id == "" {
		return fmt.Errorf("document missing _id: %v", m)
	}
	if _, exists := f.docs[id]; exists {
		return mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}
	}
	f.docs[id] = m
	f.order = append(f.order, id)
	return nil
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter bson.M, update bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	set, _ := update["$set"].(bson.M)
	for _, id := range f.order {
		doc, ok := f.docs[id]
		if ok && matches(doc, filter) {
			for k, v := range set {
				doc[k] = normalize(v)
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeCollection) DeleteOne(_ context.Context, filter bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	for i, id := range f.order {
		doc, ok := f.docs[id]
		if ok && matches(doc, filter) {
			delete(f.docs, id)
			f.order = append(f.order[:i], f.order[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeCollection) Aggregate(_ context.Context, pipeline []bson.M) ([]bson.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.lastPipeline = pipeline

	filter := bson.M{}
	if len(pipeline) > 0 {
		if match, ok := pipeline[0]["$match"].(bson.M); ok {
			filter = match
		}
	}
	var out []bson.Raw
	for _, id := range f.order {
		doc, ok := f.docs[id]
		if ok && matches(doc, filter) {
			out = append(out, mustRaw(doc))
		}
	}
	return out, nil
}

// matches supports the filter shapes the repository produces: scalar
// equality plus $in over strings.
func matches(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if cond, isM := want.(bson.M); isM {
			in, hasIn := cond["$in"]
			if hasIn {
				if !ok || !containsValue(in, got) {
					return false
				}
				continue
			}
		}
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func containsValue(list any, v any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

// normalize applies the marshal round-trip a real driver performs on
// update values so time.Time compares equal to stored DateTime fields.
func normalize(v any) any {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return v
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return v
	}
	return m["v"]
}

func mustRaw(doc bson.M) bson.Raw {
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return bson.Raw(raw)
}

// spyAuditor records every notification the repository emits.
type spyAuditor struct {
	mu       sync.Mutex
	creates  []string
	updates  []string
	deletes  []string
	hardDels []string
	denials  []string
	before   any
	after    any
}

func (s *spyAuditor) LogCreate(_ context.Context, _ tenant.Access, _, resourceID string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, resourceID)
}

func (s *spyAuditor) LogUpdate(_ context.Context, _ tenant.Access, _, resourceID string, before, after any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, resourceID)
	s.before = before
	s.after = after
}

func (s *spyAuditor) LogDelete(_ context.Context, _ tenant.Access, _, resourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, resourceID)
}

func (s *spyAuditor) LogHardDelete(_ context.Context, _ tenant.Access, _, resourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hardDels = append(s.hardDels, resourceID)
}

func (s *spyAuditor) LogPermissionDenied(_ context.Context, _ tenant.Access, _, resourceID, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denials = append(s.denials, action+":"+resourceID)
}
