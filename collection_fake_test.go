package tenantkit_test

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/tenantkit/pkg/repository"
)

// memCollection is a minimal in-memory Collection for wiring tests.
// Documents go through a bson marshal round-trip so stored values look
// like driver output; filters support scalar equality and $in.
type memCollection struct {
	mu    sync.Mutex
	name  string
	docs  map[string]bson.M
	order []string
}

func newMemCollection(name string) *memCollection {
	return &memCollection{name: name, docs: make(map[string]bson.M)}
}

func (c *memCollection) Name() string { return c.name }

func (c *memCollection) FindOne(_ context.Context, filter bson.M, _ bson.M) (bson.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if memMatches(c.docs[id], filter) {
			return memRaw(c.docs[id]), nil
		}
	}
	return nil, repository.ErrNoDocument
}

func (c *memCollection) Find(_ context.Context, filter bson.M, opts repository.FindOptions) ([]bson.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []bson.Raw
	for _, id := range c.order {
		if memMatches(c.docs[id], filter) {
			out = append(out, memRaw(c.docs[id]))
		}
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(out)) {
			return nil, nil
		}
		out = out[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(out)) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (c *memCollection) CountDocuments(_ context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, id := range c.order {
		if memMatches(c.docs[id], filter) {
			n++
		}
	}
	return n, nil
}

func (c *memCollection) InsertOne(_ context.Context, doc any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(doc)
}

func (c *memCollection) InsertMany(_ context.Context, docs []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		if err := c.insertLocked(doc); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCollection) insertLocked(doc any) error {
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
	c.docs[id] = m
	c.order = append(c.order, id)
	return nil
}

func (c *memCollection) UpdateOne(_ context.Context, filter bson.M, update bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, _ := update["$set"].(bson.M)
	for _, id := range c.order {
		if memMatches(c.docs[id], filter) {
			for k, v := range set {
				c.docs[id][k] = memNormalize(v)
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memCollection) DeleteOne(_ context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, id := range c.order {
		if memMatches(c.docs[id], filter) {
			delete(c.docs, id)
			c.order = append(c.order[:i], c.order[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memCollection) Aggregate(_ context.Context, pipeline []bson.M) ([]bson.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	filter := bson.M{}
	if len(pipeline) > 0 {
		if match, ok := pipeline[0]["$match"].(bson.M); ok {
			filter = match
		}
	}
	var out []bson.Raw
	for _, id := range c.order {
		if memMatches(c.docs[id], filter) {
			out = append(out, memRaw(c.docs[id]))
		}
	}
	return out, nil
}

func memMatches(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if cond, isM := want.(bson.M); isM {
			if in, hasIn := cond["$in"]; hasIn {
				if !ok || !memContains(in, got) {
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

func memContains(list any, v any) bool {
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

func memNormalize(v any) any {
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

func memRaw(doc bson.M) bson.Raw {
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return bson.Raw(raw)
}
