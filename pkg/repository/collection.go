package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNoDocument is returned by Collection implementations when a lookup
// matches nothing. The repository translates it into a not-found API error.
var ErrNoDocument = errors.New("repository: no document found")

// Collection is the slice of a document store the repository relies on.
// *mongo.Collection is adapted via NewMongoCollection; tests substitute an
// in-memory implementation.
type Collection interface {
	Name() string
	FindOne(ctx context.Context, filter bson.M, projection bson.M) (bson.Raw, error)
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.Raw, error)
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
	InsertOne(ctx context.Context, doc any) error
	InsertMany(ctx context.Context, docs []any) error
	UpdateOne(ctx context.Context, filter bson.M, update bson.M) (matched int64, err error)
	DeleteOne(ctx context.Context, filter bson.M) (deleted int64, err error)
	Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.Raw, error)
}

// MongoCollection adapts *mongo.Collection to the Collection interface.
type MongoCollection struct {
	coll *mongo.Collection
}

// NewMongoCollection wraps a driver collection.
func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

// Name returns the underlying collection name.
func (c *MongoCollection) Name() string { return c.coll.Name() }

// FindOne fetches a single document, mapping mongo.ErrNoDocuments to
// ErrNoDocument.
func (c *MongoCollection) FindOne(ctx context.Context, filter bson.M, projection bson.M) (bson.Raw, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}
	raw, err := c.coll.FindOne(ctx, filter, opts).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocument
		}
		return nil, err
	}
	return raw, nil
}

// Find fetches all documents matching filter, honoring FindOptions.
func (c *MongoCollection) Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.Raw, error) {
	findOpts := options.Find()
	if opts.Projection != nil {
		findOpts.SetProjection(opts.Projection)
	}
	if opts.Sort != nil {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	cur, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountDocuments counts documents matching filter.
func (c *MongoCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

// InsertOne stores a single document.
func (c *MongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

// InsertMany stores documents in order.
func (c *MongoCollection) InsertMany(ctx context.Context, docs []any) error {
	_, err := c.coll.InsertMany(ctx, docs)
	return err
}

// UpdateOne applies update to the first document matching filter and
// reports how many documents matched.
func (c *MongoCollection) UpdateOne(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// DeleteOne removes the first document matching filter and reports how many
// documents were removed.
func (c *MongoCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Aggregate runs pipeline and collects every result document.
func (c *MongoCollection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.Raw, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
