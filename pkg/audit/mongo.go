package audit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore persists events in a MongoDB collection. It is the primary
// production storage.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps a driver collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the indexes the query paths rely on. Call it once at
// startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_date", Value: -1}}},
		{Keys: bson.D{{Key: "resource", Value: 1}, {Key: "resource_id", Value: 1}, {Key: "created_date", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_date", Value: -1}}},
	})
	return err
}

// Store inserts one event.
func (s *MongoStore) Store(ctx context.Context, event Event) error {
	_, err := s.coll.InsertOne(ctx, event)
	return err
}

// StoreBatch inserts events in one round trip.
func (s *MongoStore) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, 0, len(events))
	for _, e := range events {
		docs = append(docs, e)
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

// Query returns matching events newest first.
func (s *MongoStore) Query(ctx context.Context, c Criteria) ([]Event, error) {
	filter, err := s.filterFor(ctx, c)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_date", Value: -1}})
	if c.Limit > 0 {
		findOpts.SetLimit(int64(c.Limit))
	}
	if c.Offset > 0 {
		findOpts.SetSkip(int64(c.Offset))
	}

	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of matching events.
func (s *MongoStore) Count(ctx context.Context, c Criteria) (int64, error) {
	filter, err := s.filterFor(ctx, c)
	if err != nil {
		return 0, err
	}
	return s.coll.CountDocuments(ctx, filter)
}

// Stats aggregates per-type counts server side.
func (s *MongoStore) Stats(ctx context.Context, c Criteria) (map[EventType]int64, error) {
	filter, err := s.filterFor(ctx, c)
	if err != nil {
		return nil, err
	}
	cur, err := s.coll.Aggregate(ctx, []bson.M{
		{"$match": filter},
		{"$group": bson.M{"_id": "$event_type", "count": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Type  EventType `bson:"_id"`
		Count int64     `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := make(map[EventType]int64, len(rows))
	for _, row := range rows {
		stats[row.Type] = row.Count
	}
	return stats, nil
}

// DeleteBefore drops events older than the cutoff.
func (s *MongoStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"created_date": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// filterFor translates criteria into a query document. Cursor pagination
// resolves the cursor event first and pages on its timestamp.
func (s *MongoStore) filterFor(ctx context.Context, c Criteria) (bson.M, error) {
	filter := bson.M{}
	switch len(c.TenantIDs) {
	case 0:
	case 1:
		filter["tenant_id"] = c.TenantIDs[0]
	default:
		filter["tenant_id"] = bson.M{"$in": c.TenantIDs}
	}
	if c.UserID != "" {
		filter["user_id"] = c.UserID
	}
	if len(c.Types) > 0 {
		filter["event_type"] = bson.M{"$in": c.Types}
	}
	if c.Resource != "" {
		filter["resource"] = c.Resource
	}
	if c.ResourceID != "" {
		filter["resource_id"] = c.ResourceID
	}

	created := bson.M{}
	if !c.From.IsZero() {
		created["$gte"] = c.From
	}
	if !c.To.IsZero() {
		created["$lt"] = c.To
	}
	if c.Cursor != "" {
		var anchor Event
		err := s.coll.FindOne(ctx, bson.M{"_id": c.Cursor}).Decode(&anchor)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrCursorNotFound
			}
			return nil, err
		}
		created["$lt"] = anchor.CreatedDate
	}
	if len(created) > 0 {
		filter["created_date"] = created
	}
	return filter, nil
}
