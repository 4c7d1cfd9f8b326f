package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
)

const defaultOpenSearchIndex = "audit-events"

// OpenSearchStore indexes events for full-text search and dashboarding. It
// usually runs behind an AsyncWriter as a secondary sink next to the primary
// store.
type OpenSearchStore struct {
	client *opensearch.Client
	index  string
}

// OpenSearchOption configures an OpenSearchStore.
type OpenSearchOption func(*OpenSearchStore)

// WithIndex overrides the index name.
func WithIndex(name string) OpenSearchOption {
	return func(s *OpenSearchStore) {
		if name != "" {
			s.index = name
		}
	}
}

// NewOpenSearchStore wraps a cluster client.
func NewOpenSearchStore(client *opensearch.Client, opts ...OpenSearchOption) *OpenSearchStore {
	s := &OpenSearchStore{client: client, index: defaultOpenSearchIndex}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store indexes one event.
func (s *OpenSearchStore) Store(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	res, err := s.client.Index(
		s.index,
		bytes.NewReader(payload),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(event.ID),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}
	return nil
}

// StoreBatch indexes events through the bulk API.
func (s *OpenSearchStore) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, e := range events {
		action, err := json.Marshal(map[string]any{"index": map[string]any{"_id": e.ID}})
		if err != nil {
			return err
		}
		doc, err := json.Marshal(e)
		if err != nil {
			return err
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}
	return nil
}

// Query searches matching events newest first.
func (s *OpenSearchStore) Query(ctx context.Context, c Criteria) ([]Event, error) {
	query, err := s.queryFor(ctx, c)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"query": query,
		"sort":  []map[string]any{{"created_date": map[string]any{"order": "desc"}}},
	}
	if c.Limit > 0 {
		body["size"] = c.Limit
	}
	if c.Offset > 0 {
		body["from"] = c.Offset
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}

	var sr struct {
		Hits struct {
			Hits []struct {
				Source Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}

// Count returns the number of matching events.
func (s *OpenSearchStore) Count(ctx context.Context, c Criteria) (int64, error) {
	query, err := s.queryFor(ctx, c)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return 0, err
	}
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.index),
		s.client.Count.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}
	var cr struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, err
	}
	return cr.Count, nil
}

// Stats aggregates per-type counts with a terms aggregation.
func (s *OpenSearchStore) Stats(ctx context.Context, c Criteria) (map[EventType]int64, error) {
	query, err := s.queryFor(ctx, c)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]any{
		"size":  0,
		"query": query,
		"aggs": map[string]any{
			"by_type": map[string]any{
				"terms": map[string]any{"field": "event_type.keyword"},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}

	var sr struct {
		Aggregations struct {
			ByType struct {
				Buckets []struct {
					Key   string `json:"key"`
					Count int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_type"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, err
	}
	stats := make(map[EventType]int64, len(sr.Aggregations.ByType.Buckets))
	for _, b := range sr.Aggregations.ByType.Buckets {
		stats[EventType(b.Key)] = b.Count
	}
	return stats, nil
}

// DeleteBefore drops events older than the cutoff via delete-by-query.
func (s *OpenSearchStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	payload, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"created_date": map[string]any{"lt": cutoff.Format(time.RFC3339Nano)},
			},
		},
	})
	if err != nil {
		return 0, err
	}
	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		bytes.NewReader(payload),
		s.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}
	var dr struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&dr); err != nil {
		return 0, err
	}
	return dr.Deleted, nil
}

func (s *OpenSearchStore) queryFor(ctx context.Context, c Criteria) (map[string]any, error) {
	var filters []map[string]any
	term := func(field string, value any) {
		filters = append(filters, map[string]any{"term": map[string]any{field: value}})
	}

	switch len(c.TenantIDs) {
	case 0:
	case 1:
		term("tenant_id.keyword", c.TenantIDs[0])
	default:
		filters = append(filters, map[string]any{
			"terms": map[string]any{"tenant_id.keyword": c.TenantIDs},
		})
	}
	if c.UserID != "" {
		term("user_id.keyword", c.UserID)
	}
	if len(c.Types) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"event_type.keyword": c.Types},
		})
	}
	if c.Resource != "" {
		term("resource.keyword", c.Resource)
	}
	if c.ResourceID != "" {
		term("resource_id.keyword", c.ResourceID)
	}

	created := map[string]any{}
	if !c.From.IsZero() {
		created["gte"] = c.From.Format(time.RFC3339Nano)
	}
	if !c.To.IsZero() {
		created["lt"] = c.To.Format(time.RFC3339Nano)
	}
	if c.Cursor != "" {
		anchor, err := s.getEvent(ctx, c.Cursor)
		if err != nil {
			return nil, err
		}
		created["lt"] = anchor.CreatedDate.Format(time.RFC3339Nano)
	}
	if len(created) > 0 {
		filters = append(filters, map[string]any{
			"range": map[string]any{"created_date": created},
		})
	}

	if len(filters) == 0 {
		return map[string]any{"match_all": map[string]any{}}, nil
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}, nil
}

func (s *OpenSearchStore) getEvent(ctx context.Context, id string) (Event, error) {
	res, err := s.client.Get(s.index, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return Event{}, err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return Event{}, ErrCursorNotFound
	}
	if res.IsError() {
		return Event{}, fmt.Errorf("%w: %s", ErrStorageUnavailable, res.Status())
	}
	var gr struct {
		Source Event `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return Event{}, err
	}
	return gr.Source, nil
}
