package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresTable = "audit_events"

// PostgresStore persists events in a PostgreSQL table. The schema ships as a
// goose migration; see migrations/.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTable overrides the table name, e.g. to place it in another schema.
func WithTable(name string) PostgresOption {
	return func(s *PostgresStore) {
		if name != "" {
			s.table = name
		}
	}
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{pool: pool, table: defaultPostgresTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const insertColumns = "id, event_type, tenant_id, user_id, resource, resource_id, action, changes, metadata, request_id, ip, user_agent, created_date"

// Store inserts one event.
func (s *PostgresStore) Store(ctx context.Context, event Event) error {
	args, err := insertArgs(event)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		s.table, insertColumns,
	)
	_, err = s.pool.Exec(ctx, sql, args...)
	return err
}

// StoreBatch inserts events in one round trip using a pipelined batch.
func (s *PostgresStore) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		s.table, insertColumns,
	)
	batch := &pgx.Batch{}
	for _, e := range events {
		args, err := insertArgs(e)
		if err != nil {
			return err
		}
		batch.Queue(sql, args...)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func insertArgs(e Event) ([]any, error) {
	var changes, metadata []byte
	var err error
	if e.Changes != nil {
		if changes, err = json.Marshal(e.Changes); err != nil {
			return nil, err
		}
	}
	if e.Metadata != nil {
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return nil, err
		}
	}
	return []any{
		e.ID, string(e.Type), e.TenantID, e.UserID, e.Resource, e.ResourceID,
		e.Action, changes, metadata, e.RequestID, e.IP, e.UserAgent, e.CreatedDate,
	}, nil
}

// Query returns matching events newest first.
func (s *PostgresStore) Query(ctx context.Context, c Criteria) ([]Event, error) {
	where, args, err := s.whereFor(ctx, c)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_date DESC", insertColumns, s.table, where)
	if c.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", c.Limit)
	}
	if c.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", c.Offset)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var typ string
		var changes, metadata []byte
		if err := rows.Scan(
			&e.ID, &typ, &e.TenantID, &e.UserID, &e.Resource, &e.ResourceID,
			&e.Action, &changes, &metadata, &e.RequestID, &e.IP, &e.UserAgent, &e.CreatedDate,
		); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, err
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of matching events.
func (s *PostgresStore) Count(ctx context.Context, c Criteria) (int64, error) {
	where, args, err := s.whereFor(ctx, c)
	if err != nil {
		return 0, err
	}
	var n int64
	sql := fmt.Sprintf("SELECT count(*) FROM %s%s", s.table, where)
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Stats aggregates per-type counts server side.
func (s *PostgresStore) Stats(ctx context.Context, c Criteria) (map[EventType]int64, error) {
	where, args, err := s.whereFor(ctx, c)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT event_type, count(*) FROM %s%s GROUP BY event_type", s.table, where)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[EventType]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		stats[EventType(typ)] = n
	}
	return stats, rows.Err()
}

// DeleteBefore drops events older than the cutoff.
func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE created_date < $1", s.table), cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) whereFor(ctx context.Context, c Criteria) (string, []any, error) {
	var conds []string
	var args []any
	add := func(format string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	switch len(c.TenantIDs) {
	case 0:
	case 1:
		add("tenant_id = $%d", c.TenantIDs[0])
	default:
		add("tenant_id = ANY($%d)", c.TenantIDs)
	}
	if c.UserID != "" {
		add("user_id = $%d", c.UserID)
	}
	if len(c.Types) > 0 {
		types := make([]string, 0, len(c.Types))
		for _, t := range c.Types {
			types = append(types, string(t))
		}
		add("event_type = ANY($%d)", types)
	}
	if c.Resource != "" {
		add("resource = $%d", c.Resource)
	}
	if c.ResourceID != "" {
		add("resource_id = $%d", c.ResourceID)
	}
	if !c.From.IsZero() {
		add("created_date >= $%d", c.From)
	}
	if !c.To.IsZero() {
		add("created_date < $%d", c.To)
	}
	if c.Cursor != "" {
		var anchor time.Time
		err := s.pool.QueryRow(ctx,
			fmt.Sprintf("SELECT created_date FROM %s WHERE id = $1", s.table), c.Cursor,
		).Scan(&anchor)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", nil, ErrCursorNotFound
			}
			return "", nil, err
		}
		add("created_date < $%d", anchor)
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
