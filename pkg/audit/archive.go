package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// S3API is the slice of the S3 client the archiver uses. *s3.Client
// implements it; tests substitute a recorder.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveStorage is a storage that can also prune by age.
type ArchiveStorage interface {
	Storage
	RetentionStorage
}

// Archiver moves events past the retention window out of hot storage into
// S3 as newline-delimited JSON, then prunes them. A crash between upload and
// prune re-archives on the next run, which duplicates objects but never
// loses events.
type Archiver struct {
	storage   ArchiveStorage
	s3        S3API
	bucket    string
	prefix    string
	retention time.Duration
	batch     int
	log       *slog.Logger
	clock     clock.Clock
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithArchivePrefix overrides the object key prefix. Default "audit/".
func WithArchivePrefix(prefix string) ArchiverOption {
	return func(a *Archiver) { a.prefix = prefix }
}

// WithRetention overrides how long events stay in hot storage. Default 90
// days.
func WithRetention(d time.Duration) ArchiverOption {
	return func(a *Archiver) {
		if d > 0 {
			a.retention = d
		}
	}
}

// WithArchiveBatchSize overrides how many events go into one object.
// Default 1000.
func WithArchiveBatchSize(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.batch = n
		}
	}
}

// WithArchiverLogger overrides the logger.
func WithArchiverLogger(log *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		if log != nil {
			a.log = log
		}
	}
}

// WithArchiverClock overrides the time source.
func WithArchiverClock(c clock.Clock) ArchiverOption {
	return func(a *Archiver) {
		if c != nil {
			a.clock = c
		}
	}
}

// NewArchiver builds an archiver over storage and an S3 bucket.
func NewArchiver(storage ArchiveStorage, client S3API, bucket string, opts ...ArchiverOption) *Archiver {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	if client == nil {
		panic("audit: s3 client cannot be nil")
	}
	a := &Archiver{
		storage:   storage,
		s3:        client,
		bucket:    bucket,
		prefix:    "audit/",
		retention: 90 * 24 * time.Hour,
		batch:     1000,
		log:       slog.Default(),
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one archive cycle: upload every event older than the
// retention cutoff, then prune them from storage. It returns the number of
// events pruned.
func (a *Archiver) Run(ctx context.Context) (int64, error) {
	cutoff := a.clock.Now().UTC().Add(-a.retention)

	cursor := ""
	var uploaded int
	for {
		events, err := a.storage.Query(ctx, Criteria{To: cutoff, Limit: a.batch, Cursor: cursor})
		if err != nil {
			return 0, err
		}
		if len(events) == 0 {
			break
		}
		if err := a.upload(ctx, cutoff, events); err != nil {
			return 0, err
		}
		uploaded += len(events)
		if len(events) < a.batch {
			break
		}
		cursor = events[len(events)-1].ID
	}
	if uploaded == 0 {
		return 0, nil
	}

	pruned, err := a.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	a.log.InfoContext(ctx, "audit events archived",
		slog.Int("uploaded", uploaded),
		slog.Int64("pruned", pruned),
		slog.Time("cutoff", cutoff),
	)
	return pruned, nil
}

// Schedule runs archive cycles on the given interval until the context is
// canceled. Failures are logged and the schedule keeps going.
func (a *Archiver) Schedule(ctx context.Context, every time.Duration) {
	ticker := a.clock.Ticker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Run(ctx); err != nil {
				a.log.ErrorContext(ctx, "audit archive cycle failed", slog.Any("error", err))
			}
		}
	}
}

func (a *Archiver) upload(ctx context.Context, cutoff time.Time, events []Event) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	key := fmt.Sprintf("%s%s/%s.ndjson", a.prefix, cutoff.Format("2006/01/02"), uuid.NewString())
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	return err
}
