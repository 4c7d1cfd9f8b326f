package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConnectionFailed       = errors.New("pg: failed to open connection")
	ErrInvalidConfig          = errors.New("pg: failed to parse connection config")
	ErrHealthcheckFailed      = errors.New("pg: healthcheck failed")
	ErrMigrationFailed        = errors.New("pg: failed to apply migrations")
	ErrMigrationsDirNotFound  = errors.New("pg: migrations directory not found")
	ErrMigrationsPathRequired = errors.New("pg: migrations path not provided")
)

// IsNotFound reports whether err is pgx's no-rows result.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKey reports whether err is a unique constraint violation
// (SQLSTATE 23505).
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a referential integrity
// violation (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
