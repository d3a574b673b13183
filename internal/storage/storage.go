// Package storage provides the shared database plumbing for the domain
// packages: a querier abstraction satisfied by both *sql.DB and *sql.Tx,
// a transaction helper, and Postgres error mapping.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
)

// Dialect builds Postgres-flavored SQL for the dynamic filter queries.
var Dialect = goqu.Dialect("postgres")

// Querier is the subset of database/sql used by the repositories. Both
// *sql.DB and *sql.Tx satisfy it, so the same repository methods run
// standalone or inside a domain transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const uniqueViolation = "23505"

// MapError translates driver-level errors into the shared error kinds.
// A unique-constraint violation means the operation lost a race (duplicate
// ISBN, second open borrowing for the same book) and surfaces as ErrConflict.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return liberr.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Detail, liberr.ErrConflict)
	}
	return err
}

// WithTx runs fn inside a transaction and commits it if fn returns nil.
// Every state-machine transition goes through here so all entity mutations
// plus the emitted notification commit together, or none do.
func WithTx(ctx context.Context, db *sql.DB, name string, fn func(tx *sql.Tx) error) error {
	tracer := otel.Tracer("library/storage")
	ctx, span := tracer.Start(ctx, "storage.tx",
		trace.WithAttributes(attribute.String("tx.operation", name)),
	)
	defer span.End()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		span.SetAttributes(attribute.Bool("tx.rolled_back", true))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
