package ports

import (
	"context"
	"database/sql"
)

// Querier is the statement surface shared by a connection pool and an open
// transaction. *sql.DB and *sql.Tx both satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is an open database transaction. Commit and Rollback may each be called
// at most once, and never both; the service context enforces this.
type Tx interface {
	Querier
	Commit() error
	Rollback() error
}

// TxBeginner opens transactions. Implemented by the database client.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Query is a read-only, immutable query builder scoped to one model.
// Every builder method returns a new Query; the receiver is not modified.
type Query[E any] interface {
	// Where restricts the query to rows whose columns equal the given values.
	Where(attrs map[string]any) Query[E]

	// Active restricts the query to rows without a soft-delete marker.
	Active() Query[E]

	// Transacting binds the query to q (usually an open Tx).
	Transacting(q Querier) Query[E]

	// First returns the first matching row, or found=false when none match.
	First(ctx context.Context) (entity E, found bool, err error)

	// FirstOrFail returns the first matching row or an error wrapping
	// domain.ErrNotFound.
	FirstOrFail(ctx context.Context) (E, error)

	// All returns every matching row.
	All(ctx context.Context) ([]E, error)
}

// Model is the persistence collaborator for one entity type.
type Model[E any] interface {
	// Name identifies the model (its table name) in logs and errors.
	Name() string

	// Save inserts a never-persisted entity or updates an existing one
	// through q, refreshing the entity's timestamps in place.
	Save(ctx context.Context, q Querier, entity E) error

	// Query returns a new query builder for the model.
	Query() Query[E]
}

// SoftDeleter is implemented by models that can mark rows deleted while
// keeping them.
type SoftDeleter[E any] interface {
	SoftDelete(ctx context.Context, q Querier, entity E) error
}

// Undeleter is implemented by models that can clear a soft-delete marker.
type Undeleter[E any] interface {
	Undelete(ctx context.Context, q Querier, entity E) error
}

// TxDeleter is implemented by models that can permanently delete a row
// inside a transaction. Preferred over Deleter.
type TxDeleter[E any] interface {
	DeleteWithinTransaction(ctx context.Context, tx Tx, entity E) error
}

// Deleter is the plain, non-transactional delete fallback.
type Deleter[E any] interface {
	Delete(ctx context.Context, entity E) error
}
