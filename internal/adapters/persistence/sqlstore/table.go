package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Mapping describes how an entity type maps onto a table. The record
// columns (id, created_at, updated_at, deleted_at) are handled by Table and
// must not be listed in Columns.
type Mapping[E domain.Entity] struct {
	// Table is the table name.
	Table string
	// Columns lists the entity-specific columns in a fixed order.
	Columns []string
	// New allocates an empty entity to scan into.
	New func() E
	// Values returns the column values of e, in Columns order.
	Values func(e E) []any
	// Fields returns scan destinations into e, in Columns order.
	Fields func(e E) []any
}

// Table is a generic mapper for one entity type.
type Table[E domain.Entity] struct {
	db      ports.Querier
	dialect Dialect
	mapping Mapping[E]
	allowed map[string]bool
	now     func() time.Time
}

// TableOption configures a Table.
type TableOption func(*tableOptions)

type tableOptions struct {
	now func() time.Time
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) TableOption {
	return func(o *tableOptions) {
		o.now = now
	}
}

// NewTable returns a mapper that runs non-transactional statements on db.
func NewTable[E domain.Entity](db ports.Querier, dialect Dialect, m Mapping[E], opts ...TableOption) *Table[E] {
	o := tableOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	allowed := map[string]bool{
		"id": true, "created_at": true, "updated_at": true, "deleted_at": true,
	}
	for _, c := range m.Columns {
		allowed[c] = true
	}

	return &Table[E]{
		db:      db,
		dialect: dialect,
		mapping: m,
		allowed: allowed,
		now:     o.now,
	}
}

// Name returns the table name.
func (t *Table[E]) Name() string {
	return t.mapping.Table
}

// Query returns a new query over the table, running on the pool until
// Transacting binds it elsewhere.
func (t *Table[E]) Query() ports.Query[E] {
	return &Query[E]{table: t, q: t.db}
}

// Save inserts e when it was never persisted and updates it otherwise.
// On failure the entity's record fields are left as they were.
func (t *Table[E]) Save(ctx context.Context, q ports.Querier, e E) error {
	rec := e.Base()
	prev := *rec
	now := t.now().UTC()

	var err error
	if rec.IsNew() {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt, rec.UpdatedAt = now, now
		err = t.insert(ctx, q, e)
	} else {
		rec.UpdatedAt = now
		err = t.update(ctx, q, e)
	}

	if err != nil {
		*rec = prev
		return err
	}
	return nil
}

func (t *Table[E]) insert(ctx context.Context, q ports.Querier, e E) error {
	rec := e.Base()
	cols := t.selectColumns()
	args := make([]any, 0, len(cols))
	args = append(args, rec.ID)
	args = append(args, t.mapping.Values(e)...)
	args = append(args, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), formatTimePtr(rec.DeletedAt))

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.mapping.Table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := q.ExecContext(ctx, t.dialect.Rebind(query), args...); err != nil {
		return translate(t.mapping.Table, "insert", err)
	}
	return nil
}

func (t *Table[E]) update(ctx context.Context, q ports.Querier, e E) error {
	rec := e.Base()
	sets := make([]string, 0, len(t.mapping.Columns)+1)
	for _, c := range t.mapping.Columns {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")

	args := append(t.mapping.Values(e), formatTime(rec.UpdatedAt), rec.ID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.mapping.Table, strings.Join(sets, ", "))
	return t.execOne(ctx, q, "update", rec.ID, query, args...)
}

// SoftDelete sets the deleted_at marker of an active row.
func (t *Table[E]) SoftDelete(ctx context.Context, q ports.Querier, e E) error {
	rec := e.Base()
	now := t.now().UTC()
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		t.mapping.Table)
	if err := t.execOne(ctx, q, "soft delete", rec.ID, query, formatTime(now), formatTime(now), rec.ID); err != nil {
		return err
	}
	rec.MarkDeleted(now)
	return nil
}

// Undelete clears the deleted_at marker of a soft-deleted row.
func (t *Table[E]) Undelete(ctx context.Context, q ports.Querier, e E) error {
	rec := e.Base()
	now := t.now().UTC()
	query := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL",
		t.mapping.Table)
	if err := t.execOne(ctx, q, "undelete", rec.ID, query, formatTime(now), rec.ID); err != nil {
		return err
	}
	rec.ClearDeleted(now)
	return nil
}

// DeleteWithinTransaction permanently removes the row inside tx.
func (t *Table[E]) DeleteWithinTransaction(ctx context.Context, tx ports.Tx, e E) error {
	return t.remove(ctx, tx, e)
}

// Delete permanently removes the row outside any transaction.
func (t *Table[E]) Delete(ctx context.Context, e E) error {
	return t.remove(ctx, t.db, e)
}

func (t *Table[E]) remove(ctx context.Context, q ports.Querier, e E) error {
	id := e.Base().ID
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.mapping.Table)
	return t.execOne(ctx, q, "delete", id, query, id)
}

// execOne runs a statement that must affect exactly one row.
func (t *Table[E]) execOne(ctx context.Context, q ports.Querier, op, id, query string, args ...any) error {
	res, err := q.ExecContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return translate(t.mapping.Table, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", t.mapping.Table, op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s %s: %w", t.mapping.Table, op, id, domain.ErrNotFound)
	}
	return nil
}

// selectColumns returns every column in scan order.
func (t *Table[E]) selectColumns() []string {
	cols := make([]string, 0, len(t.mapping.Columns)+4)
	cols = append(cols, "id")
	cols = append(cols, t.mapping.Columns...)
	return append(cols, "created_at", "updated_at", "deleted_at")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (t *Table[E]) scan(row rowScanner) (E, error) {
	e := t.mapping.New()
	rec := e.Base()

	var created, updated string
	var deleted sql.NullString
	dest := make([]any, 0, len(t.mapping.Columns)+4)
	dest = append(dest, &rec.ID)
	dest = append(dest, t.mapping.Fields(e)...)
	dest = append(dest, &created, &updated, &deleted)

	if err := row.Scan(dest...); err != nil {
		var zero E
		return zero, err
	}

	var err error
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return e, err
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return e, err
	}
	if deleted.Valid {
		at, err := parseTime(deleted.String)
		if err != nil {
			return e, err
		}
		rec.DeletedAt = &at
	}
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may use plain RFC 3339.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, errors.Join(fmt.Errorf("parsing timestamp %q", s), err)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
