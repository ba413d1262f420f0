package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// condition is one equality (or IS NULL) predicate.
type condition struct {
	column string
	value  any
}

// Query is the immutable query builder of a Table. Builder errors (an
// unknown column, an unsupported value) are deferred to the terminal call.
type Query[E domain.Entity] struct {
	table  *Table[E]
	q      ports.Querier
	conds  []condition
	active bool
	err    error
}

func (qb *Query[E]) clone() *Query[E] {
	c := *qb
	c.conds = slices.Clone(qb.conds)
	return &c
}

// Where adds equality predicates. Keys are applied in sorted order so the
// generated SQL is stable; a nil value matches NULL.
func (qb *Query[E]) Where(attrs map[string]any) ports.Query[E] {
	c := qb.clone()
	if c.err != nil {
		return c
	}

	unknown := make(map[string]string)
	for _, col := range slices.Sorted(maps.Keys(attrs)) {
		if !qb.table.allowed[col] {
			unknown[col] = "unknown attribute"
			continue
		}
		v, err := toDriverValue(attrs[col])
		if err != nil {
			unknown[col] = err.Error()
			continue
		}
		c.conds = append(c.conds, condition{column: col, value: v})
	}
	if len(unknown) > 0 {
		c.err = &domain.ValidationError{Fields: unknown}
	}
	return c
}

// Active excludes soft-deleted rows.
func (qb *Query[E]) Active() ports.Query[E] {
	c := qb.clone()
	c.active = true
	return c
}

// Transacting runs the query on q instead of the pool.
func (qb *Query[E]) Transacting(q ports.Querier) ports.Query[E] {
	c := qb.clone()
	if q != nil {
		c.q = q
	}
	return c
}

// First returns the first matching row in (created_at, id) order.
func (qb *Query[E]) First(ctx context.Context) (E, bool, error) {
	var zero E
	if qb.err != nil {
		return zero, false, qb.err
	}

	query, args := qb.build(" LIMIT 1")
	e, err := qb.table.scan(qb.q.QueryRowContext(ctx, query, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return zero, false, nil
	case err != nil:
		return zero, false, translate(qb.table.Name(), "select", err)
	}
	return e, true, nil
}

// FirstOrFail is First with a missing row reported as domain.ErrNotFound.
func (qb *Query[E]) FirstOrFail(ctx context.Context) (E, error) {
	e, found, err := qb.First(ctx)
	if err != nil {
		return e, err
	}
	if !found {
		return e, fmt.Errorf("%s: %w", qb.table.Name(), domain.ErrNotFound)
	}
	return e, nil
}

// All returns every matching row in (created_at, id) order.
func (qb *Query[E]) All(ctx context.Context) ([]E, error) {
	if qb.err != nil {
		return nil, qb.err
	}

	query, args := qb.build("")
	rows, err := qb.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(qb.table.Name(), "select", err)
	}
	defer func() { _ = rows.Close() }()

	var out []E
	for rows.Next() {
		e, err := qb.table.scan(rows)
		if err != nil {
			return nil, translate(qb.table.Name(), "scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(qb.table.Name(), "select", err)
	}
	return out, nil
}

func (qb *Query[E]) build(suffix string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(qb.table.selectColumns(), ", "), qb.table.Name())

	preds := make([]string, 0, len(qb.conds)+1)
	args := make([]any, 0, len(qb.conds))
	for _, c := range qb.conds {
		if c.value == nil {
			preds = append(preds, c.column+" IS NULL")
			continue
		}
		preds = append(preds, c.column+" = ?")
		args = append(args, c.value)
	}
	if qb.active {
		preds = append(preds, "deleted_at IS NULL")
	}
	if len(preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(preds, " AND "))
	}
	b.WriteString(" ORDER BY created_at, id")
	b.WriteString(suffix)

	return qb.table.dialect.Rebind(b.String()), args
}

// toDriverValue normalises named types (todo.Status and friends) to their
// underlying driver value and times to the stored text form.
func toDriverValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return formatTime(x), nil
	case *time.Time:
		return formatTimePtr(x), nil
	}
	dv, err := driver.DefaultParameterConverter.ConvertValue(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported value: %w", err)
	}
	return dv, nil
}
