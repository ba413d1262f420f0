package database

import (
	"database/sql"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedTx ends its span on the first Commit or Rollback.
type tracedTx struct {
	*sql.Tx
	span trace.Span
	once sync.Once
}

func (t *tracedTx) Commit() error {
	err := t.Tx.Commit()
	t.finish("commit", err)
	return err
}

func (t *tracedTx) Rollback() error {
	err := t.Tx.Rollback()
	t.finish("rollback", err)
	return err
}

func (t *tracedTx) finish(outcome string, err error) {
	t.once.Do(func() {
		t.span.SetAttributes(attribute.String("db.transaction.outcome", outcome))
		if err != nil {
			t.span.RecordError(err)
			t.span.SetStatus(codes.Error, outcome)
		}
		t.span.End()
	})
}
