package appctx

import (
	"context"

	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// Factory creates service contexts that share a database and options.
// Callers that own a unit of work (HTTP handlers, SignupService) hold a
// Factory instead of the database itself.
type Factory struct {
	db   ports.TxBeginner
	opts []Option
}

// NewFactory returns a Factory for db.
func NewFactory(db ports.TxBeginner, opts ...Option) *Factory {
	return &Factory{db: db, opts: opts}
}

// New returns a ServiceContext in the Created state.
func (f *Factory) New() *ServiceContext {
	return New(f.db, f.opts...)
}

type contextKey struct{}

// WithServiceContext returns a copy of ctx carrying sc.
func WithServiceContext(ctx context.Context, sc *ServiceContext) context.Context {
	return context.WithValue(ctx, contextKey{}, sc)
}

// FromContext returns the ServiceContext stored in ctx, or nil.
func FromContext(ctx context.Context) *ServiceContext {
	sc, _ := ctx.Value(contextKey{}).(*ServiceContext)
	return sc
}
