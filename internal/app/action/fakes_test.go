package action_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type widget struct {
	domain.Record
	Name string
}

func (w *widget) Validate() error {
	if w.Name == "" {
		return &domain.ValidationError{Fields: map[string]string{"name": domain.MsgRequired}}
	}
	return nil
}

type fakeTx struct {
	commits   atomic.Int32
	rollbacks atomic.Int32
}

func (*fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (*fakeTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) { return nil, nil }
func (*fakeTx) QueryRowContext(context.Context, string, ...any) *sql.Row        { return nil }
func (tx *fakeTx) Commit() error                                                { tx.commits.Add(1); return nil }
func (tx *fakeTx) Rollback() error                                              { tx.rollbacks.Add(1); return nil }

type fakeDB struct{ tx *fakeTx }

func (db fakeDB) BeginTx(context.Context) (ports.Tx, error) { return db.tx, nil }

// memStore is an in-memory widget table. It records the calls it receives
// and can be told to fail the next write.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]widget
	nextID  int
	calls   []string
	failErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]widget)}
}

func (s *memStore) record(call string) error {
	s.calls = append(s.calls, call)
	if s.failErr != nil {
		return s.failErr
	}
	return nil
}

func (s *memStore) callList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// baseModel implements only ports.Model.
type baseModel struct {
	name  string
	store *memStore
}

func (m baseModel) Name() string { return m.name }

func (m baseModel) Save(_ context.Context, q ports.Querier, w *widget) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if q == nil {
		return errors.New("save outside transaction")
	}
	if err := s.record("save"); err != nil {
		return err
	}
	now := time.Now().UTC()
	if w.IsNew() {
		if w.ID == "" {
			s.nextID++
			w.ID = fmt.Sprintf("w%d", s.nextID)
		}
		w.CreatedAt = now
	} else if _, ok := s.rows[w.ID]; !ok {
		return fmt.Errorf("widget %s: %w", w.ID, domain.ErrNotFound)
	}
	w.UpdatedAt = now
	s.rows[w.ID] = *w
	return nil
}

func (m baseModel) Query() ports.Query[*widget] {
	return memQuery{store: m.store}
}

// fullModel adds soft delete, undelete and transactional delete.
type fullModel struct{ baseModel }

func (m fullModel) SoftDelete(_ context.Context, _ ports.Querier, w *widget) error {
	return m.mutate("soft_delete", w, func(row *widget) { row.MarkDeleted(time.Now().UTC()) })
}

func (m fullModel) Undelete(_ context.Context, _ ports.Querier, w *widget) error {
	return m.mutate("undelete", w, func(row *widget) { row.ClearDeleted(time.Now().UTC()) })
}

func (m fullModel) DeleteWithinTransaction(_ context.Context, _ ports.Tx, w *widget) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("delete_tx"); err != nil {
		return err
	}
	delete(s.rows, w.ID)
	return nil
}

func (m fullModel) mutate(call string, w *widget, fn func(*widget)) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(call); err != nil {
		return err
	}
	row, ok := s.rows[w.ID]
	if !ok {
		return fmt.Errorf("widget %s: %w", w.ID, domain.ErrNotFound)
	}
	fn(&row)
	s.rows[w.ID] = row
	*w = row
	return nil
}

// plainDeleteModel only offers the non-transactional delete fallback.
type plainDeleteModel struct{ baseModel }

func (m plainDeleteModel) Delete(_ context.Context, w *widget) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("delete"); err != nil {
		return err
	}
	delete(s.rows, w.ID)
	return nil
}

type memQuery struct {
	store  *memStore
	where  map[string]any
	active bool
	tx     ports.Querier
}

func (q memQuery) Where(attrs map[string]any) ports.Query[*widget] {
	q.where = attrs
	return q
}

func (q memQuery) Active() ports.Query[*widget] {
	q.active = true
	return q
}

func (q memQuery) Transacting(tx ports.Querier) ports.Query[*widget] {
	q.tx = tx
	return q
}

func (q memQuery) All(context.Context) ([]*widget, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	var out []*widget
	for _, row := range q.store.rows {
		if q.active && row.IsDeleted() {
			continue
		}
		if id, ok := q.where["id"]; ok && row.ID != id {
			continue
		}
		if name, ok := q.where["name"]; ok && row.Name != name {
			continue
		}
		w := row
		out = append(out, &w)
	}
	return out, nil
}

func (q memQuery) First(ctx context.Context) (*widget, bool, error) {
	all, err := q.All(ctx)
	if err != nil || len(all) == 0 {
		return nil, false, err
	}
	return all[0], true, nil
}

func (q memQuery) FirstOrFail(ctx context.Context) (*widget, error) {
	w, ok, err := q.First(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("widget: %w", domain.ErrNotFound)
	}
	return w, nil
}

func activeContext() (*appctx.ServiceContext, *fakeTx) {
	tx := &fakeTx{}
	sc := appctx.New(fakeDB{tx: tx})
	if err := sc.Init(context.Background()); err != nil {
		panic(err)
	}
	return sc, tx
}
