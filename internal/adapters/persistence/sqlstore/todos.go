package sqlstore

import (
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// TodosTable is the todos table name.
const TodosTable = "todos"

var _ ports.Model[*todo.Todo] = (*Table[*todo.Todo])(nil)

// NewTodoModel maps todo.Todo onto the todos table.
func NewTodoModel(db ports.Querier, dialect Dialect, opts ...TableOption) *Table[*todo.Todo] {
	return NewTable(db, dialect, Mapping[*todo.Todo]{
		Table:   TodosTable,
		Columns: []string{"user_id", "title", "description", "status", "category", "progress_percent"},
		New:     func() *todo.Todo { return &todo.Todo{} },
		Values: func(t *todo.Todo) []any {
			return []any{t.UserID, t.Title, t.Description, string(t.Status), string(t.Category), t.ProgressPercent}
		},
		Fields: func(t *todo.Todo) []any {
			return []any{
				&t.UserID, &t.Title, &t.Description,
				(*string)(&t.Status), (*string)(&t.Category), &t.ProgressPercent,
			}
		},
	}, opts...)
}
