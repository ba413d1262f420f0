package sqlstore

import (
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// UsersTable is the users table name.
const UsersTable = "users"

var (
	_ ports.Model[*user.User]       = (*Table[*user.User])(nil)
	_ ports.SoftDeleter[*user.User] = (*Table[*user.User])(nil)
	_ ports.Undeleter[*user.User]   = (*Table[*user.User])(nil)
	_ ports.TxDeleter[*user.User]   = (*Table[*user.User])(nil)
	_ ports.Deleter[*user.User]     = (*Table[*user.User])(nil)
)

// NewUserModel maps user.User onto the users table.
func NewUserModel(db ports.Querier, dialect Dialect, opts ...TableOption) *Table[*user.User] {
	return NewTable(db, dialect, Mapping[*user.User]{
		Table:   UsersTable,
		Columns: []string{"email", "name"},
		New:     func() *user.User { return &user.User{} },
		Values: func(u *user.User) []any {
			return []any{u.Email, u.Name}
		},
		Fields: func(u *user.User) []any {
			return []any{&u.Email, &u.Name}
		},
	}, opts...)
}
