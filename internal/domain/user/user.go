// Package user defines the account entity managed by the user service.
package user

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jsamuelsen11/go-action-service/internal/domain"
)

// maxNameLength bounds the display name in runes.
const maxNameLength = 100

// User represents a registered account. Accounts are soft-deleted so that
// their todos stay attributable.
type User struct {
	domain.Record
	Email string
	Name  string
}

// Validate checks business rules for the User entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (u *User) Validate() error {
	fields := make(map[string]string)

	switch email := strings.TrimSpace(u.Email); {
	case email == "":
		fields["email"] = domain.MsgRequired
	case !isEmail(email):
		fields["email"] = domain.MsgInvalidEmail
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		fields["name"] = domain.MsgRequired
	} else if utf8.RuneCountInString(name) > maxNameLength {
		fields["name"] = "must be at most 100 characters"
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isEmail accepts bare addresses only; display-name forms such as
// "Ann <ann@example.com>" are rejected.
func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
