// Package todo defines the task entity managed by the todo service.
package todo

import (
	"fmt"
	"strings"

	"github.com/jsamuelsen11/go-action-service/internal/domain"
)

// Todo represents a task item owned by a user, with progress tracking.
type Todo struct {
	domain.Record
	UserID          string
	Title           string
	Description     string
	Status          Status
	Category        Category
	ProgressPercent int
}

// Validate checks business rules for the Todo entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (t *Todo) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(t.UserID) == "" {
		fields["user_id"] = domain.MsgRequired
	}
	if strings.TrimSpace(t.Title) == "" {
		fields["title"] = domain.MsgRequired
	}
	if strings.TrimSpace(t.Description) == "" {
		fields["description"] = domain.MsgRequired
	}
	if !t.Status.IsValid() {
		fields["status"] = OneOfMessage(Statuses())
	}
	if !t.Category.IsValid() {
		fields["category"] = OneOfMessage(Categories())
	}
	if t.ProgressPercent < 0 || t.ProgressPercent > 100 {
		fields["progress_percent"] = fmt.Sprintf("must be 0-100, got %d", t.ProgressPercent)
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Complete marks the todo as done at full progress.
func (t *Todo) Complete() {
	t.Status = StatusDone
	t.ProgressPercent = 100
}
