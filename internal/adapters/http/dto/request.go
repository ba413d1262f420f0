package dto

import (
	"fmt"
	"strings"

	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
)

const (
	msgRequired     = "is required"
	msgMustNotEmpty = "must not be empty"

	// maxBatchSize bounds POST /todos/batch and the starter todos of a signup.
	maxBatchSize = 50
)

// CreateUserRequest is the JSON body of POST /users.
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate checks that required fields are present. Address syntax is left
// to the entity.
func (r *CreateUserRequest) Validate() error {
	fields := make(map[string]string)
	r.collect(fields)
	return fieldsError(fields)
}

func (r *CreateUserRequest) collect(fields map[string]string) {
	if strings.TrimSpace(r.Email) == "" {
		fields["email"] = msgRequired
	}
	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = msgRequired
	}
}

// ToUser maps the request to a new entity.
func (r *CreateUserRequest) ToUser() *user.User {
	return &user.User{Email: r.Email, Name: r.Name}
}

// UpdateUserRequest is the JSON body of PATCH /users/{id}.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

// Validate rejects fields that are present but blank.
func (r *UpdateUserRequest) Validate() error {
	fields := make(map[string]string)

	if r.Email != nil && strings.TrimSpace(*r.Email) == "" {
		fields["email"] = msgMustNotEmpty
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fields["name"] = msgMustNotEmpty
	}

	return fieldsError(fields)
}

// Apply copies the present fields onto u.
func (r *UpdateUserRequest) Apply(u *user.User) {
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.Name != nil {
		u.Name = *r.Name
	}
}

// SignupRequest is the JSON body of POST /signup.
type SignupRequest struct {
	CreateUserRequest
	StarterTodos []string `json:"starter_todos,omitempty"`
}

// Validate checks the account fields and the starter titles.
func (r *SignupRequest) Validate() error {
	fields := make(map[string]string)
	r.CreateUserRequest.collect(fields)

	if len(r.StarterTodos) > maxBatchSize {
		fields["starter_todos"] = fmt.Sprintf("at most %d items", maxBatchSize)
	}
	for i, title := range r.StarterTodos {
		if strings.TrimSpace(title) == "" {
			fields[fmt.Sprintf("starter_todos[%d]", i)] = msgMustNotEmpty
		}
	}

	return fieldsError(fields)
}

// CreateTodoRequest is the JSON body of POST /todos and one item of
// POST /todos/batch.
type CreateTodoRequest struct {
	UserID          string `json:"user_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Status          string `json:"status,omitempty"`
	Category        string `json:"category,omitempty"`
	ProgressPercent int    `json:"progress_percent,omitempty"`
}

// Validate checks that required fields are present and optional fields have
// valid values. Returns a *domain.ValidationError if any checks fail.
func (r *CreateTodoRequest) Validate() error {
	fields := make(map[string]string)
	r.collect("", fields)
	return fieldsError(fields)
}

func (r *CreateTodoRequest) collect(prefix string, fields map[string]string) {
	if strings.TrimSpace(r.UserID) == "" {
		fields[prefix+"user_id"] = msgRequired
	}
	if strings.TrimSpace(r.Title) == "" {
		fields[prefix+"title"] = msgRequired
	}
	if strings.TrimSpace(r.Description) == "" {
		fields[prefix+"description"] = msgRequired
	}
	if r.Status != "" && !todo.Status(r.Status).IsValid() {
		fields[prefix+"status"] = todo.OneOfMessage(todo.Statuses())
	}
	if r.Category != "" && !todo.Category(r.Category).IsValid() {
		fields[prefix+"category"] = todo.OneOfMessage(todo.Categories())
	}
	if r.ProgressPercent < 0 || r.ProgressPercent > 100 {
		fields[prefix+"progress_percent"] = fmt.Sprintf("must be 0-100, got %d", r.ProgressPercent)
	}
}

// ToTodo maps the request to a new entity, defaulting status to pending
// and category to personal.
func (r *CreateTodoRequest) ToTodo() *todo.Todo {
	t := &todo.Todo{
		UserID:          r.UserID,
		Title:           r.Title,
		Description:     r.Description,
		Status:          todo.StatusPending,
		Category:        todo.CategoryPersonal,
		ProgressPercent: r.ProgressPercent,
	}
	if r.Status != "" {
		t.Status = todo.Status(r.Status)
	}
	if r.Category != "" {
		t.Category = todo.Category(r.Category)
	}
	return t
}

// BatchCreateTodosRequest is the JSON body of POST /todos/batch.
type BatchCreateTodosRequest struct {
	Todos []CreateTodoRequest `json:"todos"`
}

// Validate checks every item; field keys are prefixed with the item index.
func (r *BatchCreateTodosRequest) Validate() error {
	fields := make(map[string]string)

	switch n := len(r.Todos); {
	case n == 0:
		fields["todos"] = msgRequired
	case n > maxBatchSize:
		fields["todos"] = fmt.Sprintf("at most %d items", maxBatchSize)
	}
	for i := range r.Todos {
		r.Todos[i].collect(fmt.Sprintf("todos[%d].", i), fields)
	}

	return fieldsError(fields)
}

// ToTodos maps every item to a new entity.
func (r *BatchCreateTodosRequest) ToTodos() []*todo.Todo {
	out := make([]*todo.Todo, len(r.Todos))
	for i := range r.Todos {
		out[i] = r.Todos[i].ToTodo()
	}
	return out
}

// UpdateTodoRequest represents the JSON body for updating an existing TODO item.
// All fields are optional; nil means "do not change this field.".
type UpdateTodoRequest struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Status          *string `json:"status,omitempty"`
	Category        *string `json:"category,omitempty"`
	ProgressPercent *int    `json:"progress_percent,omitempty"`
}

// Validate checks that any provided fields have valid values.
// Returns a *domain.ValidationError if any checks fail.
func (r *UpdateTodoRequest) Validate() error {
	fields := make(map[string]string)

	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		fields["title"] = msgMustNotEmpty
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) == "" {
		fields["description"] = msgMustNotEmpty
	}
	if r.Status != nil && !todo.Status(*r.Status).IsValid() {
		fields["status"] = todo.OneOfMessage(todo.Statuses())
	}
	if r.Category != nil && !todo.Category(*r.Category).IsValid() {
		fields["category"] = todo.OneOfMessage(todo.Categories())
	}
	if r.ProgressPercent != nil && (*r.ProgressPercent < 0 || *r.ProgressPercent > 100) {
		fields["progress_percent"] = fmt.Sprintf("must be 0-100, got %d", *r.ProgressPercent)
	}

	return fieldsError(fields)
}

// Apply copies the present fields onto t.
func (r *UpdateTodoRequest) Apply(t *todo.Todo) {
	if r.Title != nil {
		t.Title = *r.Title
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Status != nil {
		t.Status = todo.Status(*r.Status)
	}
	if r.Category != nil {
		t.Category = todo.Category(*r.Category)
	}
	if r.ProgressPercent != nil {
		t.ProgressPercent = *r.ProgressPercent
	}
}

func fieldsError(fields map[string]string) error {
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
