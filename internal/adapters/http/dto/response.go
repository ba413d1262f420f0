// Package dto provides HTTP request/response data transfer objects and
// RFC 9457 Problem Details error responses for the inbound HTTP adapter layer.
package dto

import (
	"time"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
)

// Envelope is the body of every successful API response: the rendered
// result plus the action metadata collected while producing it.
type Envelope struct {
	Data any              `json:"data"`
	Meta *action.MetaData `json:"meta,omitempty"`
}

// NewEnvelope pairs rendered data with the metadata of resp.
func NewEnvelope(data any, resp *action.Response) Envelope {
	env := Envelope{Data: data}
	if resp != nil && resp.MetaData.Len() > 0 {
		env.Meta = resp.MetaData
	}
	return env
}

// RecordFields are the identity and timestamp fields shared by every entity.
type RecordFields struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"deleted_at,omitempty"`
}

func toRecordFields(r *domain.Record) RecordFields {
	out := RecordFields{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
	if r.DeletedAt != nil {
		at := r.DeletedAt.Format(time.RFC3339)
		out.DeletedAt = &at
	}
	return out
}

// UserResponse represents a single account in HTTP responses.
type UserResponse struct {
	RecordFields
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ToUserResponse converts a domain User to an HTTP response DTO.
func ToUserResponse(u *user.User) UserResponse {
	return UserResponse{
		RecordFields: toRecordFields(&u.Record),
		Email:        u.Email,
		Name:         u.Name,
	}
}

// TodoResponse represents a single TODO item in HTTP responses.
type TodoResponse struct {
	RecordFields
	UserID          string `json:"user_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	Category        string `json:"category"`
	ProgressPercent int    `json:"progress_percent"`
}

// ToTodoResponse converts a domain Todo entity to an HTTP response DTO.
func ToTodoResponse(t *todo.Todo) TodoResponse {
	return TodoResponse{
		RecordFields:    toRecordFields(&t.Record),
		UserID:          t.UserID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status.String(),
		Category:        t.Category.String(),
		ProgressPercent: t.ProgressPercent,
	}
}

// TodoListResponse represents a list of todos in HTTP responses.
type TodoListResponse struct {
	Todos []TodoResponse `json:"todos"`
	Count int            `json:"count"`
}

// ToTodoListResponse converts todos to a list response. Nil entries, such
// as the slots of failed batch items, are skipped.
func ToTodoListResponse(todos []*todo.Todo) TodoListResponse {
	items := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		if t != nil {
			items = append(items, ToTodoResponse(t))
		}
	}
	return TodoListResponse{Todos: items, Count: len(items)}
}

// ProgressResponse is the data of GET /users/{id}/progress.
type ProgressResponse struct {
	UserID          string `json:"user_id"`
	ProgressPercent int    `json:"progress_percent"`
}

// SignupResponse is the data of POST /signup.
type SignupResponse struct {
	User  UserResponse   `json:"user"`
	Todos []TodoResponse `json:"todos"`
}

// ToSignupResponse converts an opened account and its starter todos.
func ToSignupResponse(u *user.User, todos []*todo.Todo) SignupResponse {
	return SignupResponse{
		User:  ToUserResponse(u),
		Todos: ToTodoListResponse(todos).Todos,
	}
}
