package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
)

func newTodoHandler(t *testing.T) (*handlers.TodoHandler, *mockTodoService) {
	t.Helper()
	svc := newMockTodoService(t)
	return handlers.NewTodoHandler(svc, appctx.NewFactory(nil)), svc
}

func todoRequest(t *testing.T, method, target string, body any) (*http.Request, *outcome) {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, jsonBody(t, body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r = withChiParams(r, map[string]string{"id": testTodoID})
	return tracked(r)
}

func findByID(id string, activeOnly bool) action.FindParams {
	return action.FindParams{Where: map[string]any{"id": id}, ActiveOnly: activeOnly}
}

// --- ListTodos ---

func TestListTodos_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("List", mock.Anything, mock.Anything, todo.Filter{}).Return([]*todo.Todo{validTodo()}, nil)

	req, o := todoRequest(t, http.MethodGet, "/api/v1/todos", nil)
	rec := httptest.NewRecorder()
	h.ListTodos(rec, req)

	requireStatus(t, rec, http.StatusOK)
	requireOutcome(t, o, "success")
	resp := decodeJSON[envelope[dto.TodoListResponse]](t, rec)
	assert.Equal(t, 1, resp.Data.Count)
}

func TestListTodos_WithFilters(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("List", mock.Anything, mock.Anything, todo.Filter{
		Status:   todo.StatusPending,
		Category: todo.CategoryWork,
		UserID:   testUserID,
	}).Return([]*todo.Todo{}, nil)

	req, _ := todoRequest(t, http.MethodGet, "/api/v1/todos?status=pending&category=work&user_id="+testUserID, nil)
	rec := httptest.NewRecorder()
	h.ListTodos(rec, req)

	requireStatus(t, rec, http.StatusOK)
	resp := decodeJSON[envelope[dto.TodoListResponse]](t, rec)
	assert.Equal(t, 0, resp.Data.Count)
	assert.NotNil(t, resp.Data.Todos)
}

func TestListTodos_InvalidFilters(t *testing.T) {
	t.Parallel()

	for _, target := range []string{
		"/api/v1/todos?status=bad",
		"/api/v1/todos?category=bad",
	} {
		t.Run(target, func(t *testing.T) {
			t.Parallel()
			h, _ := newTodoHandler(t)

			req, o := todoRequest(t, http.MethodGet, target, nil)
			rec := httptest.NewRecorder()
			h.ListTodos(rec, req)

			requireStatus(t, rec, http.StatusBadRequest)
			requireOutcome(t, o, "")
		})
	}
}

func TestListTodos_QueryErrorRollsBack(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("List", mock.Anything, mock.Anything, todo.Filter{}).
		Return(nil, fmt.Errorf("listing todos: %w", &domain.ValidationError{Fields: map[string]string{"x": "unknown attribute"}}))

	req, o := todoRequest(t, http.MethodGet, "/api/v1/todos", nil)
	rec := httptest.NewRecorder()
	h.ListTodos(rec, req)

	requireStatus(t, rec, http.StatusBadRequest)
	requireOutcome(t, o, "error")
}

// --- CreateTodo / CreateTodos ---

func TestCreateTodo_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(td *todo.Todo) bool {
		return td.Title == "Buy groceries" && td.UserID == testUserID &&
			td.Status == todo.StatusPending && td.Category == todo.CategoryPersonal
	})).Return(okResponse(action.ActionCreate, validTodo()), nil)

	body := dto.CreateTodoRequest{UserID: testUserID, Title: "Buy groceries"}
	req, o := todoRequest(t, http.MethodPost, "/api/v1/todos", body)
	rec := httptest.NewRecorder()
	h.CreateTodo(rec, req)

	requireStatus(t, rec, http.StatusCreated)
	requireOutcome(t, o, "success")
	resp := decodeJSON[envelope[dto.TodoResponse]](t, rec)
	assert.Equal(t, testTodoID, resp.Data.ID)
	assert.Contains(t, resp.Meta, "createMetaData")
}

func TestCreateTodo_MissingUser(t *testing.T) {
	t.Parallel()
	h, _ := newTodoHandler(t)

	req, _ := todoRequest(t, http.MethodPost, "/api/v1/todos", dto.CreateTodoRequest{Title: "Buy groceries"})
	rec := httptest.NewRecorder()
	h.CreateTodo(rec, req)

	requireStatus(t, rec, http.StatusBadRequest)
}

func TestCreateTodos_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	first, second := validTodo(), validTodo()
	second.ID = "b5c4d3e2-2222-4333-8444-a55566667777"
	merged := action.CheckResponses(
		okResponse(action.ActionCreate, first),
		okResponse(action.ActionCreate, second),
	)
	svc.On("CreateBatch", mock.Anything, mock.Anything, mock.MatchedBy(func(todos []*todo.Todo) bool {
		return len(todos) == 2
	})).Return(merged, nil)

	body := dto.BatchCreateTodosRequest{Todos: []dto.CreateTodoRequest{
		{UserID: testUserID, Title: "one"},
		{UserID: testUserID, Title: "two"},
	}}
	req, o := todoRequest(t, http.MethodPost, "/api/v1/todos/batch", body)
	rec := httptest.NewRecorder()
	h.CreateTodos(rec, req)

	requireStatus(t, rec, http.StatusCreated)
	requireOutcome(t, o, "success")
	resp := decodeJSON[envelope[dto.TodoListResponse]](t, rec)
	assert.Equal(t, 2, resp.Data.Count)
}

func TestCreateTodos_PartialFailureRollsBackAll(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	merged := action.CheckResponses(
		okResponse(action.ActionCreate, validTodo()),
		action.Failure(&domain.ValidationError{Fields: map[string]string{"title": domain.MsgRequired}}),
	)
	svc.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).Return(merged, nil)

	body := dto.BatchCreateTodosRequest{Todos: []dto.CreateTodoRequest{
		{UserID: testUserID, Title: "one"},
		{UserID: testUserID, Title: "two"},
	}}
	req, o := todoRequest(t, http.MethodPost, "/api/v1/todos/batch", body)
	rec := httptest.NewRecorder()
	h.CreateTodos(rec, req)

	requireStatus(t, rec, http.StatusBadRequest)
	requireOutcome(t, o, "error")
}

// --- GetTodo ---

func TestGetTodo_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Find", mock.Anything, mock.Anything, findByID(testTodoID, true)).
		Return(okResponse(action.ActionFind, validTodo()), nil)

	req, _ := todoRequest(t, http.MethodGet, "/api/v1/todos/"+testTodoID, nil)
	rec := httptest.NewRecorder()
	h.GetTodo(rec, req)

	requireStatus(t, rec, http.StatusOK)
	resp := decodeJSON[envelope[dto.TodoResponse]](t, rec)
	assert.Equal(t, "Buy groceries", resp.Data.Title)
}

func TestGetTodo_MissingID(t *testing.T) {
	t.Parallel()
	h, _ := newTodoHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/todos/", nil)
	rec := httptest.NewRecorder()
	h.GetTodo(rec, req)

	requireStatus(t, rec, http.StatusBadRequest)
}

// --- UpdateTodo / CompleteTodo ---

func TestUpdateTodo_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Find", mock.Anything, mock.Anything, findByID(testTodoID, true)).
		Return(okResponse(action.ActionFind, validTodo()), nil)
	svc.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(td *todo.Todo) bool {
		return td.Title == "Updated" && td.Status == todo.StatusInProgress
	})).Return(okResponse(action.ActionUpdate, validTodo()), nil)

	title, status := "Updated", string(todo.StatusInProgress)
	req, o := todoRequest(t, http.MethodPatch, "/api/v1/todos/"+testTodoID,
		dto.UpdateTodoRequest{Title: &title, Status: &status})
	rec := httptest.NewRecorder()
	h.UpdateTodo(rec, req)

	requireStatus(t, rec, http.StatusOK)
	requireOutcome(t, o, "success")
}

func TestUpdateTodo_InvalidStatus(t *testing.T) {
	t.Parallel()
	h, _ := newTodoHandler(t)

	status := "bogus"
	req, _ := todoRequest(t, http.MethodPatch, "/api/v1/todos/"+testTodoID, dto.UpdateTodoRequest{Status: &status})
	rec := httptest.NewRecorder()
	h.UpdateTodo(rec, req)

	requireStatus(t, rec, http.StatusBadRequest)
}

func TestCompleteTodo_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	done := validTodo()
	done.Complete()
	svc.On("Complete", mock.Anything, mock.Anything, testTodoID).
		Return(okResponse("complete", done), nil)

	req, o := todoRequest(t, http.MethodPost, "/api/v1/todos/"+testTodoID+"/complete", nil)
	rec := httptest.NewRecorder()
	h.CompleteTodo(rec, req)

	requireStatus(t, rec, http.StatusOK)
	requireOutcome(t, o, "success")
	resp := decodeJSON[envelope[dto.TodoResponse]](t, rec)
	assert.Equal(t, string(todo.StatusDone), resp.Data.Status)
	assert.Equal(t, 100, resp.Data.ProgressPercent)
	assert.Contains(t, resp.Meta, "completeMetaData")
}

func TestCompleteTodo_NotFound(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Complete", mock.Anything, mock.Anything, testTodoID).
		Return(action.Failure(fmt.Errorf("todos: %w", domain.ErrNotFound)), nil)

	req, o := todoRequest(t, http.MethodPost, "/api/v1/todos/"+testTodoID+"/complete", nil)
	rec := httptest.NewRecorder()
	h.CompleteTodo(rec, req)

	requireStatus(t, rec, http.StatusNotFound)
	requireOutcome(t, o, "error")
}

// --- DeleteTodo / UndeleteTodo ---

func TestDeleteTodo_Hard(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Find", mock.Anything, mock.Anything, findByID(testTodoID, false)).
		Return(okResponse(action.ActionFind, validTodo()), nil)
	svc.On("Delete", mock.Anything, mock.Anything, mock.Anything, false).
		Return(okResponse(action.ActionDelete, validTodo()), nil)

	req, o := todoRequest(t, http.MethodDelete, "/api/v1/todos/"+testTodoID+"?soft=false", nil)
	rec := httptest.NewRecorder()
	h.DeleteTodo(rec, req)

	requireStatus(t, rec, http.StatusOK)
	requireOutcome(t, o, "success")
}

func TestDeleteTodo_InvalidSoftFlag(t *testing.T) {
	t.Parallel()
	h, _ := newTodoHandler(t)

	req, _ := todoRequest(t, http.MethodDelete, "/api/v1/todos/"+testTodoID+"?soft=perhaps", nil)
	rec := httptest.NewRecorder()
	h.DeleteTodo(rec, req)

	requireStatus(t, rec, http.StatusBadRequest)
}

func TestUndeleteTodo_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Find", mock.Anything, mock.Anything, findByID(testTodoID, false)).
		Return(okResponse(action.ActionFind, validTodo()), nil)
	svc.On("Undelete", mock.Anything, mock.Anything, mock.Anything).
		Return(okResponse(action.ActionUndelete, validTodo()), nil)

	req, o := todoRequest(t, http.MethodPost, "/api/v1/todos/"+testTodoID+"/undelete", nil)
	rec := httptest.NewRecorder()
	h.UndeleteTodo(rec, req)

	requireStatus(t, rec, http.StatusOK)
	requireOutcome(t, o, "success")
}

// --- UserProgress ---

func TestUserProgress_Success(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Progress", mock.Anything, mock.Anything, testUserID).Return(40, nil)

	req, o := todoRequest(t, http.MethodGet, "/api/v1/users/"+testUserID+"/progress", nil)
	req = withChiParams(req, map[string]string{"id": testUserID})
	rec := httptest.NewRecorder()
	h.UserProgress(rec, req)

	requireStatus(t, rec, http.StatusOK)
	requireOutcome(t, o, "success")
	resp := decodeJSON[envelope[dto.ProgressResponse]](t, rec)
	assert.Equal(t, dto.ProgressResponse{UserID: testUserID, ProgressPercent: 40}, resp.Data)
}

func TestUserProgress_ListFailureRollsBack(t *testing.T) {
	t.Parallel()
	h, svc := newTodoHandler(t)

	svc.On("Progress", mock.Anything, mock.Anything, testUserID).
		Return(0, &domain.PersistenceError{Op: "todos.query", Err: fmt.Errorf("disk I/O error")})

	req, o := todoRequest(t, http.MethodGet, "/api/v1/users/"+testUserID+"/progress", nil)
	req = withChiParams(req, map[string]string{"id": testUserID})
	rec := httptest.NewRecorder()
	h.UserProgress(rec, req)

	requireStatus(t, rec, http.StatusInternalServerError)
	requireOutcome(t, o, "error")
}
