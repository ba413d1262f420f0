// Package handlers provides HTTP request handlers for the service's API
// endpoints. Every mutating handler owns one service context: it
// initializes it, runs the actions, commits on a clean envelope and rolls
// back otherwise, then renders the envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
)

// unitOfWork runs the actions of one request inside an active context.
type unitOfWork func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error)

// serviceContext returns the context installed by the AppContext
// middleware, or a new one from contexts when the handler is mounted
// without it.
func serviceContext(r *http.Request, contexts *appctx.Factory) *appctx.ServiceContext {
	if sc := appctx.FromContext(r.Context()); sc != nil && sc.State() == appctx.StateCreated {
		return sc
	}
	return contexts.New()
}

// runInContext initializes sc, runs work and finalizes sc: Success when the
// envelope is clean, Fail otherwise. A commit failure replaces the
// envelope's error. The returned error is set only for failures that have
// no envelope to render.
func runInContext(ctx context.Context, sc *appctx.ServiceContext, work unitOfWork) (*action.Response, error) {
	if err := sc.Init(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}

	resp, err := work(ctx, sc)
	if err != nil {
		if ferr := sc.Fail(ctx); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return nil, err
	}

	if resp.Failed() {
		if ferr := sc.Fail(ctx); ferr != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "rolling back service context",
				logging.ServiceContextID(sc.ID()),
				slog.Any("error", ferr),
			)
		}
		return resp, nil
	}

	if serr := sc.Success(ctx); serr != nil {
		return &action.Response{Err: serr, MetaData: resp.MetaData}, nil
	}
	return resp, nil
}

// render writes the outcome of runInContext. Failed envelopes become
// problem details carrying the envelope metadata; clean envelopes are
// rendered with view and wrapped in a dto.Envelope.
func render[T any](w http.ResponseWriter, r *http.Request, status int, resp *action.Response, err error, view func(T) any) {
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	if resp.Failed() {
		dto.WriteErrorResponseWithMeta(w, r, resp.Err, resp.MetaData)
		return
	}
	data, ok := action.DataAs[T](resp)
	if !ok {
		dto.WriteErrorResponseWithMeta(w, r, fmt.Errorf("unexpected response data %T", resp.Data), resp.MetaData)
		return
	}
	writeJSON(w, status, dto.NewEnvelope(view(data), resp))
}

// pathID extracts a non-empty record id path parameter.
func pathID(r *http.Request, param string) (string, error) {
	id := chi.URLParam(r, param)
	if id == "" {
		return "", &domain.ValidationError{
			Fields: map[string]string{param: domain.MsgRequired},
		}
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &domain.ValidationError{
			Fields: map[string]string{name: "must be true or false"},
		}
	}
	return v, nil
}

// parseTodoFilter reads the status, category and user_id query parameters.
func parseTodoFilter(r *http.Request) (todo.Filter, error) {
	q := r.URL.Query()
	f := todo.Filter{
		Status:   todo.Status(q.Get("status")),
		Category: todo.Category(q.Get("category")),
		UserID:   q.Get("user_id"),
	}

	fields := make(map[string]string)
	if f.Status != "" && !f.Status.IsValid() {
		fields["status"] = todo.OneOfMessage(todo.Statuses())
	}
	if f.Category != "" && !f.Category.IsValid() {
		fields["category"] = todo.OneOfMessage(todo.Categories())
	}
	if len(fields) > 0 {
		return todo.Filter{}, &domain.ValidationError{Fields: fields}
	}
	return f, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// maxJSONBodyBytes is the maximum allowed size for a JSON request body (1 MB).
const maxJSONBodyBytes = 1 << 20

// decodeJSONBody decodes the request body as JSON into dst. The body is
// limited to maxJSONBodyBytes to prevent resource exhaustion. On failure,
// it writes a 400 error response and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		dto.WriteErrorResponse(w, r, &domain.ValidationError{
			Fields: map[string]string{"body": "invalid JSON"},
		})
		return false
	}
	return true
}

// validatable is implemented by request DTOs that support validation.
type validatable interface {
	Validate() error
}

// decodeAndValidate decodes the JSON request body into dst and validates it.
// On decode or validation failure it writes an error response and returns false.
func decodeAndValidate[T validatable](w http.ResponseWriter, r *http.Request, dst T) bool {
	if !decodeJSONBody(w, r, dst) {
		return false
	}
	if err := dst.Validate(); err != nil {
		dto.WriteErrorResponse(w, r, err)
		return false
	}
	return true
}
