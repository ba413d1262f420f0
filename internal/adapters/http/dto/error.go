package dto

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
)

// ErrorResponse represents an RFC 9457 Problem Details response. Code and
// Meta are extension members: Code names the failure kind and Meta carries
// the action metadata of the failed envelope.
type ErrorResponse struct {
	Type     string        `json:"type"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Code     string        `json:"code"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
	Meta     any           `json:"meta,omitempty"`
}

// ErrorDetail represents a single field-level validation error within
// an ErrorResponse.
type ErrorDetail struct {
	Location string `json:"location"`
	Message  string `json:"message"`
	Value    any    `json:"value,omitempty"`
}

// Failure kinds reported in ErrorResponse.Code.
const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeUnavailable = "unavailable"
	CodePersistence = "persistence"
	CodeInternal    = "internal"
)

// internalDetail replaces the message of server-side failures so driver and
// SQL text never reach the client. The full error is logged instead.
const internalDetail = "the request could not be completed"

// NewErrorResponse creates an RFC 9457 ErrorResponse from a domain error.
// The request is used to populate the instance field with the request URI.
//
// err may be an action.Errors aggregate. Its status is that of the first
// client-side failure it holds, and the field errors of every
// ValidationError inside it are reported together.
func NewErrorResponse(r *http.Request, err error) ErrorResponse {
	status, code := classify(err)

	resp := ErrorResponse{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Code:     code,
		Detail:   err.Error(),
		Instance: r.RequestURI,
	}
	if status >= http.StatusInternalServerError && code != CodeUnavailable {
		resp.Detail = internalDetail
	}

	if fields := collectFields(err); len(fields) > 0 {
		resp.Errors = validationFieldsToDetails(fields)
	}

	return resp
}

// WriteErrorResponse writes an RFC 9457 error response for the given domain
// error. It sets the Content-Type to application/problem+json, writes the
// appropriate HTTP status code, and marshals the error body as JSON.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorResponseWithMeta(w, r, err, nil)
}

// WriteErrorResponseWithMeta is WriteErrorResponse with the action metadata
// of a failed envelope attached as the "meta" extension member.
func WriteErrorResponseWithMeta(w http.ResponseWriter, r *http.Request, err error, meta *action.MetaData) {
	resp := NewErrorResponse(r, err)
	if meta != nil && meta.Len() > 0 {
		resp.Meta = meta
	}

	logger := logging.FromContext(r.Context())
	if resp.Status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			logging.Operation("dto.WriteErrorResponse"),
			slog.String("code", resp.Code),
			slog.Any("error", err),
		)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(resp.Status)

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logger.ErrorContext(r.Context(), "failed to encode error response",
			slog.Any("error", encErr),
		)
	}
}

// classify maps domain sentinel errors to an HTTP status and failure code.
// Client-side kinds are checked first so an aggregate holding both a
// validation failure and a persistence failure reports the validation one.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, CodePersistence
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// collectFields gathers the fields of every ValidationError in err's tree.
// When two errors report the same field the first message wins.
func collectFields(err error) map[string]string {
	var fields map[string]string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if verr, ok := e.(*domain.ValidationError); ok {
			if fields == nil {
				fields = make(map[string]string, len(verr.Fields))
			}
			for k, v := range verr.Fields {
				if _, seen := fields[k]; !seen {
					fields[k] = v
				}
			}
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return fields
}

// validationFieldsToDetails converts domain validation fields to sorted
// ErrorDetail entries.
func validationFieldsToDetails(fields map[string]string) []ErrorDetail {
	details := make([]ErrorDetail, 0, len(fields))
	for field, msg := range fields {
		details = append(details, ErrorDetail{
			Location: "body." + field,
			Message:  msg,
		})
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Location < details[j].Location
	})
	return details
}
