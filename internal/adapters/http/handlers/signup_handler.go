package handlers

import (
	"net/http"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-action-service/internal/app"
)

// SignupHandler handles account opening.
type SignupHandler struct {
	svc SignupService
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(svc SignupService) *SignupHandler {
	return &SignupHandler{svc: svc}
}

// Signup handles POST /api/v1/signup. The account and its starter todos
// are created in one transaction owned by the signup service.
func (h *SignupHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.svc.Signup(r.Context(), req.ToUser(), req.StarterTodos)
	render(w, r, http.StatusCreated, resp, err, func(res *app.SignupResult) any {
		return dto.ToSignupResponse(res.User, res.Todos)
	})
}
