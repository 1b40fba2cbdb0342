package handlers

import (
	"errors"
	"net/http"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/logx"
)

// AssignmentHandler receives driver responses to offers.
type AssignmentHandler struct {
	assignments assignmentsUsecase
	logger      logx.Logger
}

// NewAssignmentHandler creates an AssignmentHandler.
func NewAssignmentHandler(logger logx.Logger, as assignmentsUsecase) *AssignmentHandler {
	return &AssignmentHandler{assignments: as, logger: logger}
}

// Respond handles POST /assignments/{id}/respond.
// @Summary Record a driver response
// @Description Accepts or declines an in-flight assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param request body respondRequest true "Respond payload"
// @Success 200 {object} assignmentDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 404 {object} ErrorResponse "assignment not found"
// @Failure 409 {object} ErrorResponse "assignment already resolved"
// @Router /assignments/{id}/respond [post]
func (h *AssignmentHandler) Respond(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req respondRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := h.assignments.Respond(r.Context(), assignmentID, req.Accept)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(*a))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "assignment not found")
	case errors.Is(err, apperr.ErrStale):
		writeError(h.logger, w, r, http.StatusConflict, "assignment already resolved")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
