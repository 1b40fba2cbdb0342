package handlers

import (
	"context"
	"errors"
	"net/http"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/lifecycle"
)

// OrderHandler handles the admin order surface: lifecycle transitions,
// cancellations and driver assignment.
type OrderHandler struct {
	lifecycle   lifecycleUsecase
	assignments assignmentsUsecase
	logger      logx.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(logger logx.Logger, lc lifecycleUsecase, as assignmentsUsecase) *OrderHandler {
	return &OrderHandler{lifecycle: lc, assignments: as, logger: logger}
}

// Status handles POST /orders/{id}/status.
// @Summary Transition an order
// @Description Moves the order to the requested status through the status machine
// @Tags orders
// @Accept json
// @Produce json
// @Param request body transitionRequest true "Transition payload"
// @Success 200 {object} orderDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 404 {object} ErrorResponse "order not found"
// @Failure 422 {object} ErrorResponse "illegal transition"
// @Router /orders/{id}/status [post]
func (h *OrderHandler) Status(w http.ResponseWriter, r *http.Request) {
	orderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req transitionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	actor := domain.Actor(req.Actor)
	if actor == "" {
		actor = domain.ActorAdmin
	}

	updated, err := h.lifecycle.Transition(r.Context(), lifecycle.TransitionCommand{
		OrderID: orderID,
		To:      domain.OrderStatus(req.Status),
		Actor:   actor,
		ActorID: req.ActorID,
		Notes:   req.Notes,
	})
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, orderToResponse(*updated))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "order not found")
	case apperr.IsIllegalTransition(err):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Cancel handles POST /orders/{id}/cancel.
// @Summary Cancel an order
// @Description Terminalizes the order with a structured reason
// @Tags orders
// @Accept json
// @Produce json
// @Param request body cancelRequest true "Cancel payload"
// @Success 200 {object} orderDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 404 {object} ErrorResponse "order not found"
// @Failure 422 {object} ErrorResponse "order already terminal"
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req cancelRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	actor := domain.Actor(req.Actor)
	if actor == "" {
		actor = domain.ActorAdmin
	}

	updated, err := h.lifecycle.Cancel(r.Context(), lifecycle.CancelCommand{
		OrderID: orderID,
		Reason:  domain.CancelReason(req.Reason),
		By:      actor,
		ActorID: req.ActorID,
		Notes:   req.Notes,
	})
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, orderToResponse(*updated))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "order not found")
	case apperr.IsIllegalTransition(err):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetDriver handles GET /orders/{id}/driver.
// @Summary Get the assigned driver
// @Description Returns the active assignment of the order
// @Tags orders
// @Produce json
// @Success 200 {object} assignmentDTO
// @Failure 404 {object} ErrorResponse "no driver assigned"
// @Router /orders/{id}/driver [get]
func (h *OrderHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	orderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.assignments.GetAssignedDriver(r.Context(), orderID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(*a))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "no driver assigned")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Assign handles POST /orders/{id}/assign.
// @Summary Manually assign a driver
// @Description Claims the driver and appends a ledger row, bypassing scoring
// @Tags orders
// @Accept json
// @Produce json
// @Param request body assignDriverRequest true "Assign payload"
// @Success 200 {object} assignmentDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 404 {object} ErrorResponse "order not found"
// @Failure 409 {object} ErrorResponse "driver unavailable or order already assigned"
// @Router /orders/{id}/assign [post]
func (h *OrderHandler) Assign(w http.ResponseWriter, r *http.Request) {
	h.assign(w, r, h.assignments.Assign)
}

// Reassign handles POST /orders/{id}/reassign.
// @Summary Swap the assigned driver
// @Description Resolves the active assignment and claims the new driver atomically
// @Tags orders
// @Accept json
// @Produce json
// @Param request body assignDriverRequest true "Reassign payload"
// @Success 200 {object} assignmentDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 404 {object} ErrorResponse "order or active assignment not found"
// @Failure 409 {object} ErrorResponse "driver unavailable"
// @Router /orders/{id}/reassign [post]
func (h *OrderHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	h.assign(w, r, h.assignments.Reassign)
}

func (h *OrderHandler) assign(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, orderID, driverID string) (*domain.Assignment, error),
) {
	orderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req assignDriverRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := op(r.Context(), orderID, req.DriverID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(*a))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "order or assignment not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "driver unavailable or order already assigned")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
