package handlers

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/lifecycle"
)

type lifecycleUsecase interface {
	Transition(ctx context.Context, cmd lifecycle.TransitionCommand) (*domain.Order, error)
	Cancel(ctx context.Context, cmd lifecycle.CancelCommand) (*domain.Order, error)
}

// NewLifecycleUsecase wires the lifecycle Service into a lifecycleUsecase.
func NewLifecycleUsecase(svc *lifecycle.Service) lifecycleUsecase {
	return svc
}

type assignmentsUsecase interface {
	GetAssignedDriver(ctx context.Context, orderID string) (*domain.Assignment, error)
	Assign(ctx context.Context, orderID, driverID string) (*domain.Assignment, error)
	Reassign(ctx context.Context, orderID, driverID string) (*domain.Assignment, error)
	Respond(ctx context.Context, assignmentID string, accept bool) (*domain.Assignment, error)
}

// NewAssignmentsUsecase wires the dispatch Assignments service into an
// assignmentsUsecase.
func NewAssignmentsUsecase(svc *dispatch.Assignments) assignmentsUsecase {
	return svc
}
