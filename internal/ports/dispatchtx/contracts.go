package dispatchtx

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
)

// Repository is the transactional surface the dispatch engine mutates state
// through. Every ledger transition is paired with its driver-availability
// flip inside one transaction.
type Repository interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error
	InsertStatusHistory(ctx context.Context, h *domain.StatusChange) error
	SetCancellation(ctx context.Context, orderID string, c domain.Cancellation) error

	FindZoneCandidates(ctx context.Context, zoneID string, exclude []string, limit int) ([]domain.Driver, error)
	FindCityCandidates(ctx context.Context, cityID string, exclude []string, limit int) ([]domain.Driver, error)
	ClaimDriver(ctx context.Context, driverID string) error
	ReleaseDriver(ctx context.Context, driverID string) error

	InsertAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignment(ctx context.Context, id string) (*domain.Assignment, error)
	GetActiveAssignment(ctx context.Context, orderID string) (*domain.Assignment, error)
	ResolveAssignment(ctx context.Context, id string, status domain.AssignmentStatus, reason *string, at time.Time) error
	ReassignAssignment(ctx context.Context, id string, reason *string, at time.Time) error
}

// Runner is a transaction runner.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
