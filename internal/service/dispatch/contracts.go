//go:generate mockgen -source=contracts.go -destination=dispatch_mocks_test.go -package=dispatch_test

package dispatch

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/gateway/stores"
	"service-dispatch/internal/service/lifecycle"
)

// LifecyclePort abstracts the subset of the order status machine the dispatch
// engine drives.
type LifecyclePort interface {
	Transition(ctx context.Context, cmd lifecycle.TransitionCommand) (*domain.Order, error)
	Cancel(ctx context.Context, cmd lifecycle.CancelCommand) (*domain.Order, error)
}

// StoreGateway resolves a store's zone and location.
type StoreGateway interface {
	GetByID(ctx context.Context, id string) (*stores.Store, error)
}

// LedgerReader reads assignment state outside a transaction.
type LedgerReader interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetAssignment(ctx context.Context, id string) (*domain.Assignment, error)
	GetActiveAssignment(ctx context.Context, orderID string) (*domain.Assignment, error)
}
