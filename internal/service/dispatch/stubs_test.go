package dispatch_test

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/queue"
)

// stubTx implements dispatchtx.Repository with per-method hooks. Methods a
// test does not wire panic so unexpected calls surface immediately.
type stubTx struct {
	getOrderFn            func(ctx context.Context, orderID string) (*domain.Order, error)
	updateOrderStatusFn   func(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error
	insertStatusHistoryFn func(ctx context.Context, h *domain.StatusChange) error
	setCancellationFn     func(ctx context.Context, orderID string, c domain.Cancellation) error

	findZoneFn    func(ctx context.Context, zoneID string, exclude []string, limit int) ([]domain.Driver, error)
	findCityFn    func(ctx context.Context, cityID string, exclude []string, limit int) ([]domain.Driver, error)
	claimDriverFn func(ctx context.Context, driverID string) error
	releaseFn     func(ctx context.Context, driverID string) error

	insertAssignmentFn    func(ctx context.Context, a *domain.Assignment) error
	getAssignmentFn       func(ctx context.Context, id string) (*domain.Assignment, error)
	getActiveAssignmentFn func(ctx context.Context, orderID string) (*domain.Assignment, error)
	resolveAssignmentFn   func(ctx context.Context, id string, status domain.AssignmentStatus, reason *string, at time.Time) error
	reassignAssignmentFn  func(ctx context.Context, id string, reason *string, at time.Time) error
}

func (s *stubTx) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if s.getOrderFn == nil {
		panic("GetOrder not wired")
	}
	return s.getOrderFn(ctx, orderID)
}

func (s *stubTx) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error {
	if s.updateOrderStatusFn == nil {
		panic("UpdateOrderStatus not wired")
	}
	return s.updateOrderStatusFn(ctx, orderID, status, at)
}

func (s *stubTx) InsertStatusHistory(ctx context.Context, h *domain.StatusChange) error {
	if s.insertStatusHistoryFn == nil {
		panic("InsertStatusHistory not wired")
	}
	return s.insertStatusHistoryFn(ctx, h)
}

func (s *stubTx) SetCancellation(ctx context.Context, orderID string, c domain.Cancellation) error {
	if s.setCancellationFn == nil {
		panic("SetCancellation not wired")
	}
	return s.setCancellationFn(ctx, orderID, c)
}

func (s *stubTx) FindZoneCandidates(ctx context.Context, zoneID string, exclude []string, limit int) ([]domain.Driver, error) {
	if s.findZoneFn == nil {
		panic("FindZoneCandidates not wired")
	}
	return s.findZoneFn(ctx, zoneID, exclude, limit)
}

func (s *stubTx) FindCityCandidates(ctx context.Context, cityID string, exclude []string, limit int) ([]domain.Driver, error) {
	if s.findCityFn == nil {
		panic("FindCityCandidates not wired")
	}
	return s.findCityFn(ctx, cityID, exclude, limit)
}

func (s *stubTx) ClaimDriver(ctx context.Context, driverID string) error {
	if s.claimDriverFn == nil {
		panic("ClaimDriver not wired")
	}
	return s.claimDriverFn(ctx, driverID)
}

func (s *stubTx) ReleaseDriver(ctx context.Context, driverID string) error {
	if s.releaseFn == nil {
		panic("ReleaseDriver not wired")
	}
	return s.releaseFn(ctx, driverID)
}

func (s *stubTx) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	if s.insertAssignmentFn == nil {
		panic("InsertAssignment not wired")
	}
	return s.insertAssignmentFn(ctx, a)
}

func (s *stubTx) GetAssignment(ctx context.Context, id string) (*domain.Assignment, error) {
	if s.getAssignmentFn == nil {
		panic("GetAssignment not wired")
	}
	return s.getAssignmentFn(ctx, id)
}

func (s *stubTx) GetActiveAssignment(ctx context.Context, orderID string) (*domain.Assignment, error) {
	if s.getActiveAssignmentFn == nil {
		panic("GetActiveAssignment not wired")
	}
	return s.getActiveAssignmentFn(ctx, orderID)
}

func (s *stubTx) ResolveAssignment(ctx context.Context, id string, status domain.AssignmentStatus, reason *string, at time.Time) error {
	if s.resolveAssignmentFn == nil {
		panic("ResolveAssignment not wired")
	}
	return s.resolveAssignmentFn(ctx, id, status, reason, at)
}

func (s *stubTx) ReassignAssignment(ctx context.Context, id string, reason *string, at time.Time) error {
	if s.reassignAssignmentFn == nil {
		panic("ReassignAssignment not wired")
	}
	return s.reassignAssignmentFn(ctx, id, reason, at)
}

// stubRunner runs the transaction body against the given stubTx.
type stubRunner struct {
	tx *stubTx
}

func (s stubRunner) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return fn(s.tx)
}

// enqueued is one recorded Enqueue call.
type enqueued struct {
	job  queue.Job
	opts queue.Options
}

// recordingQueue captures enqueued jobs for assertions.
type recordingQueue struct {
	calls []enqueued
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, job queue.Job, opts ...queue.Option) error {
	if q.err != nil {
		return q.err
	}
	q.calls = append(q.calls, enqueued{job: job, opts: queue.ApplyOptions(opts...)})
	return nil
}
