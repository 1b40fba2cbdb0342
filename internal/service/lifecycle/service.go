// Package lifecycle owns the canonical order status machine. It is the only
// writer of order statuses; dispatch, admin handlers and store actions all
// transition orders through it.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/queue"
)

// Service - the order status machine.
type Service struct {
	repo             dispatchtx.Runner
	queue            queue.Enqueuer
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a lifecycle Service.
func NewService(repo dispatchtx.Runner, q queue.Enqueuer, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		queue:            q,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// TransitionCommand describes one requested status transition.
type TransitionCommand struct {
	OrderID string
	To      domain.OrderStatus
	Actor   domain.Actor
	ActorID string
	Notes   string
}

// CancelCommand describes a terminal cancellation.
type CancelCommand struct {
	OrderID string
	Reason  domain.CancelReason
	By      domain.Actor
	ActorID string
	Notes   string
}

// Transition moves an order to the next status, stamps the status-specific
// timestamp and appends a history record. Illegal from->to pairs fail with
// IllegalTransitionError. Reaching accepted enqueues the first driver search.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*domain.Order, error) {
	orderID, err := validateOrderID(cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !cmd.To.Valid() {
		return nil, apperr.ErrInvalid
	}
	if cmd.To == domain.StatusCancelled {
		// cancellations carry a reason and go through Cancel
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated domain.Order
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		ord, err := s.applyTransition(ctx, tx, orderID, cmd.To, cmd.Actor, cmd.ActorID, cmd.Notes)
		if err != nil {
			return err
		}
		updated = *ord
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		logx.String("event", "order_status_changed"),
		logx.String("order_id", updated.ID),
		logx.String("to_status", string(updated.Status)),
		logx.String("actor", string(cmd.Actor)),
	)

	if updated.Status == domain.StatusAccepted {
		if err := s.enqueueFirstSearch(ctx, updated); err != nil {
			// the transition is already committed; the caller sees the
			// failure and the order can be re-dispatched manually
			return &updated, err
		}
	}
	return &updated, nil
}

// Cancel terminalizes an order with a structured reason. Invoked by admin
// callers and by the dispatch orchestrator with reason no_driver_available.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*domain.Order, error) {
	orderID, err := validateOrderID(cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if cmd.Reason == "" {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated domain.Order
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		ord, err := s.applyTransition(ctx, tx, orderID, domain.StatusCancelled, cmd.By, cmd.ActorID, cmd.Notes)
		if err != nil {
			return err
		}
		if err := tx.SetCancellation(ctx, orderID, domain.Cancellation{
			Reason: cmd.Reason,
			By:     cmd.By,
			Notes:  cmd.Notes,
			At:     s.now(),
		}); err != nil {
			return err
		}
		updated = *ord
		reason := cmd.Reason
		updated.CancelReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		logx.String("event", "order_cancelled"),
		logx.String("order_id", updated.ID),
		logx.String("reason", string(cmd.Reason)),
		logx.String("cancelled_by", string(cmd.By)),
	)
	return &updated, nil
}

// applyTransition loads the order, checks the legality table, writes the new
// status and appends the history record. Runs inside the caller's transaction.
func (s *Service) applyTransition(
	ctx context.Context,
	tx dispatchtx.Repository,
	orderID string,
	to domain.OrderStatus,
	actor domain.Actor,
	actorID, notes string,
) (*domain.Order, error) {
	ord, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, apperr.ErrNotFound
	}
	if !domain.CanTransition(ord.Status, to) {
		return nil, &apperr.IllegalTransitionError{From: string(ord.Status), To: string(to)}
	}

	now := s.now()
	if err := tx.UpdateOrderStatus(ctx, orderID, to, now); err != nil {
		return nil, err
	}
	if err := tx.InsertStatusHistory(ctx, &domain.StatusChange{
		OrderID: orderID,
		From:    ord.Status,
		To:      to,
		Actor:   actor,
		ActorID: actorID,
		Notes:   notes,
		At:      now,
	}); err != nil {
		return nil, err
	}

	updated := *ord
	updated.Status = to
	updated.UpdatedAt = now
	return &updated, nil
}

// enqueueFirstSearch starts the dispatch chain for a freshly accepted order.
func (s *Service) enqueueFirstSearch(ctx context.Context, ord domain.Order) error {
	job := queue.NewSearchJob(queue.SearchPayload{
		OrderID: ord.ID,
		StoreID: ord.StoreID,
		CityID:  ord.CityID,
	}, 1)

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("enqueue first dispatch search failed",
			logx.String("order_id", ord.ID),
			logx.Any("err", err),
		)
		return err
	}

	s.logger.Info("dispatch search enqueued",
		logx.String("event", "dispatch_search_enqueued"),
		logx.String("order_id", ord.ID),
		logx.Int("attempt", 1),
	)
	return nil
}

func validateOrderID(raw string) (string, error) {
	orderID := strings.TrimSpace(raw)
	if orderID == "" {
		return "", apperr.ErrInvalid
	}
	return orderID, nil
}
