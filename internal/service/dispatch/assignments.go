package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/queue"
	"service-dispatch/internal/service/lifecycle"
)

// Assignments exposes the ledger to admin callers and receives driver
// responses. It bypasses scoring: the driver is chosen by the operator or by
// the responding driver, not by the selector.
type Assignments struct {
	repo      dispatchtx.Runner
	ledger    LedgerReader
	lifecycle LifecyclePort
	queue     queue.Enqueuer
	logger    logx.Logger
	now       func() time.Time
}

// NewAssignments creates an Assignments service.
func NewAssignments(repo dispatchtx.Runner, ledger LedgerReader, lc LifecyclePort, q queue.Enqueuer, logger logx.Logger) *Assignments {
	return &Assignments{
		repo:      repo,
		ledger:    ledger,
		lifecycle: lc,
		queue:     q,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetAssignedDriver returns the driver currently attached to the order, or
// ErrNotFound when the order has no in-flight or accepted assignment.
func (s *Assignments) GetAssignedDriver(ctx context.Context, orderID string) (*domain.Assignment, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.ErrInvalid
	}

	ord, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, apperr.ErrNotFound
	}
	a, err := s.ledger.GetActiveAssignment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.ErrNotFound
	}
	return a, nil
}

// Assign force-assigns a specific driver to an order. Refused when the order
// is terminal or already has an in-flight assignment; use Reassign for that.
// No response timer is armed: a manual assignment is treated as final unless
// an operator reassigns it.
func (s *Assignments) Assign(ctx context.Context, orderID, driverID string) (*domain.Assignment, error) {
	orderID = strings.TrimSpace(orderID)
	driverID = strings.TrimSpace(driverID)
	if orderID == "" || driverID == "" {
		return nil, apperr.ErrInvalid
	}

	var created *domain.Assignment
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		ord, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return apperr.ErrNotFound
		}
		if ord.Status.Terminal() {
			return apperr.ErrConflict
		}

		active, err := tx.GetActiveAssignment(ctx, orderID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperr.ErrConflict
		}

		if err := tx.ClaimDriver(ctx, driverID); err != nil {
			return err
		}
		a := &domain.Assignment{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			DriverID:   driverID,
			Status:     domain.AssignmentAssigned,
			AssignedAt: s.now(),
		}
		if err := tx.InsertAssignment(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.Transition(ctx, lifecycle.TransitionCommand{
		OrderID: orderID,
		To:      domain.StatusDriverAssigned,
		Actor:   domain.ActorAdmin,
		Notes:   "driver " + driverID + " assigned manually",
	}); err != nil && !apperr.IsIllegalTransition(err) {
		return created, err
	}

	s.logger.Info("driver assigned manually",
		logx.String("event", "driver_assigned_manual"),
		logx.String("order_id", orderID),
		logx.String("driver_id", driverID),
	)
	return created, nil
}

// Reassign swaps the order's current driver for a new one in a single
// transaction: the previous row is marked reassigned and its driver freed,
// the new driver claimed and a fresh row appended.
func (s *Assignments) Reassign(ctx context.Context, orderID, driverID string) (*domain.Assignment, error) {
	orderID = strings.TrimSpace(orderID)
	driverID = strings.TrimSpace(driverID)
	if orderID == "" || driverID == "" {
		return nil, apperr.ErrInvalid
	}

	var created *domain.Assignment
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		ord, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return apperr.ErrNotFound
		}
		if ord.Status.Terminal() {
			return apperr.ErrConflict
		}

		prev, err := tx.GetActiveAssignment(ctx, orderID)
		if err != nil {
			return err
		}
		if prev == nil {
			return apperr.ErrNotFound
		}
		if prev.DriverID == driverID {
			return apperr.ErrConflict
		}

		if err := tx.ReassignAssignment(ctx, prev.ID, nil, s.now()); err != nil {
			return err
		}
		if err := tx.ReleaseDriver(ctx, prev.DriverID); err != nil {
			return err
		}
		if err := tx.ClaimDriver(ctx, driverID); err != nil {
			return err
		}
		a := &domain.Assignment{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			DriverID:   driverID,
			Status:     domain.AssignmentAssigned,
			AssignedAt: s.now(),
		}
		if err := tx.InsertAssignment(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("driver reassigned",
		logx.String("event", "driver_reassigned"),
		logx.String("order_id", orderID),
		logx.String("driver_id", driverID),
	)
	return created, nil
}

// Respond records a driver's answer to an in-flight offer. Accept fixes the
// row and keeps the driver claimed; decline frees the driver and restarts
// the search excluding them. A response landing after the row was resolved
// (e.g. by a timeout) fails with ErrStale.
func (s *Assignments) Respond(ctx context.Context, assignmentID string, accept bool) (*domain.Assignment, error) {
	assignmentID = strings.TrimSpace(assignmentID)
	if assignmentID == "" {
		return nil, apperr.ErrInvalid
	}

	var (
		result  *domain.Assignment
		restart bool
		order   *domain.Order
	)
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.ErrNotFound
		}
		if a.Status != domain.AssignmentAssigned {
			return apperr.ErrStale
		}

		now := s.now()
		if accept {
			if err := tx.ResolveAssignment(ctx, a.ID, domain.AssignmentAccepted, nil, now); err != nil {
				return err
			}
			a.Status = domain.AssignmentAccepted
		} else {
			reason := domain.RejectionDeclined
			if err := tx.ResolveAssignment(ctx, a.ID, domain.AssignmentRejected, &reason, now); err != nil {
				return err
			}
			if err := tx.ReleaseDriver(ctx, a.DriverID); err != nil {
				return err
			}
			a.Status = domain.AssignmentRejected
			a.RejectionReason = &reason

			ord, err := tx.GetOrder(ctx, a.OrderID)
			if err != nil {
				return err
			}
			order = ord
			restart = ord != nil && !ord.Status.Terminal()
		}
		a.RespondedAt = &now
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("driver responded",
		logx.String("event", "assignment_response"),
		logx.String("assignment_id", result.ID),
		logx.String("order_id", result.OrderID),
		logx.Bool("accepted", accept),
	)

	if restart {
		job := queue.NewSearchJob(queue.SearchPayload{
			OrderID:          result.OrderID,
			StoreID:          order.StoreID,
			CityID:           order.CityID,
			ExcludeDriverIDs: []string{result.DriverID},
		}, 1)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Error("enqueue search after decline failed",
				logx.String("order_id", result.OrderID),
				logx.Any("err", err),
			)
			return result, err
		}
	} else if !accept {
		s.logger.Info("decline on finished order, search not restarted",
			logx.String("order_id", result.OrderID),
		)
	}
	return result, nil
}
