package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/queue"
	"service-dispatch/internal/service/lifecycle"
)

// OrchestratorConfig stores the retry bounds of the dispatch chain.
type OrchestratorConfig struct {
	// MaxAttempts bounds the search/timeout cycles before the order is
	// cancelled with no_driver_available.
	MaxAttempts int
	// SearchRetryDelay is the wait before retrying a zero-candidate search.
	SearchRetryDelay time.Duration
	// ResponseWindow is how long an offered driver has to accept.
	ResponseWindow time.Duration
	// ClaimRetries bounds how many claim conflicts one search job absorbs
	// before treating the round as zero-candidate.
	ClaimRetries int
}

// Orchestrator is the job-driven state machine running one order's
// driver-search lifecycle. Jobs for the same order are causally chained, so
// the only concurrency it must survive is cross-order claims and redelivered
// jobs.
type Orchestrator struct {
	repo      dispatchtx.Runner
	lifecycle LifecyclePort
	selector  *Selector
	stores    StoreGateway
	queue     queue.Enqueuer
	metrics   *metrics.Dispatch
	cfg       OrchestratorConfig
	logger    logx.Logger
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	repo dispatchtx.Runner,
	lc LifecyclePort,
	selector *Selector,
	storesGw StoreGateway,
	q queue.Enqueuer,
	m *metrics.Dispatch,
	cfg OrchestratorConfig,
	logger logx.Logger,
) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ClaimRetries < 0 {
		cfg.ClaimRetries = 0
	}
	return &Orchestrator{
		repo:      repo,
		lifecycle: lc,
		selector:  selector,
		stores:    storesGw,
		queue:     q,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// searchResult is what one transactional search round produced.
type searchResult struct {
	assignment *domain.Assignment
	driver     *domain.Driver
	// staleActive is set when the order already has an in-flight row; the
	// job is a duplicate and must not assign again.
	staleActive *domain.Assignment
	// terminal is set when the order no longer wants a driver.
	terminal bool
	exclude  []string
}

// HandleSearch processes one driver-search attempt. Transient zero-candidate
// outcomes are explicit control flow (delayed re-enqueue); only true faults
// return an error and reach the queue's own retry.
func (o *Orchestrator) HandleSearch(ctx context.Context, p queue.SearchPayload, attempt int) error {
	o.metrics.SearchesTotal.Inc()

	log := o.logger.With(
		logx.String("order_id", p.OrderID),
		logx.Int("attempt", attempt),
	)

	scope, err := o.resolveScope(ctx, &p, log)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Error("store not found, dropping search", logx.String("store_id", p.StoreID))
			return nil
		}
		return err
	}

	res, err := o.searchOnce(ctx, p, *scope)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Error("order not found, dropping search")
			return nil
		}
		return err
	}

	switch {
	case res.terminal:
		o.metrics.StaleJobsTotal.Inc()
		log.Info("order already terminal, search skipped")
		return nil

	case res.staleActive != nil:
		// Duplicate delivery of a search job that already assigned. Re-arm
		// the response timer: the timeout handler is idempotent, an extra
		// timer is harmless, a missing one strands the row.
		o.metrics.StaleJobsTotal.Inc()
		log.Info("active assignment exists, re-arming timeout",
			logx.String("assignment_id", res.staleActive.ID),
		)
		if res.staleActive.Status != domain.AssignmentAssigned {
			return nil
		}
		return o.enqueueTimeout(ctx, p, *scope, res.staleActive, res.exclude, attempt)

	case res.driver == nil:
		return o.handleNoCandidate(ctx, p, *scope, res.exclude, attempt, log)

	default:
		return o.completeAssignment(ctx, p, *scope, res, attempt, log)
	}
}

// resolveScope resolves the store's zone and location, preferring the copy
// carried in the payload from a previous attempt.
func (o *Orchestrator) resolveScope(ctx context.Context, p *queue.SearchPayload, log logx.Logger) (*SearchScope, error) {
	scope := SearchScope{
		CityID:        p.CityID,
		StoreLocation: p.StoreLocation,
		Exclude:       p.ExcludeDriverIDs,
	}

	st, err := o.stores.GetByID(ctx, p.StoreID)
	if err != nil {
		return nil, err
	}
	scope.ZoneID = st.ZoneID
	if scope.StoreLocation == nil {
		scope.StoreLocation = st.Location
	}
	if scope.ZoneID == "" {
		// degraded but valid: dispatch citywide only
		log.Warn("store has no zone, dispatching citywide",
			logx.String("store_id", p.StoreID),
		)
	}
	return &scope, nil
}

// searchOnce runs one transactional select-claim-record round.
func (o *Orchestrator) searchOnce(ctx context.Context, p queue.SearchPayload, scope SearchScope) (*searchResult, error) {
	res := &searchResult{exclude: scope.Exclude}

	err := o.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		ord, err := tx.GetOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return apperr.ErrNotFound
		}
		if ord.Status.Terminal() {
			res.terminal = true
			return nil
		}

		active, err := tx.GetActiveAssignment(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if active != nil {
			res.staleActive = active
			return nil
		}

		// A lost claim means another order's search took this driver
		// between our read and our write. Exclude and try the next one.
		for try := 0; try <= o.cfg.ClaimRetries; try++ {
			scope.Exclude = res.exclude

			best, err := o.selector.FindBestDriver(ctx, tx, scope)
			if err != nil {
				return err
			}
			if best == nil {
				return nil
			}

			if err := tx.ClaimDriver(ctx, best.ID); err != nil {
				if errors.Is(err, apperr.ErrConflict) {
					o.metrics.ClaimConflictsTotal.Inc()
					res.exclude = append(res.exclude, best.ID)
					continue
				}
				return err
			}

			a := &domain.Assignment{
				ID:         uuid.NewString(),
				OrderID:    p.OrderID,
				DriverID:   best.ID,
				Status:     domain.AssignmentAssigned,
				AssignedAt: o.now(),
			}
			if err := tx.InsertAssignment(ctx, a); err != nil {
				return err
			}
			res.assignment = a
			res.driver = best
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// handleNoCandidate either schedules the next attempt or terminalizes the
// order once the attempt budget is exhausted.
func (o *Orchestrator) handleNoCandidate(
	ctx context.Context,
	p queue.SearchPayload,
	scope SearchScope,
	exclude []string,
	attempt int,
	log logx.Logger,
) error {
	if attempt >= o.cfg.MaxAttempts {
		o.metrics.ExhaustedTotal.Inc()
		log.Warn("dispatch attempts exhausted, cancelling order",
			logx.String("event", "dispatch_exhausted"),
		)
		_, err := o.lifecycle.Cancel(ctx, lifecycle.CancelCommand{
			OrderID: p.OrderID,
			Reason:  domain.ReasonNoDriverAvailable,
			By:      domain.ActorSystem,
			Notes:   "no driver accepted the order",
		})
		if err != nil && !errors.Is(err, apperr.ErrNotFound) && !apperr.IsIllegalTransition(err) {
			return err
		}
		return nil
	}

	log.Info("no candidate found, retrying",
		logx.String("event", "dispatch_search_retry"),
		logx.Duration("delay", o.cfg.SearchRetryDelay),
	)
	next := queue.NewSearchJob(queue.SearchPayload{
		OrderID:          p.OrderID,
		StoreID:          p.StoreID,
		CityID:           p.CityID,
		StoreLocation:    scope.StoreLocation,
		ExcludeDriverIDs: exclude,
	}, attempt+1)
	return o.queue.Enqueue(ctx, next, queue.WithDelay(o.cfg.SearchRetryDelay))
}

// completeAssignment moves the order to driver_assigned and arms the
// response timer. Runs after the assignment transaction committed, so the
// timeout job can never observe an unwritten assignment.
func (o *Orchestrator) completeAssignment(
	ctx context.Context,
	p queue.SearchPayload,
	scope SearchScope,
	res *searchResult,
	attempt int,
	log logx.Logger,
) error {
	if _, err := o.lifecycle.Transition(ctx, lifecycle.TransitionCommand{
		OrderID: p.OrderID,
		To:      domain.StatusDriverAssigned,
		Actor:   domain.ActorSystem,
		Notes:   "driver " + res.driver.ID + " assigned",
	}); err != nil {
		if !apperr.IsIllegalTransition(err) {
			return err
		}
		// The order moved concurrently (e.g. admin cancel). The ledger row
		// still needs its timer so the driver gets freed.
		log.Warn("driver_assigned transition rejected", logx.Any("err", err))
	}

	o.metrics.AssignmentsTotal.Inc()
	log.Info("driver assigned",
		logx.String("event", "driver_assigned"),
		logx.String("driver_id", res.driver.ID),
		logx.String("assignment_id", res.assignment.ID),
		logx.Float64("score", Score(scope.StoreLocation, *res.driver)),
	)

	return o.enqueueTimeout(ctx, p, scope, res.assignment, res.exclude, attempt)
}

func (o *Orchestrator) enqueueTimeout(
	ctx context.Context,
	p queue.SearchPayload,
	scope SearchScope,
	a *domain.Assignment,
	exclude []string,
	attempt int,
) error {
	job := queue.NewTimeoutJob(queue.TimeoutPayload{
		OrderID:          p.OrderID,
		AssignmentID:     a.ID,
		DriverID:         a.DriverID,
		StoreID:          p.StoreID,
		CityID:           p.CityID,
		StoreLocation:    scope.StoreLocation,
		ExcludeDriverIDs: exclude,
	}, attempt)
	return o.queue.Enqueue(ctx, job, queue.WithDelay(o.cfg.ResponseWindow))
}

// HandleTimeout fires when the response window of an assignment elapses.
// Re-checking ledger state (instead of cancelling the timer, which the queue
// cannot do) resolves the accepted/timeout race: an already-resolved row
// makes this a no-op.
func (o *Orchestrator) HandleTimeout(ctx context.Context, p queue.TimeoutPayload, attempt int) error {
	log := o.logger.With(
		logx.String("order_id", p.OrderID),
		logx.String("assignment_id", p.AssignmentID),
		logx.Int("attempt", attempt),
	)

	var resolved bool
	err := o.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.GetAssignment(ctx, p.AssignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.ErrNotFound
		}
		if a.Status != domain.AssignmentAssigned {
			return nil
		}

		reason := domain.RejectionTimeout
		if err := tx.ResolveAssignment(ctx, a.ID, domain.AssignmentRejected, &reason, o.now()); err != nil {
			return err
		}
		if err := tx.ReleaseDriver(ctx, a.DriverID); err != nil {
			return err
		}
		resolved = true
		return nil
	})
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		log.Error("assignment not found, dropping timeout")
		return nil
	case errors.Is(err, apperr.ErrStale):
		// lost the resolve race to an accept landing in parallel
		o.metrics.StaleJobsTotal.Inc()
		log.Info("assignment already resolved, timeout skipped")
		return nil
	case err != nil:
		return err
	}

	if !resolved {
		o.metrics.StaleJobsTotal.Inc()
		log.Info("assignment already resolved, timeout skipped")
		return nil
	}

	o.metrics.TimeoutsTotal.Inc()
	log.Info("driver response timed out",
		logx.String("event", "assignment_timeout"),
		logx.String("driver_id", p.DriverID),
	)

	next := queue.NewSearchJob(queue.SearchPayload{
		OrderID:          p.OrderID,
		StoreID:          p.StoreID,
		CityID:           p.CityID,
		StoreLocation:    p.StoreLocation,
		ExcludeDriverIDs: appendExcluded(p.ExcludeDriverIDs, p.DriverID),
	}, attempt+1)
	return o.queue.Enqueue(ctx, next)
}

// appendExcluded grows the exclusion set, keeping it a strict superset of
// the previous attempt's.
func appendExcluded(exclude []string, driverID string) []string {
	for _, id := range exclude {
		if id == driverID {
			return exclude
		}
	}
	out := make([]string, 0, len(exclude)+1)
	out = append(out, exclude...)
	return append(out, driverID)
}
