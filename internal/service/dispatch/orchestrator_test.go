package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/gateway/stores"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/queue"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/lifecycle"
	testlog "service-dispatch/internal/testutil"
)

const (
	testOrderID = "order-1"
	testStoreID = "store-1"
	testCityID  = "city-1"
)

var testStore = &stores.Store{
	ID:       testStoreID,
	CityID:   testCityID,
	ZoneID:   "zone-1",
	Location: &domain.Point{Lat: 25.0, Lng: 55.0},
}

type orchestratorFixture struct {
	tx        *stubTx
	lifecycle *MockLifecyclePort
	storesGw  *MockStoreGateway
	queue     *recordingQueue
	metrics   *metrics.Dispatch
	orch      *dispatch.Orchestrator
}

func newOrchestratorFixture(t *testing.T, ctrl *gomock.Controller, tx *stubTx) *orchestratorFixture {
	t.Helper()

	f := &orchestratorFixture{
		tx:        tx,
		lifecycle: NewMockLifecyclePort(ctrl),
		storesGw:  NewMockStoreGateway(ctrl),
		queue:     &recordingQueue{},
		metrics:   metrics.NewDispatchUnregistered(),
	}
	logger := testlog.New().Logger()
	f.orch = dispatch.NewOrchestrator(
		stubRunner{tx: tx},
		f.lifecycle,
		dispatch.NewSelector(dispatch.SelectorConfig{CitywideFallback: true}, logger),
		f.storesGw,
		f.queue,
		f.metrics,
		dispatch.OrchestratorConfig{
			MaxAttempts:      5,
			SearchRetryDelay: 30 * time.Second,
			ResponseWindow:   60 * time.Second,
			ClaimRetries:     3,
		},
		logger,
	)
	return f
}

func searchPayload() queue.SearchPayload {
	return queue.SearchPayload{OrderID: testOrderID, StoreID: testStoreID, CityID: testCityID}
}

func pendingDispatchOrder() *domain.Order {
	return &domain.Order{
		ID:      testOrderID,
		StoreID: testStoreID,
		CityID:  testCityID,
		Status:  domain.StatusAccepted,
	}
}

func TestHandleSearch_AssignsBestDriverAndArmsTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var (
		claimed  string
		inserted *domain.Assignment
	)
	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			return pendingDispatchOrder(), nil
		},
		getActiveAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return nil, nil
		},
		findZoneFn: func(context.Context, string, []string, int) ([]domain.Driver, error) {
			return []domain.Driver{
				{ID: "d-far", CurrentLocation: &domain.Point{Lat: 25.2, Lng: 55.2}},
				{ID: "d-near", CurrentLocation: &domain.Point{Lat: 25.01, Lng: 55.01}},
			}, nil
		},
		claimDriverFn: func(_ context.Context, driverID string) error {
			claimed = driverID
			return nil
		},
		insertAssignmentFn: func(_ context.Context, a *domain.Assignment) error {
			inserted = a
			return nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)
	f.lifecycle.EXPECT().
		Transition(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd lifecycle.TransitionCommand) (*domain.Order, error) {
			require.Equal(t, testOrderID, cmd.OrderID)
			require.Equal(t, domain.StatusDriverAssigned, cmd.To)
			require.Equal(t, domain.ActorSystem, cmd.Actor)
			return &domain.Order{ID: testOrderID, Status: domain.StatusDriverAssigned}, nil
		})

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.NoError(t, err)

	require.Equal(t, "d-near", claimed)
	require.NotNil(t, inserted)
	require.Equal(t, "d-near", inserted.DriverID)
	require.Equal(t, domain.AssignmentAssigned, inserted.Status)

	require.Len(t, f.queue.calls, 1)
	timeout := f.queue.calls[0]
	require.Equal(t, queue.KindTimeout, timeout.job.Kind)
	require.Equal(t, 1, timeout.job.Attempt)
	require.Equal(t, inserted.ID, timeout.job.Timeout.AssignmentID)
	require.Equal(t, "d-near", timeout.job.Timeout.DriverID)
	require.Equal(t, 60*time.Second, timeout.opts.Delay)

	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AssignmentsTotal))
}

func TestHandleSearch_NoCandidateRetriesWithDelay(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			return pendingDispatchOrder(), nil
		},
		getActiveAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return nil, nil
		},
		findZoneFn: func(context.Context, string, []string, int) ([]domain.Driver, error) {
			return nil, nil
		},
		findCityFn: func(context.Context, string, []string, int) ([]domain.Driver, error) {
			return nil, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)

	p := searchPayload()
	p.ExcludeDriverIDs = []string{"d-old"}

	err := f.orch.HandleSearch(context.Background(), p, 2)
	require.NoError(t, err)

	require.Len(t, f.queue.calls, 1)
	next := f.queue.calls[0]
	require.Equal(t, queue.KindSearch, next.job.Kind)
	require.Equal(t, 3, next.job.Attempt)
	require.Equal(t, []string{"d-old"}, next.job.Search.ExcludeDriverIDs)
	require.Equal(t, testStore.Location, next.job.Search.StoreLocation)
	require.Equal(t, 30*time.Second, next.opts.Delay)
}

func TestHandleSearch_ExhaustionCancelsOrder(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			return pendingDispatchOrder(), nil
		},
		getActiveAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return nil, nil
		},
		findZoneFn: func(context.Context, string, []string, int) ([]domain.Driver, error) {
			return nil, nil
		},
		findCityFn: func(context.Context, string, []string, int) ([]domain.Driver, error) {
			return nil, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)
	f.lifecycle.EXPECT().
		Cancel(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd lifecycle.CancelCommand) (*domain.Order, error) {
			require.Equal(t, testOrderID, cmd.OrderID)
			require.Equal(t, domain.ReasonNoDriverAvailable, cmd.Reason)
			require.Equal(t, domain.ActorSystem, cmd.By)
			return &domain.Order{ID: testOrderID, Status: domain.StatusCancelled}, nil
		})

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 5)
	require.NoError(t, err)

	require.Empty(t, f.queue.calls, "no further jobs after exhaustion")
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ExhaustedTotal))
}

func TestHandleSearch_ClaimConflictFallsThroughToNextDriver(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var zoneCalls int
	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			return pendingDispatchOrder(), nil
		},
		getActiveAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return nil, nil
		},
		findZoneFn: func(_ context.Context, _ string, exclude []string, _ int) ([]domain.Driver, error) {
			zoneCalls++
			all := []domain.Driver{
				{ID: "d-contested", CurrentLocation: &domain.Point{Lat: 25.01, Lng: 55.01}},
				{ID: "d-second", CurrentLocation: &domain.Point{Lat: 25.05, Lng: 55.05}},
			}
			var out []domain.Driver
			for _, d := range all {
				skip := false
				for _, id := range exclude {
					if d.ID == id {
						skip = true
					}
				}
				if !skip {
					out = append(out, d)
				}
			}
			return out, nil
		},
		claimDriverFn: func(_ context.Context, driverID string) error {
			if driverID == "d-contested" {
				return apperr.ErrConflict
			}
			return nil
		},
		insertAssignmentFn: func(context.Context, *domain.Assignment) error { return nil },
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)
	f.lifecycle.EXPECT().
		Transition(gomock.Any(), gomock.Any()).
		Return(&domain.Order{ID: testOrderID, Status: domain.StatusDriverAssigned}, nil)

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.NoError(t, err)

	require.Equal(t, 2, zoneCalls, "selection reruns after a lost claim")
	require.Len(t, f.queue.calls, 1)
	require.Equal(t, "d-second", f.queue.calls[0].job.Timeout.DriverID)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ClaimConflictsTotal))
}

func TestHandleSearch_TerminalOrderIsStale(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			o := pendingDispatchOrder()
			o.Status = domain.StatusCancelled
			return o, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.NoError(t, err)

	require.Empty(t, f.queue.calls)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StaleJobsTotal))
}

func TestHandleSearch_DuplicateDeliveryReArmsTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	active := &domain.Assignment{
		ID:       "as-1",
		OrderID:  testOrderID,
		DriverID: "d-1",
		Status:   domain.AssignmentAssigned,
	}
	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			return pendingDispatchOrder(), nil
		},
		getActiveAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return active, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.NoError(t, err)

	require.Len(t, f.queue.calls, 1)
	re := f.queue.calls[0]
	require.Equal(t, queue.KindTimeout, re.job.Kind)
	require.Equal(t, "as-1", re.job.Timeout.AssignmentID)
	require.Equal(t, 60*time.Second, re.opts.Delay)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StaleJobsTotal))
}

func TestHandleSearch_AcceptedAssignmentIsStaleNoReArm(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	active := &domain.Assignment{
		ID:       "as-1",
		OrderID:  testOrderID,
		DriverID: "d-1",
		Status:   domain.AssignmentAccepted,
	}
	tx := &stubTx{
		getOrderFn: func(context.Context, string) (*domain.Order, error) {
			return pendingDispatchOrder(), nil
		},
		getActiveAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return active, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(testStore, nil)

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.NoError(t, err)
	require.Empty(t, f.queue.calls)
}

func TestHandleSearch_UnknownStoreDropsJob(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(t, ctrl, &stubTx{})

	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(nil, apperr.ErrNotFound)

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.NoError(t, err)
	require.Empty(t, f.queue.calls)
}

func TestHandleSearch_GatewayFaultReturnsForRetry(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newOrchestratorFixture(t, ctrl, &stubTx{})

	wantErr := errors.New("stores unavailable")
	f.storesGw.EXPECT().GetByID(gomock.Any(), testStoreID).Return(nil, wantErr)

	err := f.orch.HandleSearch(context.Background(), searchPayload(), 1)
	require.ErrorIs(t, err, wantErr)
}

func timeoutPayload() queue.TimeoutPayload {
	return queue.TimeoutPayload{
		OrderID:          testOrderID,
		AssignmentID:     "as-1",
		DriverID:         "d-1",
		StoreID:          testStoreID,
		CityID:           testCityID,
		StoreLocation:    testStore.Location,
		ExcludeDriverIDs: []string{"d-0"},
	}
}

func TestHandleTimeout_RejectsReleasesAndRestartsSearch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var (
		resolvedStatus domain.AssignmentStatus
		resolvedReason *string
		released       string
	)
	tx := &stubTx{
		getAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return &domain.Assignment{
				ID: "as-1", OrderID: testOrderID, DriverID: "d-1",
				Status: domain.AssignmentAssigned,
			}, nil
		},
		resolveAssignmentFn: func(_ context.Context, _ string, status domain.AssignmentStatus, reason *string, _ time.Time) error {
			resolvedStatus = status
			resolvedReason = reason
			return nil
		},
		releaseFn: func(_ context.Context, driverID string) error {
			released = driverID
			return nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	err := f.orch.HandleTimeout(context.Background(), timeoutPayload(), 2)
	require.NoError(t, err)

	require.Equal(t, domain.AssignmentRejected, resolvedStatus)
	require.NotNil(t, resolvedReason)
	require.Equal(t, domain.RejectionTimeout, *resolvedReason)
	require.Equal(t, "d-1", released)

	require.Len(t, f.queue.calls, 1)
	next := f.queue.calls[0]
	require.Equal(t, queue.KindSearch, next.job.Kind)
	require.Equal(t, 3, next.job.Attempt)
	require.ElementsMatch(t, []string{"d-0", "d-1"}, next.job.Search.ExcludeDriverIDs)
	require.Zero(t, next.opts.Delay, "the follow-up search runs immediately")
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TimeoutsTotal))
}

func TestHandleTimeout_AcceptedAssignmentIsNoOp(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := &stubTx{
		getAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return &domain.Assignment{
				ID: "as-1", OrderID: testOrderID, DriverID: "d-1",
				Status: domain.AssignmentAccepted,
			}, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	err := f.orch.HandleTimeout(context.Background(), timeoutPayload(), 1)
	require.NoError(t, err)

	require.Empty(t, f.queue.calls)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StaleJobsTotal))
	require.Zero(t, testutil.ToFloat64(f.metrics.TimeoutsTotal))
}

func TestHandleTimeout_LostResolveRaceIsNoOp(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := &stubTx{
		getAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return &domain.Assignment{
				ID: "as-1", OrderID: testOrderID, DriverID: "d-1",
				Status: domain.AssignmentAssigned,
			}, nil
		},
		resolveAssignmentFn: func(context.Context, string, domain.AssignmentStatus, *string, time.Time) error {
			// an accept committed between our read and our write
			return apperr.ErrStale
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	err := f.orch.HandleTimeout(context.Background(), timeoutPayload(), 1)
	require.NoError(t, err)
	require.Empty(t, f.queue.calls)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StaleJobsTotal))
}

func TestHandleTimeout_MissingAssignmentDropsJob(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := &stubTx{
		getAssignmentFn: func(context.Context, string) (*domain.Assignment, error) {
			return nil, nil
		},
	}
	f := newOrchestratorFixture(t, ctrl, tx)

	err := f.orch.HandleTimeout(context.Background(), timeoutPayload(), 1)
	require.NoError(t, err)
	require.Empty(t, f.queue.calls)
}
