package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DispatchRepo is the Postgres store behind the dispatch engine: orders,
// drivers and the assignment ledger.
type DispatchRepo struct {
	db *pgxpool.Pool
}

// NewDispatchRepo creates a new DispatchRepo.
func NewDispatchRepo(db *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DispatchRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// roll back on panic before re-raising
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				panic(rbErr)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetOrder - read an order outside a transaction.
func (r *DispatchRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return getOrder(ctx, r.db, orderID)
}

// GetActiveAssignment - read the in-flight assignment for an order outside a transaction.
func (r *DispatchRepo) GetActiveAssignment(ctx context.Context, orderID string) (*domain.Assignment, error) {
	return getActiveAssignment(ctx, r.db, orderID)
}

// GetAssignment - read an assignment by id outside a transaction.
func (r *DispatchRepo) GetAssignment(ctx context.Context, id string) (*domain.Assignment, error) {
	return getAssignment(ctx, r.db, id)
}

// TxRepo is the transactional view of DispatchRepo.
type TxRepo struct {
	tx pgx.Tx
}

var _ dispatchtx.Repository = (*TxRepo)(nil)

// statusTimestampColumn maps lifecycle statuses to their dedicated timestamp
// column. Statuses absent here stamp nothing beyond updated_at.
var statusTimestampColumn = map[domain.OrderStatus]string{
	domain.StatusAccepted:       "accepted_at",
	domain.StatusDriverAssigned: "driver_assigned_at",
	domain.StatusPickedUp:       "picked_up_at",
	domain.StatusDelivered:      "delivered_at",
	domain.StatusCancelled:      "cancelled_at",
}

// GetOrder - get an order by ID.
func (r *TxRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return getOrder(ctx, r.tx, orderID)
}

func getOrder(ctx context.Context, q querier, orderID string) (*domain.Order, error) {
	row := q.QueryRow(ctx, `
        SELECT id, city_id, store_id, status, cancel_reason, created_at, updated_at
        FROM orders
        WHERE id = $1
    `, orderID)

	var (
		o      domain.Order
		reason *string
	)
	if err := row.Scan(&o.ID, &o.CityID, &o.StoreID, &o.Status, &reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %q: %w", orderID, err)
	}
	if reason != nil {
		cr := domain.CancelReason(*reason)
		o.CancelReason = &cr
	}
	return &o, nil
}

// UpdateOrderStatus - write the new status plus its status-specific timestamp.
func (r *TxRepo) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error {
	var (
		ct  pgconn.CommandTag
		err error
	)
	if col, ok := statusTimestampColumn[status]; ok {
		// col comes from a fixed map, never from input
		q := fmt.Sprintf(`UPDATE orders SET status = $2, %s = $3, updated_at = now() WHERE id = $1`, col)
		ct, err = r.tx.Exec(ctx, q, orderID, string(status), at)
	} else {
		ct, err = r.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, string(status))
	}
	if err != nil {
		return fmt.Errorf("update order %q status: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update order %q status: %w", orderID, apperr.ErrNotFound)
	}
	return nil
}

// InsertStatusHistory - append an immutable status history record.
func (r *TxRepo) InsertStatusHistory(ctx context.Context, h *domain.StatusChange) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO order_status_history (order_id, from_status, to_status, actor, actor_id, notes, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
    `, h.OrderID, string(h.From), string(h.To), string(h.Actor), h.ActorID, h.Notes, h.At)
	if err != nil {
		return fmt.Errorf("insert status history for order %q: %w", h.OrderID, err)
	}
	return nil
}

// SetCancellation - record the terminal cancellation details of an order.
func (r *TxRepo) SetCancellation(ctx context.Context, orderID string, c domain.Cancellation) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE orders
        SET cancel_reason = $2, cancelled_by = $3, cancellation_notes = NULLIF($4, ''), cancelled_at = $5
        WHERE id = $1
    `, orderID, string(c.Reason), string(c.By), c.Notes, c.At)
	if err != nil {
		return fmt.Errorf("set cancellation for order %q: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set cancellation for order %q: %w", orderID, apperr.ErrNotFound)
	}
	return nil
}

const driverColumns = `
    id, city_id, COALESCE(zone_id, ''), is_online, is_available, is_active,
    lat, lng, rating, total_deliveries, updated_at`

// FindZoneCandidates - available drivers in a zone, excluding the given ids.
func (r *TxRepo) FindZoneCandidates(ctx context.Context, zoneID string, exclude []string, limit int) ([]domain.Driver, error) {
	if exclude == nil {
		exclude = []string{} // nil encodes as NULL and poisons ANY()
	}
	rows, err := r.tx.Query(ctx, `
        SELECT `+driverColumns+`
        FROM drivers
        WHERE zone_id = $1
          AND is_online AND is_available AND is_active
          AND NOT (id = ANY($2))
        ORDER BY id
        LIMIT $3
    `, zoneID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("find zone %q candidates: %w", zoneID, err)
	}
	return scanDrivers(rows)
}

// FindCityCandidates - available drivers citywide, excluding the given ids.
func (r *TxRepo) FindCityCandidates(ctx context.Context, cityID string, exclude []string, limit int) ([]domain.Driver, error) {
	if exclude == nil {
		exclude = []string{}
	}
	rows, err := r.tx.Query(ctx, `
        SELECT `+driverColumns+`
        FROM drivers
        WHERE city_id = $1
          AND is_online AND is_available AND is_active
          AND NOT (id = ANY($2))
        ORDER BY id
        LIMIT $3
    `, cityID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("find city %q candidates: %w", cityID, err)
	}
	return scanDrivers(rows)
}

func scanDrivers(rows pgx.Rows) ([]domain.Driver, error) {
	defer rows.Close()

	var drivers []domain.Driver
	for rows.Next() {
		var (
			d        domain.Driver
			lat, lng *float64
		)
		if err := rows.Scan(
			&d.ID, &d.CityID, &d.ZoneID, &d.IsOnline, &d.IsAvailable, &d.IsActive,
			&lat, &lng, &d.Rating, &d.TotalDeliveries, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		if lat != nil && lng != nil {
			d.CurrentLocation = &domain.Point{Lat: *lat, Lng: *lng}
		}
		drivers = append(drivers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drivers: %w", err)
	}
	return drivers, nil
}

// ClaimDriver flips is_available to false with a single conditional update.
// A driver claimed by a concurrent search loses the condition and the caller
// gets ErrConflict instead of a silent double-assignment.
func (r *TxRepo) ClaimDriver(ctx context.Context, driverID string) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE drivers
        SET is_available = FALSE, updated_at = now()
        WHERE id = $1 AND is_available AND is_online AND is_active
    `, driverID)
	if err != nil {
		return fmt.Errorf("claim driver %q: %w", driverID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("claim driver %q: %w", driverID, apperr.ErrConflict)
	}
	return nil
}

// ReleaseDriver flips is_available back to true.
func (r *TxRepo) ReleaseDriver(ctx context.Context, driverID string) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE drivers
        SET is_available = TRUE, updated_at = now()
        WHERE id = $1
    `, driverID)
	if err != nil {
		return fmt.Errorf("release driver %q: %w", driverID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("release driver %q: %w", driverID, apperr.ErrNotFound)
	}
	return nil
}

// InsertAssignment - append a new ledger row.
func (r *TxRepo) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO assignments (id, order_id, driver_id, status, rejection_reason, assigned_at, responded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, a.ID, a.OrderID, a.DriverID, string(a.Status), a.RejectionReason, a.AssignedAt, a.RespondedAt)
	if err != nil {
		return fmt.Errorf("insert assignment for order %q: %w", a.OrderID, err)
	}
	return nil
}

// GetAssignment - get a ledger row by ID.
func (r *TxRepo) GetAssignment(ctx context.Context, id string) (*domain.Assignment, error) {
	return getAssignment(ctx, r.tx, id)
}

func getAssignment(ctx context.Context, q querier, id string) (*domain.Assignment, error) {
	row := q.QueryRow(ctx, `
        SELECT id, order_id, driver_id, status, rejection_reason, assigned_at, responded_at
        FROM assignments
        WHERE id = $1
    `, id)
	return scanAssignment(row, id)
}

// GetActiveAssignment returns the most recent ledger row whose status is not
// terminal-rejected, i.e. the assignment currently in flight (or accepted).
func (r *TxRepo) GetActiveAssignment(ctx context.Context, orderID string) (*domain.Assignment, error) {
	return getActiveAssignment(ctx, r.tx, orderID)
}

func getActiveAssignment(ctx context.Context, q querier, orderID string) (*domain.Assignment, error) {
	row := q.QueryRow(ctx, `
        SELECT id, order_id, driver_id, status, rejection_reason, assigned_at, responded_at
        FROM assignments
        WHERE order_id = $1 AND status NOT IN ('rejected', 'reassigned')
        ORDER BY assigned_at DESC
        LIMIT 1
    `, orderID)
	return scanAssignment(row, orderID)
}

func scanAssignment(row pgx.Row, key string) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := row.Scan(&a.ID, &a.OrderID, &a.DriverID, &a.Status, &a.RejectionReason, &a.AssignedAt, &a.RespondedAt); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment %q: %w", key, err)
	}
	return &a, nil
}

// ResolveAssignment moves a ledger row out of the assigned state. The status
// guard in the WHERE clause makes redelivered timeout jobs a no-op: a row
// already resolved yields zero affected rows and ErrStale.
func (r *TxRepo) ResolveAssignment(ctx context.Context, id string, status domain.AssignmentStatus, reason *string, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status = $2, rejection_reason = $3, responded_at = $4
        WHERE id = $1 AND status = 'assigned'
    `, id, string(status), reason, at)
	if err != nil {
		return fmt.Errorf("resolve assignment %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("resolve assignment %q: %w", id, apperr.ErrStale)
	}
	return nil
}

// ReassignAssignment marks an in-flight or accepted row reassigned. Used by
// the manual admin path only; the automatic chain goes through
// ResolveAssignment.
func (r *TxRepo) ReassignAssignment(ctx context.Context, id string, reason *string, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status = 'reassigned', rejection_reason = $2, responded_at = $3
        WHERE id = $1 AND status IN ('assigned', 'accepted')
    `, id, reason, at)
	if err != nil {
		return fmt.Errorf("reassign assignment %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("reassign assignment %q: %w", id, apperr.ErrStale)
	}
	return nil
}
