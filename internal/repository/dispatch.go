package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

// DispatchRepo runs assignment and tracking writes in transactions.
type DispatchRepo struct {
	db *pgxpool.Pool
}

// NewDispatchRepo creates a new DispatchRepo.
func NewDispatchRepo(db *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DispatchRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&TxRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TxRepo is dispatchtx.Repository bound to one transaction.
type TxRepo struct {
	tx pgx.Tx
}

var _ dispatchtx.Repository = (*TxRepo)(nil)

// GetOrderForUpdate locks the order row.
func (r *TxRepo) GetOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock order %q: %w", orderID, err)
	}
	return o, nil
}

// GetCourierForUpdate locks the courier row.
func (r *TxRepo) GetCourierForUpdate(ctx context.Context, courierID int64) (*domain.Courier, error) {
	c, err := scanCourier(r.tx.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = $1 FOR UPDATE`, courierID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock courier %d: %w", courierID, err)
	}
	return c, nil
}

// AssignCourier - single-assignment check-and-set.
func (r *TxRepo) AssignCourier(ctx context.Context, orderID string, courierID int64, at time.Time) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE orders
        SET delivery_partner_id = $2,
            status = $3,
            updated_at = $5
        WHERE id = $1
          AND delivery_partner_id IS NULL
          AND status = $4
    `, orderID, courierID, domain.OrderAssignedToDelivery, domain.OrderReadyForPickup, at)
	if err != nil {
		return false, fmt.Errorf("assign order %q: %w", orderID, err)
	}
	return ct.RowsAffected() == 1, nil
}

// TransitionOrder - moves an order between statuses, guarded by the expected current status.
func (r *TxRepo) TransitionOrder(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE orders
        SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2
    `, orderID, from, to, at)
	if err != nil {
		return false, fmt.Errorf("transition order %q %s->%s: %w", orderID, from, to, err)
	}
	return ct.RowsAffected() == 1, nil
}

// UpdateCourierStatus - update courier status.
func (r *TxRepo) UpdateCourierStatus(ctx context.Context, id int64, status domain.CourierStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE couriers
        SET status = $2, updated_at = now()
        WHERE id = $1
    `, id, status)
	if err != nil {
		return fmt.Errorf("update courier status %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d not found", id)
	}
	return nil
}

// IncrementDeliveries bumps the lifetime delivery counter.
func (r *TxRepo) IncrementDeliveries(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `
        UPDATE couriers SET total_deliveries = total_deliveries + 1, updated_at = now() WHERE id = $1
    `, id); err != nil {
		return fmt.Errorf("increment deliveries of courier %d: %w", id, err)
	}
	return nil
}

// AppendStatusChange - adds a status history row.
func (r *TxRepo) AppendStatusChange(ctx context.Context, ch domain.StatusChange) error {
	var courierID *int64
	if ch.CourierID != 0 {
		courierID = &ch.CourierID
	}
	if _, err := r.tx.Exec(ctx, `
        INSERT INTO order_status_history(order_id, from_status, to_status, courier_id, changed_at)
        VALUES($1, $2, $3, $4, $5)
    `, ch.OrderID, ch.From, ch.To, courierID, ch.ChangedAt); err != nil {
		return fmt.Errorf("append status change of order %q: %w", ch.OrderID, err)
	}
	return nil
}

// UpdateCourierLocation stores the courier's latest position.
func (r *TxRepo) UpdateCourierLocation(ctx context.Context, id int64, c domain.Coordinate, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE couriers
        SET lat = $2, lng = $3, location_updated_at = $4, updated_at = now()
        WHERE id = $1
    `, id, c.Lat, c.Lng, at)
	if err != nil {
		return fmt.Errorf("update location of courier %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d not found", id)
	}
	return nil
}

// AppendLocation inserts a history entry and fills its id.
func (r *TxRepo) AppendLocation(ctx context.Context, e *domain.LocationHistoryEntry) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO location_history(order_id, courier_id, lat, lng, recorded_at)
        VALUES($1, $2, $3, $4, $5)
        RETURNING id
    `, e.OrderID, e.CourierID, e.Coordinate.Lat, e.Coordinate.Lng, e.RecordedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("append location of order %q: %w", e.OrderID, err)
	}
	return nil
}
