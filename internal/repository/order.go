package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
)

const orderSelect = `
    SELECT o.id, o.vendor_id, o.customer_id, o.status, o.delivery_partner_id,
           v.lat, v.lng, v.service_area_id,
           o.destination_lat, o.destination_lng, o.delivery_address,
           o.created_at, o.updated_at
    FROM orders o
    JOIN vendors v ON v.id = o.vendor_id`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                domain.Order
		pLat, pLng       *float64
		destLat, destLng *float64
	)
	if err := row.Scan(&o.ID, &o.VendorID, &o.CustomerID, &o.Status, &o.DeliveryPartnerID,
		&pLat, &pLng, &o.ServiceAreaID,
		&destLat, &destLng, &o.DeliveryAddress,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Pickup = coordinate(pLat, pLng)
	o.Destination = coordinate(destLat, destLng)
	return &o, nil
}

// OrderRepo reads the delivery view of orders.
type OrderRepo struct{ db *pgxpool.Pool }

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(db *pgxpool.Pool) *OrderRepo { return &OrderRepo{db: db} }

// Get returns the order with its vendor pickup point, nil when absent.
func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %q: %w", id, err)
	}
	return o, nil
}

// ListReady returns unassigned READY_FOR_PICKUP orders of a service area, oldest first.
func (r *OrderRepo) ListReady(ctx context.Context, serviceAreaID int64, limit int) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, orderSelect+`
        WHERE o.status = $1
          AND o.delivery_partner_id IS NULL
          AND v.service_area_id = $2
        ORDER BY o.created_at, o.id
        LIMIT $3
    `, domain.OrderReadyForPickup, serviceAreaID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ready orders: %w", err)
	}
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// FindActiveByCourier returns the delivery the courier is carrying, nil when there is none.
func (r *OrderRepo) FindActiveByCourier(ctx context.Context, courierID int64) (*domain.ActiveDelivery, error) {
	var (
		a                domain.ActiveDelivery
		destLat, destLng *float64
	)
	err := r.db.QueryRow(ctx, `
        SELECT id, customer_id, status, destination_lat, destination_lng
        FROM orders
        WHERE delivery_partner_id = $1
          AND status IN ($2, $3, $4)
        ORDER BY updated_at DESC, id
        LIMIT 1
    `, courierID, domain.OrderAssignedToDelivery, domain.OrderPickedUp, domain.OrderInTransit,
	).Scan(&a.OrderID, &a.CustomerID, &a.Status, &destLat, &destLng)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active delivery of courier %d: %w", courierID, err)
	}
	a.Destination = coordinate(destLat, destLng)
	return &a, nil
}

// GetTrack returns the order's owner, status, assigned courier position and destination,
// nil when the order is absent.
func (r *OrderRepo) GetTrack(ctx context.Context, orderID string) (*domain.DeliveryTrack, error) {
	var (
		t                domain.DeliveryTrack
		cLat, cLng       *float64
		destLat, destLng *float64
	)
	err := r.db.QueryRow(ctx, `
        SELECT o.id, o.customer_id, o.status, o.delivery_partner_id,
               c.lat, c.lng, c.location_updated_at,
               o.destination_lat, o.destination_lng
        FROM orders o
        LEFT JOIN couriers c ON c.id = o.delivery_partner_id
        WHERE o.id = $1
    `, orderID).Scan(&t.OrderID, &t.CustomerID, &t.Status, &t.CourierID, &cLat, &cLng, &t.LocationUpdatedAt, &destLat, &destLng)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get track of order %q: %w", orderID, err)
	}
	t.CourierLocation = coordinate(cLat, cLng)
	t.Destination = coordinate(destLat, destLng)
	return &t, nil
}
