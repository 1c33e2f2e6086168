package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/domain"
)

// LocationRepo reads and prunes location history.
type LocationRepo struct{ db *pgxpool.Pool }

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *pgxpool.Pool) *LocationRepo { return &LocationRepo{db: db} }

// Route returns an order's history oldest first. Equal timestamps keep insertion order.
func (r *LocationRepo) Route(ctx context.Context, orderID string) ([]domain.LocationHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, order_id, courier_id, lat, lng, recorded_at
        FROM location_history
        WHERE order_id = $1
        ORDER BY recorded_at, id
    `, orderID)
	if err != nil {
		return nil, fmt.Errorf("route of order %q: %w", orderID, err)
	}
	defer rows.Close()
	out := make([]domain.LocationHistoryEntry, 0)
	for rows.Next() {
		var e domain.LocationHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.CourierID, &e.Coordinate.Lat, &e.Coordinate.Lng, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes entries recorded strictly before cutoff.
func (r *LocationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM location_history WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete history before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return ct.RowsAffected(), nil
}
