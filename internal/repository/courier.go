package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

const courierColumns = `id, user_id, name, phone, status, transport_type, service_area_id,
	lat, lng, location_updated_at, total_deliveries`

// CourierRepo represents courier repository.
type CourierRepo struct{ db *pgxpool.Pool }

// NewCourierRepo creates a new CourierRepo.
func NewCourierRepo(db *pgxpool.Pool) *CourierRepo { return &CourierRepo{db: db} }

func scanCourier(row rowScanner) (*domain.Courier, error) {
	var (
		c        domain.Courier
		lat, lng *float64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Status, &c.TransportType, &c.ServiceAreaID,
		&lat, &lng, &c.LocationUpdatedAt, &c.TotalDeliveries); err != nil {
		return nil, err
	}
	c.Location = coordinate(lat, lng)
	return &c, nil
}

// Get - returns courier by its ID, nil when absent.
func (r *CourierRepo) Get(ctx context.Context, id int64) (*domain.Courier, error) {
	c, err := scanCourier(r.db.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id=$1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get courier %d: %w", id, err)
	}
	return c, nil
}

// GetByUserID - returns the courier owned by an identity, nil when absent.
func (r *CourierRepo) GetByUserID(ctx context.Context, userID string) (*domain.Courier, error) {
	c, err := scanCourier(r.db.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE user_id=$1`, userID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get courier by user %q: %w", userID, err)
	}
	return c, nil
}

// List returns couriers ordered by id. If limit/offset are nil, returns the full list.
func (r *CourierRepo) List(ctx context.Context, limit, offset *int) ([]domain.Courier, error) {
	q := `SELECT ` + courierColumns + ` FROM couriers ORDER BY id`
	args := make([]any, 0, 2)
	if limit != nil {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, *limit)
	}
	if offset != nil {
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, *offset)
	}
	return r.query(ctx, q, args...)
}

// ListAvailableInBox returns AVAILABLE couriers with a known position inside box.
// serviceAreaID 0 matches every area.
func (r *CourierRepo) ListAvailableInBox(ctx context.Context, serviceAreaID int64, box geo.Box) ([]domain.Courier, error) {
	return r.query(ctx, `
        SELECT `+courierColumns+`
        FROM couriers
        WHERE status = $1
          AND ($2::bigint = 0 OR service_area_id = $2)
          AND lat BETWEEN $3 AND $4
          AND lng BETWEEN $5 AND $6
        ORDER BY id
    `, domain.CourierAvailable, serviceAreaID, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
}

func (r *CourierRepo) query(ctx context.Context, q string, args ...any) ([]domain.Courier, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query couriers: %w", err)
	}
	defer rows.Close()
	var out []domain.Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan courier: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Create - creates a new courier.
func (r *CourierRepo) Create(ctx context.Context, c *domain.Courier) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
        INSERT INTO couriers(user_id, name, phone, status, transport_type, service_area_id)
        VALUES($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, c.UserID, c.Name, c.Phone, c.Status, c.TransportType, c.ServiceAreaID).Scan(&id)
	if err != nil {
		switch {
		case IsDuplicate(err):
			return 0, apperr.New(apperr.ErrConflict, "courier with this user or phone already exists")
		case IsForeignKey(err):
			return 0, apperr.New(apperr.ErrNotFound, "service area not found")
		}
		return 0, fmt.Errorf("create courier: %w", err)
	}
	return id, nil
}

// UpdatePartial applies a partial update to a courier and returns true if a row was affected.
// A status change is refused while the courier is BUSY.
func (r *CourierRepo) UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE couriers
        SET
            name            = COALESCE($2, name),
            phone           = COALESCE($3, phone),
            status          = COALESCE($4, status),
            transport_type  = COALESCE($5, transport_type),
            service_area_id = COALESCE($6, service_area_id),
            updated_at      = now()
        WHERE id = $1
          AND ($4::text IS NULL OR status <> 'BUSY')
    `, u.ID, u.Name, u.Phone, u.Status, u.TransportType, u.ServiceAreaID)
	if err != nil {
		switch {
		case IsDuplicate(err):
			return false, apperr.New(apperr.ErrConflict, "phone already in use")
		case IsForeignKey(err):
			return false, apperr.New(apperr.ErrNotFound, "service area not found")
		}
		return false, fmt.Errorf("update courier %d: %w", u.ID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetAvailability switches a courier that is not BUSY to the requested status and, when given,
// records its position. It returns false if no such courier is in a switchable state.
func (r *CourierRepo) SetAvailability(ctx context.Context, u domain.AvailabilityUpdate, at time.Time) (bool, error) {
	lat, lng := latLng(u.Location)
	ct, err := r.db.Exec(ctx, `
        UPDATE couriers
        SET status              = $2,
            lat                 = COALESCE($3, lat),
            lng                 = COALESCE($4, lng),
            location_updated_at = CASE WHEN $3::float8 IS NULL THEN location_updated_at ELSE $5 END,
            updated_at          = now()
        WHERE id = $1 AND status <> 'BUSY'
    `, u.CourierID, u.Status, lat, lng, at)
	if err != nil {
		return false, fmt.Errorf("set availability of courier %d: %w", u.CourierID, err)
	}
	return ct.RowsAffected() > 0, nil
}
