package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// ServiceAreaRepo stores service area polygons.
type ServiceAreaRepo struct{ db *pgxpool.Pool }

// NewServiceAreaRepo creates a new ServiceAreaRepo.
func NewServiceAreaRepo(db *pgxpool.Pool) *ServiceAreaRepo { return &ServiceAreaRepo{db: db} }

// Create stores a validated area and returns its id.
func (r *ServiceAreaRepo) Create(ctx context.Context, a *domain.ServiceArea) (int64, error) {
	polygon, err := json.Marshal(a.Polygon)
	if err != nil {
		return 0, fmt.Errorf("encode polygon: %w", err)
	}
	var id int64
	err = r.db.QueryRow(ctx, `
        INSERT INTO service_areas(name, polygon, centroid_lat, centroid_lng, area_km2)
        VALUES($1, $2, $3, $4, $5)
        RETURNING id
    `, a.Name, polygon, a.Centroid.Lat, a.Centroid.Lng, a.AreaKm2).Scan(&id)
	if err != nil {
		if IsDuplicate(err) {
			return 0, apperr.New(apperr.ErrConflict, "service area name already taken")
		}
		return 0, fmt.Errorf("create service area: %w", err)
	}
	return id, nil
}

// Get returns an area by id, nil when absent.
func (r *ServiceAreaRepo) Get(ctx context.Context, id int64) (*domain.ServiceArea, error) {
	var (
		a       domain.ServiceArea
		polygon []byte
	)
	err := r.db.QueryRow(ctx, `
        SELECT id, name, polygon, centroid_lat, centroid_lng, area_km2
        FROM service_areas
        WHERE id = $1
    `, id).Scan(&a.ID, &a.Name, &polygon, &a.Centroid.Lat, &a.Centroid.Lng, &a.AreaKm2)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service area %d: %w", id, err)
	}
	if err := json.Unmarshal(polygon, &a.Polygon); err != nil {
		return nil, fmt.Errorf("decode polygon of area %d: %w", id, err)
	}
	return &a, nil
}
