package servicearea

import (
	"context"
	"strings"
	"sync"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
)

type areaRepository interface {
	Create(ctx context.Context, a *domain.ServiceArea) (int64, error)
	Get(ctx context.Context, id int64) (*domain.ServiceArea, error)
}

// Service validates and serves service area polygons. Areas never change once stored,
// so lookups are cached for the life of the process.
type Service struct {
	repo             areaRepository
	logger           logx.Logger
	operationTimeout time.Duration

	mu    sync.RWMutex
	cache map[int64]*domain.ServiceArea
}

// NewService creates a service area Service.
func NewService(r areaRepository, logger logx.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{repo: r, logger: logger, operationTimeout: timeout, cache: map[int64]*domain.ServiceArea{}}
}

// Create validates polygon and stores the area with its centroid and size.
func (s *Service) Create(ctx context.Context, name string, polygon []domain.Coordinate) (*domain.ServiceArea, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.ErrInvalid, "name is required")
	}
	stats, err := geo.ValidatePolygon(polygon)
	if err != nil {
		return nil, err
	}

	a := &domain.ServiceArea{Name: name, Polygon: polygon, Centroid: stats.Centroid, AreaKm2: stats.AreaKm2}
	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()
	if a.ID, err = s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[a.ID] = a
	s.mu.Unlock()
	s.logger.Info("service area created",
		logx.Event("service_area_created"),
		logx.Int64("id", a.ID),
		logx.String("name", a.Name),
		logx.Float64("area_km2", a.AreaKm2),
	)
	return a, nil
}

// Get returns an area by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.ServiceArea, error) {
	s.mu.RLock()
	a, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return a, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.New(apperr.ErrNotFound, "service area not found")
	}
	s.mu.Lock()
	s.cache[id] = a
	s.mu.Unlock()
	return a, nil
}

// Contains reports whether point lies inside the area.
func (s *Service) Contains(ctx context.Context, id int64, point domain.Coordinate) (bool, error) {
	if err := geo.Validate(point); err != nil {
		return false, err
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return geo.PointInPolygon(point, a.Polygon), nil
}
