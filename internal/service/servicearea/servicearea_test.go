package servicearea

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

type mockAreaRepo struct {
	createFn func(ctx context.Context, a *domain.ServiceArea) (int64, error)
	getFn    func(ctx context.Context, id int64) (*domain.ServiceArea, error)
	gets     int
}

func (m *mockAreaRepo) Create(ctx context.Context, a *domain.ServiceArea) (int64, error) {
	return m.createFn(ctx, a)
}

func (m *mockAreaRepo) Get(ctx context.Context, id int64) (*domain.ServiceArea, error) {
	m.gets++
	return m.getFn(ctx, id)
}

// roughly 11 x 11 km around central Bengaluru
var square = []domain.Coordinate{
	{Lat: 12.90, Lng: 77.55},
	{Lat: 12.90, Lng: 77.65},
	{Lat: 13.00, Lng: 77.65},
	{Lat: 13.00, Lng: 77.55},
	{Lat: 12.90, Lng: 77.55},
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	var stored *domain.ServiceArea
	repo := &mockAreaRepo{createFn: func(_ context.Context, a *domain.ServiceArea) (int64, error) {
		stored = a
		return 7, nil
	}}
	svc := NewService(repo, logx.Nop(), 0)

	a, err := svc.Create(context.Background(), " Central ", square)
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "Central", stored.Name)
	assert.InDelta(t, 12.95, a.Centroid.Lat, 1e-6)
	assert.InDelta(t, 77.60, a.Centroid.Lng, 1e-6)
	assert.InDelta(t, 121, a.AreaKm2, 3)

	got, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Zero(t, repo.gets, "created areas are served from cache")
}

func TestService_Create_RejectsInvalid(t *testing.T) {
	t.Parallel()

	repo := &mockAreaRepo{createFn: func(context.Context, *domain.ServiceArea) (int64, error) {
		t.Fatal("repo must not be called")
		return 0, nil
	}}
	svc := NewService(repo, logx.Nop(), 0)

	_, err := svc.Create(context.Background(), "", square)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.Create(context.Background(), "open", square[:4])
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestService_Contains(t *testing.T) {
	t.Parallel()

	repo := &mockAreaRepo{getFn: func(_ context.Context, id int64) (*domain.ServiceArea, error) {
		if id != 1 {
			return nil, nil
		}
		return &domain.ServiceArea{ID: 1, Polygon: square}, nil
	}}
	svc := NewService(repo, logx.Nop(), 0)

	in, err := svc.Contains(context.Background(), 1, domain.Coordinate{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	assert.True(t, in)

	out, err := svc.Contains(context.Background(), 1, domain.Coordinate{Lat: 13.50, Lng: 78.00})
	require.NoError(t, err)
	assert.False(t, out)
	assert.Equal(t, 1, repo.gets)

	_, err = svc.Contains(context.Background(), 2, domain.Coordinate{Lat: 12.97, Lng: 77.59})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Contains(context.Background(), 1, domain.Coordinate{Lat: 12.97, Lng: 200})
	assert.ErrorIs(t, err, apperr.ErrInvalidCoordinate)
}
