package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/auth"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
)

func testLogger() logx.Logger { return logx.Nop() }

type stubCourierUsecase struct {
	getFn           func(ctx context.Context, id int64) (*domain.Courier, error)
	getByUserFn     func(ctx context.Context, userID string) (*domain.Courier, error)
	listFn          func(ctx context.Context, limit, offset *int) ([]domain.Courier, error)
	createFn        func(ctx context.Context, c *domain.Courier) (int64, error)
	updatePartialFn func(ctx context.Context, u domain.PartialCourierUpdate) error
	availabilityFn  func(ctx context.Context, userID string, status domain.CourierStatus, loc *domain.Coordinate) error
}

func (s *stubCourierUsecase) Get(ctx context.Context, id int64) (*domain.Courier, error) {
	return s.getFn(ctx, id)
}

func (s *stubCourierUsecase) GetByUserID(ctx context.Context, userID string) (*domain.Courier, error) {
	return s.getByUserFn(ctx, userID)
}

func (s *stubCourierUsecase) List(ctx context.Context, limit, offset *int) ([]domain.Courier, error) {
	return s.listFn(ctx, limit, offset)
}

func (s *stubCourierUsecase) Create(ctx context.Context, c *domain.Courier) (int64, error) {
	return s.createFn(ctx, c)
}

func (s *stubCourierUsecase) UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) error {
	return s.updatePartialFn(ctx, u)
}

func (s *stubCourierUsecase) SetAvailabilityForUser(ctx context.Context, userID string, status domain.CourierStatus, loc *domain.Coordinate) error {
	return s.availabilityFn(ctx, userID, status, loc)
}

// couriersByUser maps user ids to courier ids; unknown users are NotFound.
type couriersByUser map[string]int64

func (m couriersByUser) GetByUserID(_ context.Context, userID string) (*domain.Courier, error) {
	id, ok := m[userID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "courier not found")
	}
	return &domain.Courier{ID: id, UserID: userID}, nil
}

type stubMatching struct {
	notifyFn    func(ctx context.Context, orderID string, radiusKm float64) (domain.NotifyResult, error)
	acceptFn    func(ctx context.Context, orderID string, courierID int64) (domain.Assignment, error)
	progressFn  func(step, orderID string, courierID int64) (domain.StatusChange, error)
	availableFn func(ctx context.Context, courierID int64) ([]domain.AvailableDelivery, error)
}

func (s *stubMatching) NotifyNearbyCouriers(ctx context.Context, orderID string, radiusKm float64) (domain.NotifyResult, error) {
	return s.notifyFn(ctx, orderID, radiusKm)
}

func (s *stubMatching) AcceptDelivery(ctx context.Context, orderID string, courierID int64) (domain.Assignment, error) {
	return s.acceptFn(ctx, orderID, courierID)
}

func (s *stubMatching) MarkPickedUp(_ context.Context, orderID string, courierID int64) (domain.StatusChange, error) {
	return s.progressFn("pickup", orderID, courierID)
}

func (s *stubMatching) MarkInTransit(_ context.Context, orderID string, courierID int64) (domain.StatusChange, error) {
	return s.progressFn("in-transit", orderID, courierID)
}

func (s *stubMatching) MarkDelivered(_ context.Context, orderID string, courierID int64) (domain.StatusChange, error) {
	return s.progressFn("deliver", orderID, courierID)
}

func (s *stubMatching) ListAvailable(ctx context.Context, courierID int64) ([]domain.AvailableDelivery, error) {
	return s.availableFn(ctx, courierID)
}

type stubTracking struct {
	reportFn   func(ctx context.Context, courierID int64, lat, lng float64) (domain.LocationReport, error)
	locationFn func(ctx context.Context, orderID string, viewer domain.Viewer) (domain.DeliveryLocation, error)
	routeFn    func(ctx context.Context, orderID string, viewer domain.Viewer) ([]domain.LocationHistoryEntry, error)
}

func (s *stubTracking) ReportLocation(ctx context.Context, courierID int64, lat, lng float64) (domain.LocationReport, error) {
	return s.reportFn(ctx, courierID, lat, lng)
}

func (s *stubTracking) GetDeliveryLocation(ctx context.Context, orderID string, viewer domain.Viewer) (domain.DeliveryLocation, error) {
	return s.locationFn(ctx, orderID, viewer)
}

func (s *stubTracking) GetDeliveryRoute(ctx context.Context, orderID string, viewer domain.Viewer) ([]domain.LocationHistoryEntry, error) {
	return s.routeFn(ctx, orderID, viewer)
}

type stubAreas struct {
	createFn   func(ctx context.Context, name string, polygon []domain.Coordinate) (*domain.ServiceArea, error)
	containsFn func(ctx context.Context, id int64, point domain.Coordinate) (bool, error)
}

func (s *stubAreas) Create(ctx context.Context, name string, polygon []domain.Coordinate) (*domain.ServiceArea, error) {
	return s.createFn(ctx, name, polygon)
}

func (s *stubAreas) Contains(ctx context.Context, id int64, point domain.Coordinate) (bool, error) {
	return s.containsFn(ctx, id, point)
}

type sentEvent struct {
	recipients []string
	event      notify.Event
}

type stubNotifier struct {
	sent   []sentEvent
	result notify.Result
}

func (s *stubNotifier) Send(_ context.Context, recipients []string, ev notify.Event) (notify.Result, error) {
	s.sent = append(s.sent, sentEvent{recipients, ev})
	return s.result, nil
}

// request builds r with chi URL params and an optional identity.
func request(method, target string, body any, params map[string]string, id *auth.Identity) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	if id != nil {
		ctx = auth.WithIdentity(ctx, *id)
	}
	return req.WithContext(ctx)
}

func courierIdentity(userID string) *auth.Identity {
	return &auth.Identity{UserID: userID, Role: auth.RoleCourier}
}

func customerIdentity(userID string) *auth.Identity {
	return &auth.Identity{UserID: userID, Role: auth.RoleCustomer}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
