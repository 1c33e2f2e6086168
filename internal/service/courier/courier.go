package courier

import (
	"context"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
)

// Service manages courier profiles and self-service availability.
type Service struct {
	repo             courierRepository
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
}

// NewService creates and configures a courier Service.
func NewService(r courierRepository, logger logx.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{repo: r, logger: logger, operationTimeout: timeout, now: time.Now}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

func invalid(msg string) error { return apperr.New(apperr.ErrInvalid, msg) }

func validateCreate(c *domain.Courier) error {
	if c == nil {
		return invalid("courier is required")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return invalid("userId is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name is required")
	}
	if !domain.ValidatePhone(c.Phone) {
		return invalid("phone must look like +71234567890")
	}
	if c.Status == "" {
		c.Status = domain.CourierOffline
	}
	if !c.Status.SelfSettable() {
		return invalid("status must be AVAILABLE or OFFLINE")
	}
	if c.TransportType == "" {
		c.TransportType = domain.TransportTypeFoot
	}
	if !c.TransportType.Valid() {
		return invalid("unknown transport type")
	}
	if c.ServiceAreaID <= 0 {
		return invalid("serviceAreaId is required")
	}
	return nil
}

func validateUpdate(u *domain.PartialCourierUpdate) error {
	if u.ID <= 0 {
		return invalid("id must be positive")
	}
	if u.Name == nil && u.Phone == nil && u.Status == nil && u.TransportType == nil && u.ServiceAreaID == nil {
		return invalid("nothing to update")
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return invalid("name must not be empty")
	}
	if u.Phone != nil && !domain.ValidatePhone(*u.Phone) {
		return invalid("phone must look like +71234567890")
	}
	if u.Status != nil && !u.Status.SelfSettable() {
		return invalid("status must be AVAILABLE or OFFLINE")
	}
	if u.TransportType != nil && !u.TransportType.Valid() {
		return invalid("unknown transport type")
	}
	if u.ServiceAreaID != nil && *u.ServiceAreaID <= 0 {
		return invalid("serviceAreaId must be positive")
	}
	return nil
}

// Get retrieves a courier by its ID.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Courier, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.ErrNotFound, "courier not found")
	}
	return c, nil
}

// GetByUserID retrieves the courier profile of an authenticated identity.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*domain.Courier, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.ErrNotFound, "courier not found")
	}
	return c, nil
}

// List returns couriers with optional pagination
func (s *Service) List(ctx context.Context, limit, offset *int) ([]domain.Courier, error) {
	if (limit != nil && *limit < 0) || (offset != nil && *offset < 0) {
		return nil, invalid("limit and offset must be non-negative")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.List(ctx, limit, offset)
}

// Create persists a new courier and returns its generated ID.
func (s *Service) Create(ctx context.Context, c *domain.Courier) (int64, error) {
	if err := validateCreate(c); err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Create(ctx, c)
}

// UpdatePartial applies a roster update.
func (s *Service) UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) error {
	if err := validateUpdate(&u); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ok, err := s.repo.UpdatePartial(ctx, u)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	c, err := s.repo.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.New(apperr.ErrNotFound, "courier not found")
	}
	return apperr.New(apperr.ErrConflict, "courier is on a delivery")
}

// SetAvailability switches a courier between AVAILABLE and OFFLINE, optionally recording
// its position. BUSY belongs to the matching engine and cannot be left or entered here.
func (s *Service) SetAvailability(ctx context.Context, u domain.AvailabilityUpdate) error {
	if !u.Status.SelfSettable() {
		return invalid("status must be AVAILABLE or OFFLINE")
	}
	if u.Location != nil {
		if err := geo.Validate(*u.Location); err != nil {
			return err
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.repo.Get(ctx, u.CourierID)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.New(apperr.ErrNotFound, "courier not found")
	}
	if c.Status == domain.CourierBusy {
		return apperr.New(apperr.ErrConflict, "courier is on a delivery")
	}

	ok, err := s.repo.SetAvailability(ctx, u, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrConflict, "courier is on a delivery")
	}
	s.logger.Info("courier availability changed",
		logx.Event("courier_availability"),
		logx.Int64("courier_id", u.CourierID),
		logx.String("status", string(u.Status)),
		logx.Bool("with_location", u.Location != nil),
	)
	return nil
}

// SetAvailabilityForUser resolves the courier behind userID and calls SetAvailability.
func (s *Service) SetAvailabilityForUser(ctx context.Context, userID string, status domain.CourierStatus, loc *domain.Coordinate) error {
	c, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.SetAvailability(ctx, domain.AvailabilityUpdate{CourierID: c.ID, Status: status, Location: loc})
}
