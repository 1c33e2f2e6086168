package tracking

import (
	"context"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// Reporter is a Service view that labels reports with their source.
type Reporter struct {
	svc    *Service
	source string
}

// Via returns a Reporter for source.
func (s *Service) Via(source string) Reporter {
	return Reporter{svc: s, source: source}
}

// ReportLocation records a position for courierID.
func (r Reporter) ReportLocation(ctx context.Context, courierID int64, lat, lng float64) (domain.LocationReport, error) {
	return r.svc.report(ctx, r.source, courierID, lat, lng)
}

// ReportLocationForUser records a position for the courier owning userID.
func (r Reporter) ReportLocationForUser(ctx context.Context, userID string, lat, lng float64) (domain.LocationReport, error) {
	if err := geo.Validate(domain.Coordinate{Lat: lat, Lng: lng}); err != nil {
		r.svc.metrics.LocationReports.WithLabelValues(r.source + "_rejected").Inc()
		return domain.LocationReport{}, err
	}
	lookupCtx, cancel := r.svc.withTimeout(ctx)
	c, err := r.svc.couriers.GetByUserID(lookupCtx, userID)
	cancel()
	if err != nil {
		return domain.LocationReport{}, err
	}
	if c == nil {
		return domain.LocationReport{}, apperr.New(apperr.ErrNotFound, "courier not found")
	}
	return r.svc.report(ctx, r.source, c.ID, lat, lng)
}
