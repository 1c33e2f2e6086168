package handlers

import (
	"net/http"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/tracking"
)

// TrackingHandler serves courier position reports and customer tracking queries.
type TrackingHandler struct {
	tracking trackingUsecase
	couriers courierLookup
	logger   logx.Logger
}

// NewTrackingHandler creates a TrackingHandler.
func NewTrackingHandler(logger logx.Logger, t trackingUsecase, couriers courierLookup) *TrackingHandler {
	return &TrackingHandler{tracking: t, couriers: couriers, logger: logger}
}

// ReportLocation handles POST /api/courier/location.
func (h *TrackingHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req locationRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	lat, lng, err := req.point()
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	c, err := h.couriers.GetByUserID(r.Context(), id.UserID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	rep, err := h.tracking.ReportLocation(r.Context(), c.ID, lat, lng)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, locationReportResponse{
		Success:    true,
		OrderID:    rep.OrderID,
		ETAMinutes: rep.ETAMinutes,
		DistanceKm: rep.DistanceKm,
		RecordedAt: rep.RecordedAt,
	})
}

// DeliveryLocation handles GET /api/orders/{orderId}/location.
// Fields are null until a courier is assigned and has reported, and again once the order is delivered.
func (h *TrackingHandler) DeliveryLocation(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerOf(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	orderID, err := orderIDFromURL(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	loc, err := h.tracking.GetDeliveryLocation(r.Context(), orderID, viewer)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, deliveryLocationResponse{
		Latitude:   loc.Lat,
		Longitude:  loc.Lng,
		LastUpdate: loc.LastUpdate,
		ETAMinutes: loc.ETAMinutes,
	})
}

// Route handles GET /api/orders/{orderId}/route.
func (h *TrackingHandler) Route(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerOf(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	orderID, err := orderIDFromURL(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	route, err := h.tracking.GetDeliveryRoute(r.Context(), orderID, viewer)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, routeToResponse(orderID, route, tracking.RouteDistance(route)))
}

func viewerOf(r *http.Request) (domain.Viewer, error) {
	id, err := identity(r)
	if err != nil {
		return domain.Viewer{}, err
	}
	return domain.Viewer{UserID: id.UserID, Admin: id.Role == auth.RoleAdmin}, nil
}
