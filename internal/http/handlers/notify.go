package handlers

import (
	"net/http"
	"strings"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
)

// NotifyHandler lets other services push events through the fan-out.
type NotifyHandler struct {
	notifier notifier
	logger   logx.Logger
}

// NewNotifyHandler creates a NotifyHandler.
func NewNotifyHandler(logger logx.Logger, n notifier) *NotifyHandler {
	return &NotifyHandler{notifier: n, logger: logger}
}

func recipientsOf(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, badRequest("recipients must not be empty")
	}
	return out, nil
}

func (h *NotifyHandler) send(w http.ResponseWriter, r *http.Request, recipients []string, ev notify.Event) {
	to, err := recipientsOf(recipients)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	res, err := h.notifier.Send(r.Context(), to, ev)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, sendResponse{Success: res.Failed == 0, Sent: res.Sent, Failed: res.Failed})
}

// DeliveryAssigned handles POST /internal/notify/delivery-assigned.
func (h *NotifyHandler) DeliveryAssigned(w http.ResponseWriter, r *http.Request) {
	var req deliveryAssignedRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(h.logger, w, r, badRequest("orderId is required"))
		return
	}
	vendor, err := req.VendorLocation.place("vendorLocation")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	dest, err := req.DeliveryAddress.place("deliveryAddress")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	h.send(w, r, req.Recipients, &notify.DeliveryAssigned{
		OrderID:             req.OrderID,
		VendorLocation:      vendor,
		DeliveryAddress:     dest,
		EstimatedDistanceKm: req.EstimatedDistanceKm,
		PaymentAmount:       req.PaymentAmount,
		ExpiresAt:           req.ExpiresAt,
	})
}

// NotificationCancelled handles POST /internal/notify/notification-cancelled.
func (h *NotifyHandler) NotificationCancelled(w http.ResponseWriter, r *http.Request) {
	var req notificationCancelledRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(h.logger, w, r, badRequest("orderId is required"))
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = notify.ReasonCancelled
	}
	h.send(w, r, req.Recipients, &notify.NotificationCancelled{OrderID: req.OrderID, Reason: reason})
}

// LocationUpdate handles POST /internal/notify/location-update.
func (h *NotifyHandler) LocationUpdate(w http.ResponseWriter, r *http.Request) {
	var req locationUpdateRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if strings.TrimSpace(req.DeliveryID) == "" {
		writeError(h.logger, w, r, badRequest("deliveryId is required"))
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(h.logger, w, r, badRequest("latitude and longitude are required"))
		return
	}
	if err := geo.Validate(domain.Coordinate{Lat: *req.Latitude, Lng: *req.Longitude}); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	h.send(w, r, req.Recipients, &notify.LocationUpdate{
		DeliveryID: req.DeliveryID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		ETA:        req.ETA,
		Timestamp:  req.Timestamp,
	})
}

// DeliveryCompleted handles POST /internal/notify/delivery-completed.
func (h *NotifyHandler) DeliveryCompleted(w http.ResponseWriter, r *http.Request) {
	var req deliveryCompletedRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if strings.TrimSpace(req.DeliveryID) == "" {
		writeError(h.logger, w, r, badRequest("deliveryId is required"))
		return
	}
	h.send(w, r, req.Recipients, &notify.DeliveryCompleted{DeliveryID: req.DeliveryID, CompletedAt: req.CompletedAt})
}
