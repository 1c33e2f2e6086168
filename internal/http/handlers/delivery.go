package handlers

import (
	"context"
	"net/http"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// DeliveryHandler serves offer acceptance and delivery progression.
type DeliveryHandler struct {
	matching      matchingUsecase
	couriers      courierLookup
	defaultRadius float64
	logger        logx.Logger
}

// NewDeliveryHandler creates a DeliveryHandler. defaultRadius is used by the order-ready trigger.
func NewDeliveryHandler(logger logx.Logger, matching matchingUsecase, couriers courierLookup, defaultRadius float64) *DeliveryHandler {
	return &DeliveryHandler{matching: matching, couriers: couriers, defaultRadius: defaultRadius, logger: logger}
}

// courierID resolves the courier acting on the request.
func (h *DeliveryHandler) courierID(r *http.Request) (int64, error) {
	id, err := identity(r)
	if err != nil {
		return 0, err
	}
	c, err := h.couriers.GetByUserID(r.Context(), id.UserID)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// Accept handles POST /api/courier/deliveries/{orderId}/accept.
// @Summary Accept a delivery offer
// @Tags deliveries
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} assignmentResponse
// @Failure 404 {object} ErrorResponse "order or courier not found"
// @Failure 409 {object} ErrorResponse "already assigned or offer expired"
// @Router /api/courier/deliveries/{orderId}/accept [post]
func (h *DeliveryHandler) Accept(w http.ResponseWriter, r *http.Request) {
	orderID, courierID, ok := h.target(w, r)
	if !ok {
		return
	}
	a, err := h.matching.AcceptDelivery(r.Context(), orderID, courierID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentResponse{
		Success:    true,
		OrderID:    a.OrderID,
		CourierID:  a.CourierID,
		AssignedAt: a.AssignedAt,
	})
}

// PickUp handles POST /api/courier/deliveries/{orderId}/pickup.
func (h *DeliveryHandler) PickUp(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, h.matching.MarkPickedUp)
}

// InTransit handles POST /api/courier/deliveries/{orderId}/in-transit.
func (h *DeliveryHandler) InTransit(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, h.matching.MarkInTransit)
}

// Deliver handles POST /api/courier/deliveries/{orderId}/deliver.
func (h *DeliveryHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, h.matching.MarkDelivered)
}

type progressFunc func(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error)

func (h *DeliveryHandler) progress(w http.ResponseWriter, r *http.Request, step progressFunc) {
	orderID, courierID, ok := h.target(w, r)
	if !ok {
		return
	}
	ch, err := step(r.Context(), orderID, courierID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, statusChangeResponse{
		Success:   true,
		OrderID:   ch.OrderID,
		From:      ch.From,
		Status:    ch.To,
		ChangedAt: ch.ChangedAt,
	})
}

func (h *DeliveryHandler) target(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	orderID, err := orderIDFromURL(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return "", 0, false
	}
	courierID, err := h.courierID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return "", 0, false
	}
	return orderID, courierID, true
}

// Available handles GET /api/courier/deliveries/available.
func (h *DeliveryHandler) Available(w http.ResponseWriter, r *http.Request) {
	courierID, err := h.courierID(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	list, err := h.matching.ListAvailable(r.Context(), courierID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, availableToResponse(list))
}

// OrderReady handles POST /internal/orders/{orderId}/ready and starts matching.
func (h *DeliveryHandler) OrderReady(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromURL(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	var req orderReadyRequest
	if ok := decodeOptionalJSON(h.logger, w, r, &req); !ok {
		return
	}
	radius := h.defaultRadius
	if req.RadiusKm != nil {
		radius = *req.RadiusKm
	}
	res, err := h.matching.NotifyNearbyCouriers(r.Context(), orderID, radius)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, notifyResultToResponse(res))
}
