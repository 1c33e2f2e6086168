package handlers

import (
	"net/http"
	"strconv"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// AreaHandler manages service area polygons.
type AreaHandler struct {
	areas  areaUsecase
	logger logx.Logger
}

// NewAreaHandler creates an AreaHandler.
func NewAreaHandler(logger logx.Logger, areas areaUsecase) *AreaHandler {
	return &AreaHandler{areas: areas, logger: logger}
}

// Create handles POST /internal/service-areas.
func (h *AreaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAreaRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	poly := make([]domain.Coordinate, 0, len(req.Polygon))
	for _, p := range req.Polygon {
		poly = append(poly, domain.Coordinate{Lat: p.Lat, Lng: p.Lng})
	}
	a, err := h.areas.Create(r.Context(), req.Name, poly)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", "/api/service-areas/"+strconv.FormatInt(a.ID, 10))
	writeJSON(h.logger, w, r, http.StatusCreated, areaToResponse(a))
}

// Contains handles GET /api/service-areas/{id}/contains?lat=&lng=.
func (h *AreaHandler) Contains(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	lng, err := queryFloat(r, "lng")
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	in, err := h.areas.Contains(r.Context(), id, domain.Coordinate{Lat: lat, Lng: lng})
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, containsResponse{ServiceAreaID: id, Contains: in})
}
