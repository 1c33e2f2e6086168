package handlers

import (
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/notify"
)

func coordinateOf(c domain.Coordinate) coordinateDTO {
	return coordinateDTO{Lat: c.Lat, Lng: c.Lng}
}

func optionalCoordinate(c *domain.Coordinate) *coordinateDTO {
	if c == nil {
		return nil
	}
	out := coordinateOf(*c)
	return &out
}

func (r createCourierRequest) toModel() *domain.Courier {
	return &domain.Courier{
		UserID:        r.UserID,
		Name:          r.Name,
		Phone:         r.Phone,
		TransportType: r.TransportType,
		ServiceAreaID: r.ServiceAreaID,
	}
}

func (r updateCourierRequest) toModel(id int64) domain.PartialCourierUpdate {
	return domain.PartialCourierUpdate{
		ID:            id,
		Name:          r.Name,
		Phone:         r.Phone,
		Status:        r.Status,
		TransportType: r.TransportType,
		ServiceAreaID: r.ServiceAreaID,
	}
}

// location returns the optional position. Exactly one half present is an error.
func (r availabilityRequest) location() (*domain.Coordinate, error) {
	switch {
	case r.Latitude == nil && r.Longitude == nil:
		return nil, nil
	case r.Latitude == nil || r.Longitude == nil:
		return nil, badRequest("latitude and longitude go together")
	}
	return &domain.Coordinate{Lat: *r.Latitude, Lng: *r.Longitude}, nil
}

func (r locationRequest) point() (float64, float64, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return 0, 0, badRequest("latitude and longitude are required")
	}
	return *r.Latitude, *r.Longitude, nil
}

func courierToResponse(c domain.Courier) courierDTO {
	return courierDTO{
		ID:                c.ID,
		UserID:            c.UserID,
		Name:              c.Name,
		Phone:             c.Phone,
		Status:            c.Status,
		TransportType:     c.TransportType,
		ServiceAreaID:     c.ServiceAreaID,
		Location:          optionalCoordinate(c.Location),
		LocationUpdatedAt: c.LocationUpdatedAt,
		TotalDeliveries:   c.TotalDeliveries,
	}
}

func couriersToResponse(list []domain.Courier) []courierDTO {
	out := make([]courierDTO, 0, len(list))
	for _, c := range list {
		out = append(out, courierToResponse(c))
	}
	return out
}

func routeToResponse(orderID string, route []domain.LocationHistoryEntry, total float64) routeResponse {
	points := make([]routePointDTO, 0, len(route))
	for _, e := range route {
		points = append(points, routePointDTO{Latitude: e.Coordinate.Lat, Longitude: e.Coordinate.Lng, RecordedAt: e.RecordedAt})
	}
	return routeResponse{OrderID: orderID, Points: points, TotalDistanceKm: total}
}

func availableToResponse(list []domain.AvailableDelivery) []availableDeliveryDTO {
	out := make([]availableDeliveryDTO, 0, len(list))
	for _, d := range list {
		out = append(out, availableDeliveryDTO{
			OrderID:         d.OrderID,
			VendorLocation:  coordinateOf(d.Pickup),
			Destination:     optionalCoordinate(d.Destination),
			DeliveryAddress: d.DeliveryAddress,
			DistanceKm:      d.DistanceKm,
		})
	}
	return out
}

func notifyResultToResponse(res domain.NotifyResult) notifyResultResponse {
	ids := res.CandidateIDs
	if ids == nil {
		ids = []int64{}
	}
	return notifyResultResponse{
		OrderID:       res.OrderID,
		CandidateIDs:  ids,
		NotifiedCount: res.NotifiedCount,
		Failed:        res.Failed,
		ExpiresAt:     res.ExpiresAt,
	}
}

// place validates an event location. Both coordinates are mandatory.
func (p placeDTO) place(field string) (notify.Place, error) {
	if p.Lat == nil || p.Lng == nil {
		return notify.Place{}, badRequest(field + " requires lat and lng")
	}
	c := domain.Coordinate{Lat: *p.Lat, Lng: *p.Lng}
	if err := geo.Validate(c); err != nil {
		return notify.Place{}, err
	}
	return notify.PlaceOf(c, p.Address), nil
}

func areaToResponse(a *domain.ServiceArea) areaDTO {
	poly := make([]coordinateDTO, 0, len(a.Polygon))
	for _, c := range a.Polygon {
		poly = append(poly, coordinateOf(c))
	}
	return areaDTO{ID: a.ID, Name: a.Name, Polygon: poly, Centroid: coordinateOf(a.Centroid), AreaKm2: a.AreaKm2}
}
