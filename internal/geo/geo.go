// Package geo implements distance, ETA and proximity computations on WGS84 coordinates.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// ValidateCoordinate reports whether lat/lng are finite and inside WGS84 bounds.
func ValidateCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Validate returns apperr.ErrInvalidCoordinate for an out-of-range coordinate.
func Validate(c domain.Coordinate) error {
	if !ValidateCoordinate(c.Lat, c.Lng) {
		return apperr.New(apperr.ErrInvalidCoordinate,
			fmt.Sprintf("coordinate (%v, %v) out of range", c.Lat, c.Lng))
	}
	return nil
}

// DistanceKm returns the great-circle distance between a and b in kilometres,
// rounded to two decimals.
func DistanceKm(a, b domain.Coordinate) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return round2(distanceKm(a, b)), nil
}

func distanceKm(a, b domain.Coordinate) float64 {
	return orbgeo.DistanceHaversine(toPoint(a), toPoint(b)) / 1000
}

func toPoint(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Box is a lat/lng bounding box used to prefilter spatial queries.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box that contains every point within radiusKm of center.
// Longitude bounds are clamped to [-180, 180]; near the poles the box spans all longitudes.
func BoundingBox(center domain.Coordinate, radiusKm float64) Box {
	const kmPerDegLat = 111.32
	dLat := radiusKm / kmPerDegLat
	box := Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}
	cos := math.Cos(center.Lat * math.Pi / 180)
	if cos > 0.01 {
		dLng := radiusKm / (kmPerDegLat * cos)
		box.MinLng = math.Max(-180, center.Lng-dLng)
		box.MaxLng = math.Min(180, center.Lng+dLng)
	}
	return box
}
