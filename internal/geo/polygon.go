package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// Service area size limits in square kilometres.
const (
	MinAreaKm2 = 0.1
	MaxAreaKm2 = 10000
)

// PointInPolygon reports whether point lies inside polygon. The polygon is treated as closed
// even when the last vertex does not repeat the first one.
func PointInPolygon(point domain.Coordinate, polygon []domain.Coordinate) bool {
	if len(polygon) < 3 || !ValidateCoordinate(point.Lat, point.Lng) {
		return false
	}
	return planar.PolygonContains(orb.Polygon{toRing(polygon)}, toPoint(point))
}

func toRing(polygon []domain.Coordinate) orb.Ring {
	ring := make(orb.Ring, 0, len(polygon)+1)
	for _, c := range polygon {
		ring = append(ring, toPoint(c))
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// PolygonStats holds derived properties of a validated service area polygon.
type PolygonStats struct {
	AreaKm2  float64
	Centroid domain.Coordinate
}

// ValidatePolygon checks that polygon is a closed, simple ring with an area inside
// [MinAreaKm2, MaxAreaKm2] and returns its area and centroid.
func ValidatePolygon(polygon []domain.Coordinate) (PolygonStats, error) {
	if len(polygon) < 4 {
		return PolygonStats{}, apperr.New(apperr.ErrInvalid, "polygon needs at least 4 points")
	}
	for _, c := range polygon {
		if err := Validate(c); err != nil {
			return PolygonStats{}, err
		}
	}
	ring := make(orb.Ring, 0, len(polygon))
	for _, c := range polygon {
		ring = append(ring, toPoint(c))
	}
	if !ring.Closed() {
		return PolygonStats{}, apperr.New(apperr.ErrInvalid, "polygon is not closed")
	}
	if selfIntersects(ring) {
		return PolygonStats{}, apperr.New(apperr.ErrInvalid, "polygon intersects itself")
	}
	area := orbgeo.Area(orb.Polygon{ring}) / 1e6
	if area < MinAreaKm2 || area > MaxAreaKm2 {
		return PolygonStats{}, apperr.New(apperr.ErrInvalid,
			fmt.Sprintf("polygon area %.2f km2 outside [%v, %v]", area, MinAreaKm2, MaxAreaKm2))
	}
	centroid, _ := planar.CentroidArea(orb.Polygon{ring})
	return PolygonStats{
		AreaKm2:  round2(area),
		Centroid: domain.Coordinate{Lat: centroid.Lat(), Lng: centroid.Lon()},
	}, nil
}

// selfIntersects checks every pair of non-adjacent edges of a closed ring.
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
