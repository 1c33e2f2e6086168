package geo

import (
	"sort"

	"service-dispatch/internal/domain"
)

// Point is an identified coordinate taking part in proximity queries.
type Point struct {
	ID         string
	Coordinate domain.Coordinate
}

// Neighbor is a Point matched by FindWithinRadius.
type Neighbor struct {
	Point
	DistanceKm float64
}

// FindWithinRadius returns the points whose distance to center is at most radiusKm,
// nearest first; ties are broken by ID. Points with invalid coordinates are skipped.
func FindWithinRadius(center domain.Coordinate, radiusKm float64, points []Point) ([]Neighbor, error) {
	if err := Validate(center); err != nil {
		return nil, err
	}
	out := make([]Neighbor, 0, len(points))
	for _, p := range points {
		if !ValidateCoordinate(p.Coordinate.Lat, p.Coordinate.Lng) {
			continue
		}
		d := round2(distanceKm(center, p.Coordinate))
		if d <= radiusKm {
			out = append(out, Neighbor{Point: p, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RouteDistanceKm sums the distances between consecutive points, 0 for fewer than two points.
func RouteDistanceKm(points []domain.Coordinate) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += round2(distanceKm(points[i-1], points[i]))
	}
	return round2(total)
}
