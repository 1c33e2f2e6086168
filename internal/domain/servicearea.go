package domain

// ServiceArea is a named polygon scoping which couriers, vendors and customers interoperate.
type ServiceArea struct {
	ID       int64
	Name     string
	Polygon  []Coordinate // closed ring, first == last
	Centroid Coordinate
	AreaKm2  float64
}
