package geo

import "math"

// Defaults for ETA derivation.
const (
	DefaultAverageSpeedKmh = 30.0
	DefaultBufferMinutes   = 5
)

// ETA derives arrival estimates from distance.
type ETA struct {
	AverageSpeedKmh float64
	BufferMinutes   int
}

// NewETA returns an ETA calculator, falling back to defaults for non-positive speed
// and negative buffer.
func NewETA(averageSpeedKmh float64, bufferMinutes int) ETA {
	if averageSpeedKmh <= 0 || math.IsNaN(averageSpeedKmh) {
		averageSpeedKmh = DefaultAverageSpeedKmh
	}
	if bufferMinutes < 0 {
		bufferMinutes = DefaultBufferMinutes
	}
	return ETA{AverageSpeedKmh: averageSpeedKmh, BufferMinutes: bufferMinutes}
}

// Minutes returns ceil(distanceKm * 60 / speed) + buffer. Negative or NaN distances count as zero.
func (e ETA) Minutes(distanceKm float64) int {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	return int(math.Ceil(distanceKm*60/e.AverageSpeedKmh)) + e.BufferMinutes
}
