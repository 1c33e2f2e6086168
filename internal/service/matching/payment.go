package matching

import "math"

// PaymentPolicy prices an offer: a flat base plus a per-kilometre rate.
type PaymentPolicy struct {
	Base  float64
	PerKm float64
}

// Amount returns the payment for a delivery of distanceKm, rounded to cents.
func (p PaymentPolicy) Amount(distanceKm float64) float64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	return math.Round((p.Base+p.PerKm*distanceKm)*100) / 100
}
