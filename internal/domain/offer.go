package domain

import "time"

// OfferState is the resolution outcome of a DeliveryOffer.
type OfferState string

// Offer states.
const (
	OfferPending   OfferState = "pending"
	OfferAccepted  OfferState = "accepted"
	OfferExpired   OfferState = "expired"
	OfferCancelled OfferState = "cancelled"
)

// Candidate is a courier an offer was sent to.
type Candidate struct {
	CourierID     int64
	UserID        string
	DistanceKm    float64 // courier to pickup
	PaymentAmount float64
}

// DeliveryOffer is an ephemeral, time-boxed assignment proposal for one order.
type DeliveryOffer struct {
	OrderID    string
	Candidates []Candidate
	RadiusKm   float64
	Round      int
	CreatedAt  time.Time
	ExpiresAt  time.Time
	State      OfferState
	AcceptedBy int64
	ResolvedAt time.Time
}

// Expired reports whether the offer window has passed at now.
func (o DeliveryOffer) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OtherCandidates returns the user ids of every candidate except courierID.
func (o DeliveryOffer) OtherCandidates(courierID int64) []string {
	out := make([]string, 0, len(o.Candidates))
	for _, c := range o.Candidates {
		if c.CourierID != courierID {
			out = append(out, c.UserID)
		}
	}
	return out
}

// CandidateUserIDs returns the user ids of all candidates.
func (o DeliveryOffer) CandidateUserIDs() []string {
	return o.OtherCandidates(0)
}

// Assignment is the committed courier-to-order binding.
type Assignment struct {
	OrderID    string
	CourierID  int64
	AssignedAt time.Time
}

// NotifyResult summarises a notifyNearbyCouriers run.
type NotifyResult struct {
	OrderID       string
	CandidateIDs  []int64
	NotifiedCount int
	Failed        int
	ExpiresAt     time.Time
}

// OfferEscalation is handed to operations when an offer expired without acceptance.
type OfferEscalation struct {
	OrderID      string    `json:"orderId"`
	CandidateIDs []int64   `json:"candidateIds"`
	RadiusKm     float64   `json:"radiusKm"`
	Round        int       `json:"round"`
	ExpiredAt    time.Time `json:"expiredAt"`
}
