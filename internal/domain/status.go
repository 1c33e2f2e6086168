package domain

import "regexp"

// Courier availability statuses.
const (
	CourierOffline   CourierStatus = "OFFLINE"
	CourierAvailable CourierStatus = "AVAILABLE"
	CourierBusy      CourierStatus = "BUSY"
)

// List of possible courier transport types
const (
	TransportTypeFoot    CourierTransportType = "on_foot"
	TransportTypeScooter CourierTransportType = "scooter"
	TransportTypeCar     CourierTransportType = "car"
)

var allowedStatuses = [...]CourierStatus{
	CourierOffline, CourierAvailable, CourierBusy,
}

var allowedTransportTypes = [...]CourierTransportType{
	TransportTypeFoot, TransportTypeScooter, TransportTypeCar,
}

// Valid checks if the CourierStatus is valid
func (s CourierStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// SelfSettable reports whether a courier may switch to s on their own.
// BUSY is owned by the matching engine.
func (s CourierStatus) SelfSettable() bool {
	return s == CourierOffline || s == CourierAvailable
}

// Valid checks if the CourierTransportType is valid
func (t CourierTransportType) Valid() bool {
	for _, v := range allowedTransportTypes {
		if t == v {
			return true
		}
	}
	return false
}

var rePhone = regexp.MustCompile(`^\+[0-9]{11}$`)

// ValidatePhone validates the phone number format
func ValidatePhone(s string) bool {
	return rePhone.MatchString(s)
}
