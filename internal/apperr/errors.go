package apperr

import "errors"

// Error kinds. Every business-rule violation returned by the services wraps exactly one of them.
var (
	// ErrInvalid is returned when the input fails domain validation.
	ErrInvalid = errors.New("invalid input")
	// ErrInvalidCoordinate is returned for latitude/longitude outside WGS84 bounds or not finite.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrNotFound indicates that the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition indicates valid entities with missing prerequisite data.
	ErrPrecondition = errors.New("precondition failed")
	// ErrConflict indicates that the state was already changed by a concurrent actor (HTTP 409).
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the actor has no authority over the target entity.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest indicates a status transition requested out of order.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = errors.New("unauthorized")
)

var codes = map[error]string{
	ErrInvalid:           "INVALID_INPUT",
	ErrInvalidCoordinate: "INVALID_COORDINATE",
	ErrNotFound:          "NOT_FOUND",
	ErrPrecondition:      "PRECONDITION_FAILED",
	ErrConflict:          "CONFLICT",
	ErrForbidden:         "FORBIDDEN",
	ErrBadRequest:        "BAD_REQUEST",
	ErrUnauthorized:      "UNAUTHORIZED",
}

// Error is a kind plus a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind with a message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Message returns the caller-facing message of err, falling back to the kind text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.Error()
	}
	for kind := range codes {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}

// Code returns a stable machine-readable code for err, "INTERNAL" for unknown errors.
func Code(err error) string {
	for kind, code := range codes {
		if errors.Is(err, kind) {
			return code
		}
	}
	return "INTERNAL"
}
