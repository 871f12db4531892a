package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure classes the orchestrator distinguishes.
// Everything a handler needs to pick a status code flows through errors.Is
// against one of these.
var (
	// ErrValidation marks input rejected before any network call was made.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork marks an upstream transport failure or timeout.
	ErrNetwork = errors.New("upstream unreachable")
	// ErrBookingConflict marks a slot taken between display and submission.
	ErrBookingConflict = errors.New("slot already booked")
	// ErrAuthRequired marks an operation attempted without a signed-in user.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("resource not found")
	// ErrTurnInFlight marks a chat message sent while a previous turn is
	// still awaiting its reply.
	ErrTurnInFlight = errors.New("turn already in flight")
)

// Error carries a stable code and a user-facing message around one of the
// sentinel errors above.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the message safe to show to a patient. Transport
// details stay in Err and reach logs only.
func (e *Error) UserMessage() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports bad input. No network call may follow it.
func NewValidationError(message string) error {
	return &Error{Code: "VALIDATION", Message: message, Err: ErrValidation}
}

// NewNetworkError wraps an upstream transport failure.
func NewNetworkError(op string, err error) error {
	return &Error{
		Code:    "NETWORK",
		Message: "the service is temporarily unavailable, please try again",
		Err:     fmt.Errorf("%w: %s: %v", ErrNetwork, op, err),
	}
}

// NewBookingConflictError reports a slot consumed by another patient.
func NewBookingConflictError(slot string) error {
	return &Error{
		Code:    "BOOKING_CONFLICT",
		Message: fmt.Sprintf("slot %q was just booked by someone else", slot),
		Err:     ErrBookingConflict,
	}
}

// NewAuthRequiredError reports an operation that needs a signed-in user.
func NewAuthRequiredError(op string) error {
	return &Error{
		Code:    "AUTH_REQUIRED",
		Message: fmt.Sprintf("sign in to %s", op),
		Err:     ErrAuthRequired,
	}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource, id string) error {
	return &Error{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Err:     ErrNotFound,
	}
}

// NewTurnInFlightError reports a chat turn rejected because the previous
// one has not completed.
func NewTurnInFlightError(sessionID string) error {
	return &Error{
		Code:    "TURN_IN_FLIGHT",
		Message: "previous message is still being processed",
		Err:     fmt.Errorf("%w: session %s", ErrTurnInFlight, sessionID),
	}
}

func IsValidation(err error) bool      { return errors.Is(err, ErrValidation) }
func IsNetwork(err error) bool         { return errors.Is(err, ErrNetwork) }
func IsBookingConflict(err error) bool { return errors.Is(err, ErrBookingConflict) }
func IsAuthRequired(err error) bool    { return errors.Is(err, ErrAuthRequired) }
func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsTurnInFlight(err error) bool    { return errors.Is(err, ErrTurnInFlight) }

// HTTPStatus maps a domain error to the response status the API uses.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsAuthRequired(err):
		return http.StatusUnauthorized
	case IsNotFound(err):
		return http.StatusNotFound
	case IsBookingConflict(err), IsTurnInFlight(err):
		return http.StatusConflict
	case IsNetwork(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
