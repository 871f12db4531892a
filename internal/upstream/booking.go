package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/carepath/carepath/internal/domain"
)

// AvailabilityMap maps weekday names to the open slot labels a doctor
// offers on that weekday. Slot labels are opaque strings; they are
// compared byte for byte and never parsed.
type AvailabilityMap map[string][]string

// BookingRequest is the payload the booking backend expects. Day combines
// the weekday label with the resolved calendar date, for example
// "Monday (2024-06-17)".
type BookingRequest struct {
	UserID   string `json:"user_id"`
	DoctorID string `json:"doctor_id"`
	Day      string `json:"day"`
	Slot     string `json:"slot"`
}

// Appointment is a confirmed booking as the backend reports it.
type Appointment struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	DoctorID   string `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
	Day        string `json:"day"`
	Slot       string `json:"slot"`
	Status     string `json:"status"`
}

// DoctorSlots fetches a doctor's weekly availability.
func (c *Client) DoctorSlots(ctx context.Context, doctorID string) (AvailabilityMap, error) {
	var resp struct {
		AvailableSlots AvailabilityMap `json:"available_slots"`
	}
	path := "/user/doctors/" + url.PathEscape(doctorID) + "/slots"
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.NewNotFoundError("doctor", doctorID)
		}
		return nil, err
	}
	return resp.AvailableSlots, nil
}

// BookAppointment submits a booking. A 409 from the backend means another
// patient took the slot between display and submission.
func (c *Client) BookAppointment(ctx context.Context, token string, req BookingRequest) (*Appointment, error) {
	var resp struct {
		Message     string      `json:"message"`
		Appointment Appointment `json:"appointment"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/book-appointment", token, req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return nil, domain.NewBookingConflictError(req.Slot)
		}
		return nil, err
	}
	return &resp.Appointment, nil
}

// Appointments lists a user's booked appointments.
func (c *Client) Appointments(ctx context.Context, token, userID string) ([]Appointment, error) {
	var resp struct {
		Appointments []Appointment `json:"appointments"`
	}
	path := "/user/appointments/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Appointments, nil
}

// CancelAppointment deletes a booking on the backend. Callers only drop
// the appointment from their local cache after this succeeds.
func (c *Client) CancelAppointment(ctx context.Context, token, id string) error {
	path := "/user/cancel-appointment/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodDelete, path, token, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return domain.NewNotFoundError("appointment", id)
	}
	return err
}
