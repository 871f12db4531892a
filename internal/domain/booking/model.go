package booking

import (
	"time"

	"github.com/carepath/carepath/internal/upstream"
)

// State is the lifecycle position of a booking flow. Confirm failures
// return the flow to StateSlotSelected so the patient can retry or pick a
// different slot; nothing is ever auto-retried.
type State string

const (
	StateClosed       State = "closed"
	StateDateSelected State = "date_selected"
	StateSlotSelected State = "slot_selected"
	StateSubmitting   State = "submitting"
	StateBooked       State = "booked"
)

// horizonDays is the booking window: today plus the next three calendar
// days. Dates outside it are rejected before any network call.
const horizonDays = 4

// DayOption is one selectable day in the window, with the doctor's open
// slots for that weekday. Slot labels are opaque and compared byte for
// byte.
type DayOption struct {
	Weekday string   `json:"weekday"`
	Date    string   `json:"date"`
	Slots   []string `json:"slots"`
}

// Flow is one patient's booking attempt against one doctor. It caches the
// doctor's availability at open time and refreshes it after a successful
// booking.
type Flow struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"user_id"`
	DoctorID        string                   `json:"doctor_id"`
	State           State                    `json:"state"`
	Days            []DayOption              `json:"days"`
	SelectedDate    string                   `json:"selected_date,omitempty"`
	SelectedWeekday string                   `json:"selected_weekday,omitempty"`
	SelectedSlot    string                   `json:"selected_slot,omitempty"`
	Appointment     *upstream.Appointment    `json:"appointment,omitempty"`
	LastError       string                   `json:"last_error,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`

	availability upstream.AvailabilityMap
}

// dayLabel renders the payload format the booking backend expects for a
// selection, for example "Monday (2024-06-17)".
func dayLabel(weekday, date string) string {
	return weekday + " (" + date + ")"
}
