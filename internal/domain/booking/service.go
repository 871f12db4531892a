package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/upstream"
)

// Backend is the slice of the upstream client this service uses.
type Backend interface {
	DoctorSlots(ctx context.Context, doctorID string) (upstream.AvailabilityMap, error)
	BookAppointment(ctx context.Context, token string, req upstream.BookingRequest) (*upstream.Appointment, error)
	Appointments(ctx context.Context, token, userID string) ([]upstream.Appointment, error)
	CancelAppointment(ctx context.Context, token, id string) error
}

// Service owns every booking flow and the per-user appointment cache. The
// cache mirrors the booking backend; it is refreshed on demand and never
// mutated optimistically.
type Service struct {
	backend Backend
	logger  zerolog.Logger

	mu           sync.Mutex
	flows        map[string]*Flow
	appointments map[string][]upstream.Appointment

	// now is injectable so window arithmetic is testable.
	now func() time.Time
}

func NewService(backend Backend, logger zerolog.Logger) *Service {
	return &Service{
		backend:      backend,
		logger:       logger,
		flows:        make(map[string]*Flow),
		appointments: make(map[string][]upstream.Appointment),
		now:          time.Now,
	}
}

// buildDays enumerates the booking window starting today, resolving each
// weekday label against the doctor's availability.
func (s *Service) buildDays(availability upstream.AvailabilityMap) []DayOption {
	today := s.now()
	days := make([]DayOption, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		d := today.AddDate(0, 0, i)
		weekday := d.Weekday().String()
		slots := availability[weekday]
		if slots == nil {
			slots = []string{}
		}
		days = append(days, DayOption{
			Weekday: weekday,
			Date:    d.Format("2006-01-02"),
			Slots:   slots,
		})
	}
	return days
}

// StartFlow opens a booking flow for one doctor and fetches availability.
func (s *Service) StartFlow(ctx context.Context, userID, doctorID string) (*Flow, error) {
	if userID == "" {
		return nil, domain.NewAuthRequiredError("book an appointment")
	}
	if doctorID == "" {
		return nil, domain.NewValidationError("doctor_id is required")
	}

	availability, err := s.backend.DoctorSlots(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	flow := &Flow{
		ID:           uuid.NewString(),
		UserID:       userID,
		DoctorID:     doctorID,
		State:        StateClosed,
		Days:         s.buildDays(availability),
		CreatedAt:    s.now(),
		availability: availability,
	}

	s.mu.Lock()
	s.flows[flow.ID] = flow
	s.mu.Unlock()

	return snapshot(flow), nil
}

// flowFor resolves a flow for its owner. Someone else's flow reads as
// missing; flow ids are not shareable handles. Callers hold s.mu.
func (s *Service) flowFor(userID, flowID string) (*Flow, error) {
	flow, ok := s.flows[flowID]
	if !ok || flow.UserID != userID {
		return nil, domain.NewNotFoundError("booking flow", flowID)
	}
	return flow, nil
}

// GetFlow returns the current state of a flow.
func (s *Service) GetFlow(userID, flowID string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, err := s.flowFor(userID, flowID)
	if err != nil {
		return nil, err
	}
	return snapshot(flow), nil
}

// SelectDate picks a date inside the window. Changing the date always
// clears any previously chosen slot.
func (s *Service) SelectDate(userID, flowID, date string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, err := s.flowFor(userID, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State == StateSubmitting {
		return nil, domain.NewValidationError("booking is being submitted")
	}

	var day *DayOption
	for i := range flow.Days {
		if flow.Days[i].Date == date {
			day = &flow.Days[i]
			break
		}
	}
	if day == nil {
		return nil, domain.NewValidationError(
			fmt.Sprintf("date %q is outside the booking window", date))
	}

	flow.SelectedDate = day.Date
	flow.SelectedWeekday = day.Weekday
	flow.SelectedSlot = ""
	flow.State = StateDateSelected
	flow.LastError = ""

	return snapshot(flow), nil
}

// SelectSlot picks a slot for the chosen date. The slot must appear in
// the doctor's availability for that weekday.
func (s *Service) SelectSlot(userID, flowID, slot string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, err := s.flowFor(userID, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State == StateSubmitting {
		return nil, domain.NewValidationError("booking is being submitted")
	}
	if flow.SelectedDate == "" {
		return nil, domain.NewValidationError("select a date before choosing a slot")
	}

	open := flow.availability[flow.SelectedWeekday]
	if len(open) == 0 {
		return nil, domain.NewValidationError(
			fmt.Sprintf("no slots available on %s", flow.SelectedWeekday))
	}
	found := false
	for _, s := range open {
		if s == slot {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.NewValidationError(
			fmt.Sprintf("slot %q is not available on %s", slot, flow.SelectedWeekday))
	}

	flow.SelectedSlot = slot
	flow.State = StateSlotSelected
	flow.LastError = ""

	return snapshot(flow), nil
}

// Confirm submits the booking. On success the flow is booked, the
// doctor's availability is refetched, and the appointment joins the
// user's cached list. On conflict or network failure the flow returns to
// slot_selected with the error recorded, so the patient decides what
// happens next.
func (s *Service) Confirm(ctx context.Context, token, userID, flowID string) (*Flow, error) {
	s.mu.Lock()
	flow, err := s.flowFor(userID, flowID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	switch flow.State {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, domain.NewValidationError("booking is already being submitted")
	case StateBooked:
		s.mu.Unlock()
		return nil, domain.NewValidationError("booking is already confirmed")
	}
	if flow.SelectedDate == "" || flow.SelectedSlot == "" {
		s.mu.Unlock()
		return nil, domain.NewValidationError("select a date and slot before confirming")
	}

	flow.State = StateSubmitting
	req := upstream.BookingRequest{
		UserID:   flow.UserID,
		DoctorID: flow.DoctorID,
		Day:      dayLabel(flow.SelectedWeekday, flow.SelectedDate),
		Slot:     flow.SelectedSlot,
	}
	s.mu.Unlock()

	appt, err := s.backend.BookAppointment(ctx, token, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		flow.State = StateSlotSelected
		var de *domain.Error
		if errors.As(err, &de) {
			flow.LastError = de.UserMessage()
		} else {
			flow.LastError = "booking failed"
		}
		return nil, err
	}

	flow.State = StateBooked
	flow.Appointment = appt
	flow.LastError = ""
	s.appointments[flow.UserID] = append(s.appointments[flow.UserID], *appt)

	// Refresh availability so the consumed slot disappears from the flow.
	// Best effort: a failed refresh keeps the stale map and is logged.
	if fresh, ferr := s.backend.DoctorSlots(ctx, flow.DoctorID); ferr != nil {
		s.logger.Warn().Str("doctor_id", flow.DoctorID).Err(ferr).Msg("availability refresh failed")
	} else {
		flow.availability = fresh
		flow.Days = s.buildDays(fresh)
	}

	return snapshot(flow), nil
}

// Appointments refreshes and returns the user's booked appointments. The
// cache is replaced only on success; a failed refresh keeps prior state.
func (s *Service) Appointments(ctx context.Context, token, userID string) ([]upstream.Appointment, error) {
	if userID == "" {
		return nil, domain.NewAuthRequiredError("view appointments")
	}

	appts, err := s.backend.Appointments(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.appointments[userID] = appts
	s.mu.Unlock()
	return appts, nil
}

// Cancel deletes a booking on the backend first, then drops it from the
// cache. Cancelling an id the cache never held still issues the delete;
// the local removal is simply a no-op.
func (s *Service) Cancel(ctx context.Context, token, userID, appointmentID string) error {
	if userID == "" {
		return domain.NewAuthRequiredError("cancel an appointment")
	}
	if appointmentID == "" {
		return domain.NewValidationError("appointment id is required")
	}

	if err := s.backend.CancelAppointment(ctx, token, appointmentID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.appointments[userID]
	for i, a := range list {
		if a.ID == appointmentID {
			s.appointments[userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// CachedAppointments returns the last known list without a network call.
func (s *Service) CachedAppointments(userID string) []upstream.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upstream.Appointment(nil), s.appointments[userID]...)
}

// snapshot copies a flow so callers never share the mutable instance.
func snapshot(f *Flow) *Flow {
	cp := *f
	cp.Days = append([]DayOption(nil), f.Days...)
	return &cp
}
