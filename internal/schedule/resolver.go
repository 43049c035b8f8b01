package schedule

import (
	"context"
	"fmt"
	"strings"

	"scanwise-server/internal/models"
)

// Store is the external persistence boundary. Implementations own all
// storage concerns; the engine never interprets store failures beyond
// success, not-found and generic failure.
type Store interface {
	List(ctx context.Context, q ListQuery) ([]models.Appointment, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	Create(ctx context.Context, appt *models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
	Delete(ctx context.Context, id string) error
}

// ListQuery narrows a store listing. An empty query lists everything.
type ListQuery struct {
	// Email restricts results to appointments whose patient has this
	// email, the patient portal's "my appointments" view.
	Email string
}

// BookingRequest is a patient's raw booking submission.
type BookingRequest struct {
	FullName      string
	Email         string
	ContactNumber string
	DateOfBirth   string
	Gender        string
	Address       string
	Date          string
	Time          string
	Reason        string
	Priority      models.AppointmentPriority
}

// Scheduler validates bookings, reschedules and status changes against
// the slot catalog, the wall clock and the status lattice before
// delegating persistence to the store.
type Scheduler struct {
	store Store
	clock Clock
}

func NewScheduler(store Store, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{store: store, clock: clock}
}

// ProposeBooking validates a requested (date, slot) and creates a
// pending appointment. Two appointments may share a slot: concurrent
// same-slot bookings are laid out side by side by the calendar, so the
// only time-based refusal is booking into the past.
func (s *Scheduler) ProposeBooking(ctx context.Context, req BookingRequest) (*models.Appointment, error) {
	if err := validateBookingRequest(&req); err != nil {
		return nil, err
	}
	if err := s.validateSlot(req.Date, req.Time); err != nil {
		return nil, err
	}

	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	appt := &models.Appointment{
		Date:     req.Date,
		Time:     req.Time,
		Reason:   req.Reason,
		Priority: req.Priority,
		Status:   models.StatusPending,
		Patient: models.Patient{
			FullName:      req.FullName,
			Email:         req.Email,
			ContactNumber: req.ContactNumber,
			DateOfBirth:   req.DateOfBirth,
			Gender:        req.Gender,
			Address:       req.Address,
		},
	}
	if err := s.store.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return appt, nil
}

// ProposeReschedule moves an appointment to a new date/time and resets
// its stored status to pending. Only pending and approved appointments
// qualify; passed appointments reject all mutation.
func (s *Scheduler) ProposeReschedule(ctx context.Context, id, newDate, newTime string) (*models.Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardNotPassed(appt, s.clock.Now()); err != nil {
		return nil, err
	}
	if !CanReschedule(appt.Status) {
		return nil, rejectf(RejectIllegalTransition,
			"cannot reschedule a %s appointment", appt.Status)
	}
	if err := s.validateSlot(newDate, newTime); err != nil {
		return nil, err
	}

	appt.Date = newDate
	appt.Time = newTime
	appt.Status = models.StatusPending
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}
	return appt, nil
}

// ChangeStatus applies an explicit stored-status transition (admin
// approve/reject, patient cancel) through the shared lattice gate.
func (s *Scheduler) ChangeStatus(ctx context.Context, id string, to models.AppointmentStatus) (*models.Appointment, error) {
	if !models.IsValidStoredStatus(to) {
		return nil, rejectf(RejectValidation, "invalid status %q", to)
	}
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardNotPassed(appt, s.clock.Now()); err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		return nil, rejectf(RejectIllegalTransition,
			"cannot move appointment from %s to %s", appt.Status, to)
	}

	appt.Status = to
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return appt, nil
}

// Cancel is a convenience wrapper used by both the patient and admin
// cancellation paths.
func (s *Scheduler) Cancel(ctx context.Context, id string) (*models.Appointment, error) {
	return s.ChangeStatus(ctx, id, models.StatusCanceled)
}

// validateSlot enforces the two scheduling rules: the time must be a
// catalog slot and the combined instant must not be in the past.
func (s *Scheduler) validateSlot(date, slot string) error {
	if !IsValidSlot(slot) {
		return rejectf(RejectInvalidSlot, "time %q is not an available slot", slot)
	}
	candidate := models.Appointment{Date: date, Time: slot}
	start, err := candidate.StartAt()
	if err != nil {
		return rejectf(RejectValidation, "invalid date %q", date)
	}
	if start.Before(s.clock.Now()) {
		return rejectf(RejectPastSlot, "cannot book a past date/time")
	}
	return nil
}

func validateBookingRequest(req *BookingRequest) error {
	required := []struct {
		name, value string
	}{
		{"fullName", req.FullName},
		{"email", req.Email},
		{"contactNumber", req.ContactNumber},
		{"dateOfBirth", req.DateOfBirth},
		{"gender", req.Gender},
		{"date", req.Date},
		{"time", req.Time},
		{"reason", req.Reason},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return rejectf(RejectValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
