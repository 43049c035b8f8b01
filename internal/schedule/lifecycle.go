package schedule

import (
	"time"

	"scanwise-server/internal/models"
)

// storedTransitions is the one-way status lattice. Approving, rejecting
// and canceling all funnel through this table so an illegal transition
// fails identically regardless of which endpoint attempted it.
// "completed" is a valid stored value but nothing in the booking,
// approval or cancellation flows produces it.
var storedTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:  {models.StatusApproved, models.StatusCanceled},
	models.StatusApproved: {models.StatusCanceled},
}

// CanTransition reports whether the stored status may move from one
// value to another. Canceled and completed are terminal.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, allowed := range storedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanReschedule reports whether an appointment in the given stored
// status may be moved to a new date/time. A canceled appointment can
// never be rescheduled back to active.
func CanReschedule(from models.AppointmentStatus) bool {
	return from == models.StatusPending || from == models.StatusApproved
}

// EffectiveStatus derives the status a consumer sees: canceled wins
// over everything, then "passed" overlays any appointment whose start
// is strictly before now. Must be recomputed on every read; the result
// changes as the wall clock crosses the start instant.
func EffectiveStatus(a *models.Appointment, at time.Time) models.AppointmentStatus {
	if a.Status == models.StatusCanceled {
		return models.StatusCanceled
	}
	start, err := a.StartAt()
	if err != nil {
		// Malformed legacy rows keep their stored status rather than
		// being hidden behind a derived state.
		return a.Status
	}
	if start.Before(at) {
		return models.StatusPassed
	}
	return a.Status
}

// guardNotPassed rejects any mutation of a passed appointment. The
// refusal is surfaced to the user, never silently dropped.
func guardNotPassed(a *models.Appointment, at time.Time) error {
	if EffectiveStatus(a, at) == models.StatusPassed {
		return rejectf(RejectStaleAppointment, "cannot modify passed appointments")
	}
	return nil
}
