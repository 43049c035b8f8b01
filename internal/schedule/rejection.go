package schedule

import (
	"errors"
	"fmt"
)

// RejectionCode identifies why a booking or mutation was refused before
// reaching the store.
type RejectionCode string

const (
	RejectValidation        RejectionCode = "validation"
	RejectInvalidSlot       RejectionCode = "invalid_slot"
	RejectPastSlot          RejectionCode = "past_slot"
	RejectStaleAppointment  RejectionCode = "stale_appointment"
	RejectIllegalTransition RejectionCode = "illegal_transition"
)

// Rejection is a user-actionable refusal. It satisfies error so it can
// flow through ordinary return paths, but callers are expected to
// branch on it with AsRejection rather than treat it as a failure.
type Rejection struct {
	Code   RejectionCode
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func rejectf(code RejectionCode, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err as a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// ErrNotFound is returned by stores when no appointment matches the
// requested id.
var ErrNotFound = errors.New("appointment not found")
