package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"scanwise-server/internal/models"
)

// Filters is the composable predicate set applied before projection.
// All active predicates are combined with logical AND; zero values are
// permissive.
type Filters struct {
	// Statuses matches against the effective status; empty matches all.
	Statuses []models.AppointmentStatus
	// HighPriorityOnly keeps only high-priority appointments.
	HighPriorityOnly bool
	// Search is a case-insensitive substring match against the patient
	// display label and the appointment id.
	Search string
	// From/To bound the start instant inclusively; an absent bound is
	// permissive.
	From *time.Time
	To   *time.Time
	// WeekOf, when set, restricts to the Sunday-to-Saturday week
	// containing that date. Passed-but-not-canceled appointments are
	// always included regardless of week so expired bookings stay
	// visible on the calendar.
	WeekOf *time.Time
}

// Apply filters the collection against the wall clock at `at` and
// returns the survivors in their original order.
func (f Filters) Apply(appts []models.Appointment, at time.Time) []models.Appointment {
	out := make([]models.Appointment, 0, len(appts))
	for i := range appts {
		if f.Match(&appts[i], at) {
			out = append(out, appts[i])
		}
	}
	return out
}

// Match evaluates every active predicate against one appointment.
func (f Filters) Match(a *models.Appointment, at time.Time) bool {
	effective := EffectiveStatus(a, at)
	return f.matchesWeek(a, effective) &&
		f.matchesStatus(effective) &&
		f.matchesSearch(a) &&
		f.matchesPriority(a) &&
		f.matchesRange(a)
}

func (f Filters) matchesStatus(effective models.AppointmentStatus) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == effective {
			return true
		}
	}
	return false
}

func (f Filters) matchesPriority(a *models.Appointment) bool {
	return !f.HighPriorityOnly || a.Priority == models.PriorityHigh
}

func (f Filters) matchesSearch(a *models.Appointment) bool {
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(a.DisplayLabel()), q) ||
		strings.Contains(strings.ToLower(a.ID), q)
}

func (f Filters) matchesRange(a *models.Appointment) bool {
	if f.From == nil && f.To == nil {
		return true
	}
	start, err := a.StartAt()
	if err != nil {
		return false
	}
	if f.From != nil && start.Before(*f.From) {
		return false
	}
	if f.To != nil && start.After(*f.To) {
		return false
	}
	return true
}

func (f Filters) matchesWeek(a *models.Appointment, effective models.AppointmentStatus) bool {
	if f.WeekOf == nil {
		return true
	}
	// The carve-out is exact: only the derived passed state bypasses
	// the week window. Canceled-and-past appointments drop out of the
	// calendar entirely.
	if effective == models.StatusPassed {
		return true
	}
	start, err := a.StartAt()
	if err != nil {
		return false
	}
	weekStart := now.New(*f.WeekOf).BeginningOfWeek()
	weekEnd := weekStart.AddDate(0, 0, 7)
	return !start.Before(weekStart) && start.Before(weekEnd)
}

// SortDescending orders appointments most recent first by start
// instant, the canonical ordering re-applied after every mutation.
// Rows with unparseable dates sink to the end.
func SortDescending(appts []models.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		si, erri := appts[i].StartAt()
		sj, errj := appts[j].StartAt()
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return si.After(sj)
	})
}
