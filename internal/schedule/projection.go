package schedule

import (
	"time"

	"github.com/jinzhu/now"

	"scanwise-server/internal/models"
)

// PositionedEvent is one calendar card with its computed pixel
// geometry for the week-grid view.
type PositionedEvent struct {
	Appointment models.Appointment       `json:"appointment"`
	Status      models.AppointmentStatus `json:"status"`
	Top         float64                  `json:"top"`
	Left        int                      `json:"left"`
	Width       int                      `json:"width"`
	Height      int                      `json:"height"`
}

// CalendarProjection is the shape the week-grid view consumes.
type CalendarProjection struct {
	Days            []time.Time       `json:"days"`
	Events          []PositionedEvent `json:"events"`
	ContainerWidth  int               `json:"containerWidth"`
	NowMarkerOffset *float64          `json:"nowMarkerOffset,omitempty"`
}

// ListRow is one row of the flat list view, an appointment with its
// effective status and resolved start/end instants.
type ListRow struct {
	Appointment models.Appointment       `json:"appointment"`
	Status      models.AppointmentStatus `json:"status"`
	Start       time.Time                `json:"start"`
	End         time.Time                `json:"end"`
}

// BuildListProjection maps an already-filtered, already-sorted
// collection into list rows, recomputing the effective status at `at`.
// Rows whose date/time cannot be parsed are skipped rather than
// failing the whole listing.
func BuildListProjection(appts []models.Appointment, at time.Time) []ListRow {
	rows := make([]ListRow, 0, len(appts))
	for i := range appts {
		start, err := appts[i].StartAt()
		if err != nil {
			continue
		}
		rows = append(rows, ListRow{
			Appointment: appts[i],
			Status:      EffectiveStatus(&appts[i], at),
			Start:       start,
			End:         start.Add(models.AppointmentDuration),
		})
	}
	return rows
}

// BuildCalendarProjection lays out one day of a filtered collection on
// the week grid. Appointments sharing an exact (date, time) get
// ascending horizontal offsets in stable input order; the container is
// wide enough for the day's largest same-slot group. The now marker is
// present only when the viewed day is the current date.
func BuildCalendarProjection(appts []models.Appointment, day time.Time, at time.Time) CalendarProjection {
	proj := CalendarProjection{Days: WeekDays(day)}

	groupSize := make(map[string]int)
	maxConcurrency := 0
	for i := range appts {
		a := &appts[i]
		if a.Date != day.Format(models.DateLayout) {
			continue
		}
		minutes, err := MinutesSinceMidnight(a.Time)
		if err != nil {
			continue
		}
		key := a.Date + "T" + a.Time
		index := groupSize[key]
		groupSize[key] = index + 1
		if groupSize[key] > maxConcurrency {
			maxConcurrency = groupSize[key]
		}

		proj.Events = append(proj.Events, PositionedEvent{
			Appointment: *a,
			Status:      EffectiveStatus(a, at),
			Top:         (float64(minutes)/60 - BaseHour) * RowHeightPx,
			Left:        CardMarginPx + index*(CardWidthPx+CardGapPx),
			Width:       CardWidthPx,
			Height:      RowHeightPx,
		})
	}

	proj.ContainerWidth = CardMarginPx + maxConcurrency*(CardWidthPx+CardGapPx)
	if sameDay(day, at) {
		offset := NowMarkerOffset(at)
		proj.NowMarkerOffset = &offset
	}
	return proj
}

// WeekDays returns the seven days of the Sunday-based week containing
// date.
func WeekDays(date time.Time) []time.Time {
	start := now.New(date).BeginningOfWeek()
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// NowMarkerOffset computes the vertical position of the current-time
// line using the same geometry as the event cards.
func NowMarkerOffset(at time.Time) float64 {
	minutes := at.Hour()*60 + at.Minute()
	return (float64(minutes)/60 - BaseHour) * RowHeightPx
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
