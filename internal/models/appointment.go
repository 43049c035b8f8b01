package models

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the stored status of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"

	// StatusPassed is derived from wall-clock time at read time and is
	// never written to the database.
	StatusPassed AppointmentStatus = "passed"
)

// AppointmentPriority flags an appointment for filtering and visual
// emphasis only; it never affects scheduling eligibility.
type AppointmentPriority string

const (
	PriorityNormal AppointmentPriority = "normal"
	PriorityHigh   AppointmentPriority = "high"
)

const (
	// AppointmentDuration is the fixed length of every scan slot.
	AppointmentDuration = 30 * time.Minute

	// DateLayout and TimeLayout are the wire formats for the date and
	// time columns. All times are local wall clock.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment represents a scheduled scan appointment.
type Appointment struct {
	BaseModel
	PatientID string              `gorm:"size:36;index" json:"patientId"`
	Date      string              `gorm:"size:10" json:"date"`
	Time      string              `gorm:"size:5" json:"time"`
	Reason    string              `gorm:"size:255" json:"reason"`
	Priority  AppointmentPriority `gorm:"size:10;default:'normal'" json:"priority"`
	Status    AppointmentStatus   `gorm:"size:20;default:'pending'" json:"status"`

	// Relations
	Patient Patient `gorm:"foreignKey:PatientID" json:"patient"`
}

// StartAt combines the date and time columns into a single local
// timestamp.
func (a *Appointment) StartAt() (time.Time, error) {
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date/time %q %q: %w", a.Date, a.Time, err)
	}
	return start, nil
}

// EndAt returns the end of the appointment's fixed 30-minute window.
func (a *Appointment) EndAt() (time.Time, error) {
	start, err := a.StartAt()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(AppointmentDuration), nil
}

// DisplayLabel is the patient-facing label used in lists and search:
// the patient's full name with the visit reason.
func (a *Appointment) DisplayLabel() string {
	name := a.Patient.FullName
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%s)", name, a.Reason)
}

// Validate checks that a hydrated appointment record is well formed.
// Legacy rows with out-of-catalog times are tolerated; only missing or
// unparseable fields are rejected.
func (a *Appointment) Validate() error {
	var missing []string
	if a.Date == "" {
		missing = append(missing, "date")
	}
	if a.Time == "" {
		missing = append(missing, "time")
	}
	if a.Reason == "" {
		missing = append(missing, "reason")
	}
	if a.Patient.FullName == "" {
		missing = append(missing, "patient name")
	}
	if a.Patient.Email == "" {
		missing = append(missing, "patient email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := a.StartAt(); err != nil {
		return err
	}
	return nil
}

// IsValidStoredStatus reports whether s is a status value that may be
// persisted. The derived "passed" overlay is deliberately excluded.
func IsValidStoredStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}
