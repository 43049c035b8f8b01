package models

// Role enum for token-based authorization. Accounts themselves are
// owned by the external auth service; only the role claim matters here.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// Patient holds the denormalized patient snapshot attached to
// appointments. Patient identity is owned by the external directory;
// records here are created on demand during booking, keyed by email.
type Patient struct {
	BaseModel
	FullName      string `gorm:"size:255;not null" json:"fullName"`
	Email         string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	ContactNumber string `gorm:"size:50" json:"contactNumber"`
	DateOfBirth   string `gorm:"size:10" json:"dateOfBirth,omitempty"`
	Gender        string `gorm:"size:20" json:"gender,omitempty"`
	Address       string `gorm:"size:255" json:"address,omitempty"`

	// Relations (not always preloaded)
	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"-"`
}
