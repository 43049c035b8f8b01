package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"scanwise-server/internal/models"
	"scanwise-server/internal/schedule"
)

// AppointmentStore is the MySQL-backed implementation of
// schedule.Store.
type AppointmentStore struct {
	db *gorm.DB
}

func NewAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

// List returns appointments with their patient snapshot preloaded,
// optionally scoped to a patient email.
func (s *AppointmentStore) List(ctx context.Context, q schedule.ListQuery) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).Preload("Patient")
	if q.Email != "" {
		query = query.Where("patient_id IN (?)",
			s.db.Model(&models.Patient{}).Select("id").Where("email = ?", q.Email))
	}

	var appts []models.Appointment
	if err := query.Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *AppointmentStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").First(&appt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &appt, nil
}

// Create persists a new appointment, reusing an existing patient row
// when one matches the snapshot's email and creating it otherwise.
func (s *AppointmentStore) Create(ctx context.Context, appt *models.Appointment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patient models.Patient
		err := tx.Where("email = ?", appt.Patient.Email).First(&patient).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			patient = appt.Patient
			if err := tx.Create(&patient).Error; err != nil {
				return fmt.Errorf("create patient: %w", err)
			}
		case err != nil:
			return fmt.Errorf("look up patient: %w", err)
		}

		appt.PatientID = patient.ID
		appt.Patient = patient
		if err := tx.Omit("Patient").Create(appt).Error; err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
}

func (s *AppointmentStore) Update(ctx context.Context, appt *models.Appointment) error {
	if err := s.db.WithContext(ctx).Omit("Patient").Save(appt).Error; err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (s *AppointmentStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete appointment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
