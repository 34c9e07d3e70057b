package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"fmt"
)

type AppointmentService struct {
	repository *repositories.AppointmentRepository
}

func NewAppointmentService(repository *repositories.AppointmentRepository) *AppointmentService {
	return &AppointmentService{repository: repository}
}

// Create rejects appointments that do not end after they start.
func (s *AppointmentService) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.Status == "" {
		appointment.Status = models.AppointmentScheduled
	}
	if err := appointment.Validate(); err != nil {
		return invalid(err)
	}
	return s.repository.Create(ctx, appointment)
}

func (s *AppointmentService) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.To.After(filter.From) {
		return nil, invalid(fmt.Errorf("to must be after from"))
	}
	return s.repository.List(ctx, filter)
}

// Update replaces the appointment's fields, keeping the stored status when none is given.
func (s *AppointmentService) Update(ctx context.Context, appointment *models.Appointment) error {
	current, err := s.repository.GetByID(ctx, appointment.ID)
	if err != nil {
		return err
	}
	if appointment.Status == "" {
		appointment.Status = current.Status
	}
	if err := appointment.Validate(); err != nil {
		return invalid(err)
	}
	appointment.CreatedAt = current.CreatedAt
	return s.repository.Update(ctx, appointment)
}

func (s *AppointmentService) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if !models.ValidAppointmentStatus(status) {
		return invalid(fmt.Errorf("unknown appointment status %q", status))
	}
	return s.repository.UpdateStatus(ctx, id, status)
}

func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	return s.repository.Delete(ctx, id)
}
