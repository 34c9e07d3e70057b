package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PatientInput carries the editable fields of a patient form. Nil pointers
// leave the stored value untouched on update.
type PatientInput struct {
	FirstName     *string                `json:"first_name"`
	LastName      *string                `json:"last_name"`
	Email         *string                `json:"email"`
	Phone         *string                `json:"phone"`
	ChatID        *string                `json:"chat_id"`
	Channel       *string                `json:"channel"`
	DateOfBirth   *string                `json:"date_of_birth"`
	Notes         *string                `json:"notes"`
	PipelineStage *models.PipelineStage  `json:"pipeline_stage"`
	AIEnabled     *bool                  `json:"ai_enabled"`
	Extensions    map[string]interface{} `json:"extensions"`
}

func (in PatientInput) apply(p *models.Patient) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, in.FirstName)
	set(&p.LastName, in.LastName)
	set(&p.Email, in.Email)
	set(&p.Phone, in.Phone)
	set(&p.ChatID, in.ChatID)
	set(&p.Channel, in.Channel)
	set(&p.DateOfBirth, in.DateOfBirth)
	set(&p.Notes, in.Notes)
	if in.Extensions != nil {
		p.Extensions = in.Extensions
	}
}

type PatientService struct {
	patients   *repositories.PatientRepository
	activities *repositories.ActivityRepository
}

func NewPatientService(patients *repositories.PatientRepository, activities *repositories.ActivityRepository) *PatientService {
	return &PatientService{patients: patients, activities: activities}
}

// Create inserts the patient and logs a patient_created activity. A failed
// activity write is logged and does not undo the insert.
func (s *PatientService) Create(ctx context.Context, session models.Session, in PatientInput) (*models.Patient, error) {
	patient := &models.Patient{AIEnabled: true, PipelineStage: models.StageLead}
	in.apply(patient)
	if in.PipelineStage != nil {
		patient.PipelineStage = *in.PipelineStage
	}
	if in.AIEnabled != nil {
		patient.AIEnabled = *in.AIEnabled
	}

	if err := patient.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.record(ctx, session, patient.ID, models.ActivityPatientCreated, fmt.Sprintf("Patient %s created", patient.FullName()))
	return patient, nil
}

func (s *PatientService) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *PatientService) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, error) {
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, invalid(fmt.Errorf("unknown pipeline stage %q", filter.Stage))
	}
	return s.patients.List(ctx, filter)
}

// Update applies a partial form update. Stage changes go through UpdateStage.
func (s *PatientService) Update(ctx context.Context, id string, in PatientInput) (*models.Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(patient)
	if err := patient.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// UpdateStage is the explicit stage change path. It records a stage_changed
// activity when the stage actually changes; an unchanged stage is a no-op.
func (s *PatientService) UpdateStage(ctx context.Context, session models.Session, id string, stage models.PipelineStage) (*models.Patient, error) {
	if !stage.Valid() {
		return nil, invalid(fmt.Errorf("unknown pipeline stage %q", stage))
	}
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient.PipelineStage == stage {
		return patient, nil
	}

	from := patient.PipelineStage
	if err := s.patients.UpdateStage(ctx, id, stage); err != nil {
		return nil, err
	}
	patient.PipelineStage = stage

	s.record(ctx, session, id, models.ActivityStageChanged, fmt.Sprintf("Stage changed from %s to %s", from, stage))
	return patient, nil
}

// SetHandoff moves the conversation to a human (disabling the assistant) or
// back to the assistant.
func (s *PatientService) SetHandoff(ctx context.Context, session models.Session, id string, toHuman bool) (*models.Patient, error) {
	if err := s.patients.SetHandoff(ctx, id, toHuman); err != nil {
		return nil, err
	}
	description := "Conversation handed back to the assistant"
	if toHuman {
		description = "Conversation handed off to a human"
	}
	s.record(ctx, session, id, models.ActivityHandoffChanged, description)
	return s.patients.GetByID(ctx, id)
}

func (s *PatientService) Delete(ctx context.Context, id string) error {
	return s.patients.Delete(ctx, id)
}

func (s *PatientService) Activities(ctx context.Context, id string) ([]models.Activity, error) {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.activities.ListForPatient(ctx, id)
}

func (s *PatientService) record(ctx context.Context, session models.Session, patientID string, kind models.ActivityType, description string) {
	activity := &models.Activity{
		PatientID:   patientID,
		Type:        kind,
		Description: description,
		ActorID:     session.UserID,
	}
	if err := s.activities.Record(ctx, activity); err != nil {
		log.Error().Err(err).Str("patient_id", patientID).Str("type", string(kind)).Msg("failed to record activity")
	}
}
