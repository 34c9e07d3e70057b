package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

type TagService struct {
	tags       *repositories.TagRepository
	patients   *repositories.PatientRepository
	activities *repositories.ActivityRepository
}

func NewTagService(tags *repositories.TagRepository, patients *repositories.PatientRepository, activities *repositories.ActivityRepository) *TagService {
	return &TagService{tags: tags, patients: patients, activities: activities}
}

func (s *TagService) Create(ctx context.Context, tag *models.Tag) error {
	if err := tag.Validate(); err != nil {
		return invalid(err)
	}
	return s.tags.Create(ctx, tag)
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.tags.List(ctx)
}

func (s *TagService) Delete(ctx context.Context, id string) error {
	return s.tags.Delete(ctx, id)
}

// Attach tags a patient; both must exist.
func (s *TagService) Attach(ctx context.Context, session models.Session, patientID, tagID string) error {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return err
	}
	tag, err := s.tags.GetByID(ctx, tagID)
	if err != nil {
		return err
	}
	if err := s.tags.Attach(ctx, patientID, tagID); err != nil {
		return err
	}

	activity := &models.Activity{
		PatientID:   patientID,
		Type:        models.ActivityTagged,
		Description: fmt.Sprintf("Tagged %s", tag.Name),
		ActorID:     session.UserID,
	}
	if err := s.activities.Record(ctx, activity); err != nil {
		log.Error().Err(err).Str("patient_id", patientID).Msg("failed to record activity")
	}
	return nil
}

func (s *TagService) Detach(ctx context.Context, patientID, tagID string) error {
	return s.tags.Detach(ctx, patientID, tagID)
}

func (s *TagService) ListForPatient(ctx context.Context, patientID string) ([]models.Tag, error) {
	return s.tags.ListForPatient(ctx, patientID)
}
