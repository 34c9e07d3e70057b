package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/database"
	"ClinicHub/models"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const patientsCachePattern = "patients_cache*"

// editablePatientColumns are the columns a form update may write. Stage and
// handoff flags have their own write paths.
var editablePatientColumns = []string{
	"first_name", "last_name", "email", "phone", "chat_id", "channel",
	"date_of_birth", "notes", "extensions",
}

type PatientRepository struct {
	db     *gorm.DB
	cache  *cache.Cache
	locker *database.Locker
}

func NewPatientRepository(db *gorm.DB, cache *cache.Cache, locker *database.Locker) *PatientRepository {
	return &PatientRepository{db: db, cache: cache, locker: locker}
}

func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}

	return r.locker.WithLock(ctx, r.lockKey(patient.ID), func() error {
		if err := r.db.WithContext(ctx).Create(patient).Error; err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}
		r.invalidate(ctx, patient.ID)
		return nil
	})
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	patient, err := cache.Remember(ctx, r.cache, r.getPatientCacheKey(id), func(ctx context.Context) (models.Patient, error) {
		var patient models.Patient
		err := r.db.WithContext(ctx).Preload("Tags").First(&patient, "id = ?", id).Error
		return patient, wrap(err, "failed to get patient")
	})
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// List returns patients newest first, optionally narrowed by stage and a
// case-insensitive search over name, email and phone.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	cacheKey := fmt.Sprintf("patients_cache:%s:%s", filter.Stage, search)

	return cache.Remember(ctx, r.cache, cacheKey, func(ctx context.Context) ([]models.Patient, error) {
		return r.list(ctx, filter.Stage, search)
	})
}

// ListFresh is List straight from the database. Views refreshed by change
// notifications read through it, since a notification is delivered at
// commit, before the cached listings are dropped.
func (r *PatientRepository) ListFresh(ctx context.Context, filter models.PatientFilter) ([]models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return r.list(ctx, filter.Stage, strings.ToLower(strings.TrimSpace(filter.Search)))
}

func (r *PatientRepository) list(ctx context.Context, stage models.PipelineStage, search string) ([]models.Patient, error) {
	query := r.db.WithContext(ctx).Preload("Tags").Order("created_at DESC")
	if stage != "" {
		query = query.Where("pipeline_stage = ?", stage)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
			like, like, like, like,
		)
	}

	var patients []models.Patient
	if err := query.Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Update writes the form fields of an existing patient.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	return r.locker.WithLock(ctx, r.lockKey(patient.ID), func() error {
		res := r.db.WithContext(ctx).
			Model(&models.Patient{ID: patient.ID}).
			Select(editablePatientColumns).
			Updates(patient)
		if err := affected(res, "failed to update patient"); err != nil {
			return err
		}
		r.invalidate(ctx, patient.ID)
		return nil
	})
}

// UpdateStage persists a pipeline stage. Concurrent writers are serialised by
// the row lock and the last one wins.
func (r *PatientRepository) UpdateStage(ctx context.Context, id string, stage models.PipelineStage) error {
	return r.locker.WithLock(ctx, r.lockKey(id), func() error {
		res := r.db.WithContext(ctx).
			Model(&models.Patient{ID: id}).
			Update("pipeline_stage", stage)
		if err := affected(res, "failed to update pipeline stage"); err != nil {
			return err
		}
		r.invalidate(ctx, id)
		return nil
	})
}

// SetHandoff assigns the conversation to a human (disabling the assistant) or back.
func (r *PatientRepository) SetHandoff(ctx context.Context, id string, toHuman bool) error {
	return r.locker.WithLock(ctx, r.lockKey(id), func() error {
		res := r.db.WithContext(ctx).
			Model(&models.Patient{ID: id}).
			Updates(map[string]interface{}{
				"assigned_to_human": toHuman,
				"ai_enabled":        !toHuman,
			})
		if err := affected(res, "failed to update handoff"); err != nil {
			return err
		}
		r.invalidate(ctx, id)
		return nil
	})
}

// Delete removes the patient row with its tag links and activity log. Rows in
// other tables keep a null patient reference.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	return r.locker.WithLock(ctx, r.lockKey(id), func() error {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("patient_id = ?", id).Delete(&models.PatientTag{}).Error; err != nil {
				return err
			}
			if err := tx.Where("patient_id = ?", id).Delete(&models.Activity{}).Error; err != nil {
				return err
			}
			for _, model := range []interface{}{&models.Appointment{}, &models.Transaction{}, &models.Task{}, &models.Message{}} {
				if err := tx.Model(model).Where("patient_id = ?", id).Update("patient_id", nil).Error; err != nil {
					return err
				}
			}
			return affected(tx.Delete(&models.Patient{}, "id = ?", id), "failed to delete patient")
		})
		if err != nil {
			return wrap(err, "failed to delete patient")
		}

		r.invalidate(ctx, id)
		for _, pattern := range []string{appointmentsCachePattern, transactionsCachePattern, tasksCachePattern, messagesCachePattern} {
			if err := r.cache.DeleteAll(ctx, pattern); err != nil {
				log.Warn().Err(err).Str("pattern", pattern).Msg("failed to invalidate cache")
			}
		}
		return nil
	})
}

// First returns the oldest patient.
func (r *PatientRepository) First(ctx context.Context) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).Order("created_at ASC").First(&patient).Error
	if err != nil {
		return nil, wrap(err, "failed to get first patient")
	}
	return &patient, nil
}

// FindByChatID resolves the patient behind a messaging channel identity.
func (r *PatientRepository) FindByChatID(ctx context.Context, chatID string) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&patient).Error
	if err != nil {
		return nil, wrap(err, "failed to find patient by chat id")
	}
	return &patient, nil
}

// CountByStage returns the number of patients in every stage, zero included.
func (r *PatientRepository) CountByStage(ctx context.Context) (map[models.PipelineStage]int64, error) {
	var rows []struct {
		PipelineStage models.PipelineStage
		Count         int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Select("pipeline_stage, COUNT(*) AS count").
		Group("pipeline_stage").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count patients by stage: %w", err)
	}

	counts := make(map[models.PipelineStage]int64, len(models.PipelineStages))
	for _, stage := range models.PipelineStages {
		counts[stage] = 0
	}
	for _, row := range rows {
		counts[row.PipelineStage] = row.Count
	}
	return counts, nil
}

func (r *PatientRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, r.getPatientCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("patient_id", id).Msg("failed to delete patient cache")
	}
	if err := r.cache.DeleteAll(ctx, patientsCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to delete patients cache")
	}
}

func (r *PatientRepository) lockKey(id string) string {
	return fmt.Sprintf("patient_lock:%s", id)
}

func (r *PatientRepository) getPatientCacheKey(patientID string) string {
	return fmt.Sprintf("patient_cache:%s", patientID)
}
