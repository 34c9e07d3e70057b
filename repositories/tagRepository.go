package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/models"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tagsCacheKey = "tags_cache"

type TagRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewTagRepository(db *gorm.DB, cache *cache.Cache) *TagRepository {
	return &TagRepository{db: db, cache: cache}
}

func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	r.invalidate(ctx)
	return nil
}

func (r *TagRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "failed to get tag")
	}
	return &tag, nil
}

func (r *TagRepository) List(ctx context.Context) ([]models.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return cache.Remember(ctx, r.cache, tagsCacheKey, func(ctx context.Context) ([]models.Tag, error) {
		var tags []models.Tag
		if err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
			return nil, fmt.Errorf("failed to list tags: %w", err)
		}
		return tags, nil
	})
}

// Delete removes the tag and every link to it.
func (r *TagRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.PatientTag{}).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&models.Tag{}, "id = ?", id), "failed to delete tag")
	})
	if err != nil {
		return wrap(err, "failed to delete tag")
	}
	r.invalidate(ctx)
	return nil
}

// Attach links a tag to a patient. Attaching twice is a no-op.
func (r *TagRepository) Attach(ctx context.Context, patientID, tagID string) error {
	link := models.PatientTag{PatientID: patientID, TagID: tagID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	if err != nil {
		return fmt.Errorf("failed to attach tag: %w", err)
	}
	r.invalidate(ctx)
	return nil
}

func (r *TagRepository) Detach(ctx context.Context, patientID, tagID string) error {
	res := r.db.WithContext(ctx).Where("patient_id = ? AND tag_id = ?", patientID, tagID).Delete(&models.PatientTag{})
	if err := affected(res, "failed to detach tag"); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *TagRepository) ListForPatient(ctx context.Context, patientID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN patient_tags ON patient_tags.tag_id = tags.id").
		Where("patient_tags.patient_id = ?", patientID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patient tags: %w", err)
	}
	return tags, nil
}

// invalidate drops the tag list and every patient view, since patients embed their tags.
func (r *TagRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, tagsCacheKey); err != nil {
		log.Warn().Err(err).Msg("failed to delete tags cache")
	}
	for _, pattern := range []string{patientsCachePattern, patientItemsCachePattern} {
		if err := r.cache.DeleteAll(ctx, pattern); err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("failed to delete patient cache")
		}
	}
}
