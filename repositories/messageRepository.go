package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/models"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const messagesCachePattern = "messages_cache*"

type MessageRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewMessageRepository(db *gorm.DB, cache *cache.Cache) *MessageRepository {
	return &MessageRepository{db: db, cache: cache}
}

// Append adds a message to the log.
func (r *MessageRepository) Append(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if err := r.cache.DeleteAll(ctx, messagesCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to delete messages cache")
	}
	return nil
}

// ListBySession returns one conversation oldest message first.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list session messages: %w", err)
	}
	return messages, nil
}

// ListRecent returns the newest limit messages across all sessions.
func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 500
	}
	cacheKey := fmt.Sprintf("messages_cache:recent:%d", limit)
	return cache.Remember(ctx, r.cache, cacheKey, func(ctx context.Context) ([]models.Message, error) {
		var messages []models.Message
		err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&messages).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list recent messages: %w", err)
		}
		return messages, nil
	})
}

// LatestSessionForPatient returns the session id of the patient's newest message.
func (r *MessageRepository) LatestSessionForPatient(ctx context.Context, patientID string) (string, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		return "", wrap(err, "failed to find latest session")
	}
	return message.SessionID, nil
}
