package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/models"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const transactionsCachePattern = "transactions_cache*"

type TransactionRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewTransactionRepository(db *gorm.DB, cache *cache.Cache) *TransactionRepository {
	return &TransactionRepository{db: db, cache: cache}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	r.deleteAllCache(ctx)
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var transaction models.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "failed to get transaction")
	}
	return &transaction, nil
}

// List returns transactions newest first. From/To select entries that
// occurred in [From, To).
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("transactions_cache:%s:%s:%s:%s", timeKey(filter.From), timeKey(filter.To), filter.Type, filter.Status)
	return cache.Remember(ctx, r.cache, cacheKey, func(ctx context.Context) ([]models.Transaction, error) {
		query := r.db.WithContext(ctx).Order("occurred_at DESC")
		if !filter.From.IsZero() {
			query = query.Where("occurred_at >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			query = query.Where("occurred_at < ?", filter.To)
		}
		if filter.Type != "" {
			query = query.Where("type = ?", filter.Type)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}

		var transactions []models.Transaction
		if err := query.Find(&transactions).Error; err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		return transactions, nil
	})
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{ID: transaction.ID}).
		Select("description", "amount_cents", "type", "status", "category", "occurred_at", "patient_id").
		Updates(transaction)
	if err := affected(res, "failed to update transaction"); err != nil {
		return err
	}
	r.deleteAllCache(ctx)
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Transaction{}, "id = ?", id)
	if err := affected(res, "failed to delete transaction"); err != nil {
		return err
	}
	r.deleteAllCache(ctx)
	return nil
}

func (r *TransactionRepository) deleteAllCache(ctx context.Context) {
	if err := r.cache.DeleteAll(ctx, transactionsCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to delete transactions cache")
	}
}
