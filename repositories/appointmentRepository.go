package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/models"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const appointmentsCachePattern = "appointments_cache*"

type AppointmentRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewAppointmentRepository(db *gorm.DB, cache *cache.Cache) *AppointmentRepository {
	return &AppointmentRepository{db: db, cache: cache}
}

func (r *AppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if err := r.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	r.DeleteAllCache(ctx)
	return nil
}

// CreateBatch inserts all appointments in one statement.
func (r *AppointmentRepository) CreateBatch(ctx context.Context, appointments []models.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&appointments).Error; err != nil {
		return fmt.Errorf("failed to create appointments: %w", err)
	}
	r.DeleteAllCache(ctx)
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var appointment models.Appointment
	if err := r.db.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "failed to get appointment")
	}
	return &appointment, nil
}

// List returns appointments ordered by start time. From/To select appointments
// starting in [From, To).
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("appointments_cache:%s:%s:%s", timeKey(filter.From), timeKey(filter.To), filter.PatientID)
	return cache.Remember(ctx, r.cache, cacheKey, func(ctx context.Context) ([]models.Appointment, error) {
		query := r.db.WithContext(ctx).Order("start_time ASC")
		if !filter.From.IsZero() {
			query = query.Where("start_time >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			query = query.Where("start_time < ?", filter.To)
		}
		if filter.PatientID != "" {
			query = query.Where("patient_id = ?", filter.PatientID)
		}

		var appointments []models.Appointment
		if err := query.Find(&appointments).Error; err != nil {
			return nil, fmt.Errorf("failed to list appointments: %w", err)
		}
		return appointments, nil
	})
}

func (r *AppointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(&models.Appointment{ID: appointment.ID}).
		Select("title", "type", "start_time", "end_time", "status", "patient_id", "notes").
		Updates(appointment)
	if err := affected(res, "failed to update appointment"); err != nil {
		return err
	}
	r.DeleteAllCache(ctx)
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{ID: id}).Update("status", status)
	if err := affected(res, "failed to update appointment status"); err != nil {
		return err
	}
	r.DeleteAllCache(ctx)
	return nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id)
	if err := affected(res, "failed to delete appointment"); err != nil {
		return err
	}
	r.DeleteAllCache(ctx)
	return nil
}

// CountBetween counts non-cancelled appointments starting in [from, to).
func (r *AppointmentRepository) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("start_time >= ? AND start_time < ? AND status <> ?", from, to, models.AppointmentCancelled).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// DeleteAllCache drops every cached appointment listing.
func (r *AppointmentRepository) DeleteAllCache(ctx context.Context) {
	if err := r.cache.DeleteAll(ctx, appointmentsCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to delete appointments cache")
	}
}
