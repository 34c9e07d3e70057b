package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/models"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const tasksCachePattern = "tasks_cache*"

type TaskRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewTaskRepository(db *gorm.DB, cache *cache.Cache) *TaskRepository {
	return &TaskRepository{db: db, cache: cache}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	r.deleteAllCache(ctx)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "failed to get task")
	}
	return &task, nil
}

// List returns tasks by due date, undated tasks last.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("tasks_cache:%s:%s:%s", filter.Status, filter.PatientID, filter.AssigneeID)
	return cache.Remember(ctx, r.cache, cacheKey, func(ctx context.Context) ([]models.Task, error) {
		query := r.db.WithContext(ctx).Order("CASE WHEN due_at IS NULL THEN 1 ELSE 0 END, due_at ASC, created_at DESC")
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.PatientID != "" {
			query = query.Where("patient_id = ?", filter.PatientID)
		}
		if filter.AssigneeID != "" {
			query = query.Where("assignee_id = ?", filter.AssigneeID)
		}

		var tasks []models.Task
		if err := query.Find(&tasks).Error; err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		return tasks, nil
	})
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	res := r.db.WithContext(ctx).
		Model(&models.Task{ID: task.ID}).
		Select("title", "description", "status", "due_at", "patient_id", "assignee_id").
		Updates(task)
	if err := affected(res, "failed to update task"); err != nil {
		return err
	}
	r.deleteAllCache(ctx)
	return nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Task{ID: id}).Update("status", status)
	if err := affected(res, "failed to update task status"); err != nil {
		return err
	}
	r.deleteAllCache(ctx)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if err := affected(res, "failed to delete task"); err != nil {
		return err
	}
	r.deleteAllCache(ctx)
	return nil
}

// CountOpen counts tasks that are not done.
func (r *TaskRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Where("status <> ?", models.TaskDone).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) deleteAllCache(ctx context.Context) {
	if err := r.cache.DeleteAll(ctx, tasksCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to delete tasks cache")
	}
}
