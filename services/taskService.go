package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"fmt"
)

type TaskService struct {
	repository *repositories.TaskRepository
}

func NewTaskService(repository *repositories.TaskRepository) *TaskService {
	return &TaskService{repository: repository}
}

func (s *TaskService) Create(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return invalid(err)
	}
	return s.repository.Create(ctx, task)
}

func (s *TaskService) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	if filter.Status != "" && !models.ValidTaskStatus(filter.Status) {
		return nil, invalid(fmt.Errorf("unknown task status %q", filter.Status))
	}
	return s.repository.List(ctx, filter)
}

func (s *TaskService) Update(ctx context.Context, task *models.Task) error {
	current, err := s.repository.GetByID(ctx, task.ID)
	if err != nil {
		return err
	}
	if task.Status == "" {
		task.Status = current.Status
	}
	if err := task.Validate(); err != nil {
		return invalid(err)
	}
	return s.repository.Update(ctx, task)
}

func (s *TaskService) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	if !models.ValidTaskStatus(status) {
		return invalid(fmt.Errorf("unknown task status %q", status))
	}
	return s.repository.UpdateStatus(ctx, id, status)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.repository.Delete(ctx, id)
}
