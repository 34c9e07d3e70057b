package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DashboardSummary backs the dashboard landing page.
type DashboardSummary struct {
	PatientsByStage   map[models.PipelineStage]int64 `json:"patients_by_stage"`
	TotalPatients     int64                          `json:"total_patients"`
	AppointmentsToday int64                          `json:"appointments_today"`
	OpenTasks         int64                          `json:"open_tasks"`
	Finance           FinanceSummary                 `json:"finance"`
}

type DashboardService struct {
	patients     *repositories.PatientRepository
	appointments *repositories.AppointmentRepository
	tasks        *repositories.TaskRepository
	finance      *FinanceService
	now          func() time.Time
}

func NewDashboardService(patients *repositories.PatientRepository, appointments *repositories.AppointmentRepository, tasks *repositories.TaskRepository, finance *FinanceService) *DashboardService {
	return &DashboardService{
		patients:     patients,
		appointments: appointments,
		tasks:        tasks,
		finance:      finance,
		now:          time.Now,
	}
}

// Summary runs the independent dashboard queries concurrently. The first
// failure cancels the rest.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart, monthEnd := MonthRange(now)

	var summary DashboardSummary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.patients.CountByStage(ctx)
		if err != nil {
			return err
		}
		summary.PatientsByStage = counts
		for _, n := range counts {
			summary.TotalPatients += n
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.appointments.CountBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
		summary.AppointmentsToday = n
		return err
	})
	g.Go(func() error {
		n, err := s.tasks.CountOpen(ctx)
		summary.OpenTasks = n
		return err
	})
	g.Go(func() error {
		finance, err := s.finance.Summary(ctx, monthStart, monthEnd)
		summary.Finance = finance
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}
