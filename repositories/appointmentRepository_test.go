package repositories

import (
	"ClinicHub/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointmentRepository_ListRangeAndStatus(t *testing.T) {
	env := newTestEnv(t)
	repo := NewAppointmentRepository(env.db, env.cache)
	ctx := context.Background()

	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	batch := []models.Appointment{
		{Title: "Cleaning", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour)},
		{Title: "Consult", StartTime: day.Add(11 * time.Hour), EndTime: day.Add(12 * time.Hour), PatientID: strPtr("p1")},
		{Title: "Next day", StartTime: day.Add(33 * time.Hour), EndTime: day.Add(34 * time.Hour)},
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))

	today, err := repo.List(ctx, models.AppointmentFilter{From: day, To: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "Cleaning", today[0].Title)
	assert.Equal(t, models.AppointmentScheduled, today[0].Status)

	forPatient, err := repo.List(ctx, models.AppointmentFilter{PatientID: "p1"})
	require.NoError(t, err)
	require.Len(t, forPatient, 1)

	require.NoError(t, repo.UpdateStatus(ctx, today[0].ID, models.AppointmentCancelled))
	count, err := repo.CountBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// the cached listing was invalidated by the status change
	today, err = repo.List(ctx, models.AppointmentFilter{From: day, To: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, today[0].Status)
}

func TestAppointmentRepository_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	repo := NewAppointmentRepository(env.db, env.cache)
	ctx := context.Background()

	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	a := &models.Appointment{Title: "Old", StartTime: start, EndTime: start.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, a))

	a.Title = "New"
	a.Status = models.AppointmentConfirmed
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, models.AppointmentConfirmed, got.Status)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, a.ID, models.AppointmentCompleted), ErrNotFound)
}
