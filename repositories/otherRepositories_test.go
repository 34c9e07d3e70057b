package repositories

import (
	"ClinicHub/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepository_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	repo := NewTransactionRepository(env.db, env.cache)
	ctx := context.Background()

	march := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &models.Transaction{Description: "Consult", AmountCents: 15000, Type: models.TransactionIncome, Status: models.TransactionPaid, OccurredAt: march}))
	require.NoError(t, repo.Create(ctx, &models.Transaction{Description: "Rent", AmountCents: 90000, Type: models.TransactionExpense, OccurredAt: march.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Transaction{Description: "April", AmountCents: 100, Type: models.TransactionIncome, OccurredAt: march.AddDate(0, 1, 0)}))

	inMarch, err := repo.List(ctx, models.TransactionFilter{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, inMarch, 2)
	assert.Equal(t, "Rent", inMarch[0].Description, "newest first")
	assert.Equal(t, models.TransactionPending, inMarch[0].Status)

	pending, err := repo.List(ctx, models.TransactionFilter{Status: models.TransactionPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	income, err := repo.List(ctx, models.TransactionFilter{Type: models.TransactionIncome})
	require.NoError(t, err)
	assert.Len(t, income, 2)

	rent := inMarch[0]
	rent.Status = models.TransactionPaid
	require.NoError(t, repo.Update(ctx, &rent))
	got, err := repo.GetByID(ctx, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPaid, got.Status)

	require.NoError(t, repo.Delete(ctx, rent.ID))
	_, err = repo.GetByID(ctx, rent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	repo := NewTaskRepository(env.db, env.cache)
	ctx := context.Background()

	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	call := &models.Task{Title: "Call back", DueAt: &due, AssigneeID: strPtr("u1")}
	undated := &models.Task{Title: "Order supplies"}
	require.NoError(t, repo.Create(ctx, undated))
	require.NoError(t, repo.Create(ctx, call))

	tasks, err := repo.List(ctx, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Call back", tasks[0].Title, "dated tasks first")

	mine, err := repo.List(ctx, models.TaskFilter{AssigneeID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	open, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), open)

	require.NoError(t, repo.UpdateStatus(ctx, call.ID, models.TaskDone))
	open, err = repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)

	done, err := repo.List(ctx, models.TaskFilter{Status: models.TaskDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, call.ID, done[0].ID)

	require.NoError(t, repo.Delete(ctx, undated.ID))
	assert.ErrorIs(t, repo.Delete(ctx, undated.ID), ErrNotFound)
}

func TestTagRepository_AttachDetach(t *testing.T) {
	env := newTestEnv(t)
	tags := NewTagRepository(env.db, env.cache)
	patients := NewPatientRepository(env.db, env.cache, env.locker)
	ctx := context.Background()

	p := &models.Patient{FirstName: "Gil", LastName: "Souza"}
	require.NoError(t, patients.Create(ctx, p))
	vip := &models.Tag{Name: "vip", Color: "#f00"}
	require.NoError(t, tags.Create(ctx, vip))

	require.NoError(t, tags.Attach(ctx, p.ID, vip.ID))
	require.NoError(t, tags.Attach(ctx, p.ID, vip.ID))

	got, err := patients.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "vip", got.Tags[0].Name)

	require.NoError(t, tags.Detach(ctx, p.ID, vip.ID))
	assert.ErrorIs(t, tags.Detach(ctx, p.ID, vip.ID), ErrNotFound)

	got, err = patients.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	all, err := tags.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, tags.Delete(ctx, vip.ID))
	all, err = tags.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMessageRepository_SessionsAndRecent(t *testing.T) {
	env := newTestEnv(t)
	repo := NewMessageRepository(env.db, env.cache)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	msgs := []*models.Message{
		{SessionID: "s1", PatientID: strPtr("p1"), SenderType: models.SenderPatient, Content: "hi", CreatedAt: base},
		{SessionID: "s1", PatientID: strPtr("p1"), SenderType: models.SenderAI, Content: "hello", CreatedAt: base.Add(time.Minute)},
		{SessionID: "s2", SenderType: models.SenderPatient, Content: "price?", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Append(ctx, m))
	}

	s1, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, "hi", s1[0].Content)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "price?", recent[0].Content)

	session, err := repo.LatestSessionForPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "s1", session)

	_, err = repo.LatestSessionForPatient(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_LookupsHidePassword(t *testing.T) {
	env := newTestEnv(t)
	repo := NewUserRepository(env.db, env.cache)
	ctx := context.Background()

	role, err := repo.GetRoleByName(ctx, models.RoleDoctor)
	require.NoError(t, err)

	u := &models.User{Username: "drhouse", Email: "house@example.com", Password: "hash", RoleID: role.ID}
	require.NoError(t, repo.CreateUser(ctx, u))

	byEmail, err := repo.GetUserByEmail(ctx, "house@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Empty(t, byEmail.Password)
	assert.Equal(t, models.RoleDoctor, byEmail.Role.Name)

	withPassword, err := repo.GetUserWithPassword(ctx, "house@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", withPassword.Password)

	exists, err := repo.EmailExists(ctx, "house@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	admin, err := repo.GetRoleByName(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateUserRole(ctx, u.ID, admin.ID))
	require.NoError(t, repo.DeleteUserCache(ctx, byEmail))

	byID, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, byID.Role.Name)

	_, err = repo.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
