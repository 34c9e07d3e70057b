package services

import (
	"ClinicHub/messaging"
	"ClinicHub/models"
	"ClinicHub/repositories"
	"ClinicHub/testutil"
	"ClinicHub/utils"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	strPtr  = testutil.StrPtr
	session = models.Session{UserID: "user-1", Role: models.RoleAdmin}
)

type fakeSender struct {
	mu    sync.Mutex
	err   error
	texts []messaging.TextMessage
	media []messaging.MediaMessage
}

func (f *fakeSender) SendText(ctx context.Context, msg messaging.TextMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, msg)
	return f.err
}

func (f *fakeSender) SendMedia(ctx context.Context, msg messaging.MediaMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, msg)
	return f.err
}

type fakeMailer struct {
	codes map[string]string
	err   error
}

func (f *fakeMailer) SendResetCode(email, code string) error {
	if f.err != nil {
		return f.err
	}
	f.codes[email] = code
	return nil
}

type fixture struct {
	env          *testutil.Env
	patientRepo  *repositories.PatientRepository
	messageRepo  *repositories.MessageRepository
	activityRepo *repositories.ActivityRepository
	patients     *PatientService
	appointments *AppointmentService
	finance      *FinanceService
	tasks        *TaskService
	tags         *TagService
	messaging    *MessagingService
	dashboard    *DashboardService
	seed         *SeedService
	users        UserService
	sender       *fakeSender
	mailer       *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	env := testutil.NewEnv(t)

	patientRepo := repositories.NewPatientRepository(env.DB, env.Cache, env.Locker)
	appointmentRepo := repositories.NewAppointmentRepository(env.DB, env.Cache)
	transactionRepo := repositories.NewTransactionRepository(env.DB, env.Cache)
	taskRepo := repositories.NewTaskRepository(env.DB, env.Cache)
	tagRepo := repositories.NewTagRepository(env.DB, env.Cache)
	messageRepo := repositories.NewMessageRepository(env.DB, env.Cache)
	activityRepo := repositories.NewActivityRepository(env.DB)
	userRepo := repositories.NewUserRepository(env.DB, env.Cache)

	tokens, err := utils.NewTokenMaker("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	sender := &fakeSender{}
	mailer := &fakeMailer{codes: map[string]string{}}
	finance := NewFinanceService(transactionRepo)

	return &fixture{
		env:          env,
		patientRepo:  patientRepo,
		messageRepo:  messageRepo,
		activityRepo: activityRepo,
		patients:     NewPatientService(patientRepo, activityRepo),
		appointments: NewAppointmentService(appointmentRepo),
		finance:      finance,
		tasks:        NewTaskService(taskRepo),
		tags:         NewTagService(tagRepo, patientRepo, activityRepo),
		messaging:    NewMessagingService(messageRepo, patientRepo, activityRepo, sender),
		dashboard:    NewDashboardService(patientRepo, appointmentRepo, taskRepo, finance),
		seed:         NewSeedService(patientRepo, appointmentRepo),
		users:        NewUserService(userRepo, env.Locker, tokens, utils.NewResetCodes(env.Cache), mailer),
		sender:       sender,
		mailer:       mailer,
	}
}

func (f *fixture) createPatient(t *testing.T, first, chatID string) *models.Patient {
	t.Helper()
	patient, err := f.patients.Create(context.Background(), session, PatientInput{
		FirstName: strPtr(first),
		LastName:  strPtr("Doe"),
		ChatID:    strPtr(chatID),
		Channel:   strPtr("whatsapp"),
	})
	require.NoError(t, err)
	return patient
}
