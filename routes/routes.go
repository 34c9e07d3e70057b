package routes

import (
	"ClinicHub/cache"
	"ClinicHub/config"
	"ClinicHub/controllers"
	"ClinicHub/database"
	"ClinicHub/handlers"
	"ClinicHub/messaging"
	"ClinicHub/middlewares"
	"ClinicHub/pipeline"
	"ClinicHub/realtime"
	"ClinicHub/repositories"
	"ClinicHub/services"
	"ClinicHub/utils"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App holds the wired services shared by the HTTP server, the CLI
// commands and the assistant tools.
type App struct {
	Config *config.AppConfig

	Patients     *services.PatientService
	Appointments *services.AppointmentService
	Finance      *services.FinanceService
	Tasks        *services.TaskService
	Tags         *services.TagService
	Messaging    *services.MessagingService
	Dashboard    *services.DashboardService
	Seed         *services.SeedService
	Users        services.UserService

	Board  *pipeline.Board
	Hub    *realtime.Hub
	Tokens *utils.TokenMaker

	cache *cache.Cache
}

// InvalidateChange drops the cached views touched by a row change before the
// change is pushed to dashboards.
func (a *App) InvalidateChange(ctx context.Context, change realtime.Change) {
	repositories.InvalidateTable(ctx, a.cache, change.Table)
}

// NewApp initializes repositories and services. sender may be nil, in which
// case the workflow client from config is used.
func NewApp(cfg *config.AppConfig, db *gorm.DB, cache *cache.Cache, locker *database.Locker, sender messaging.Sender) (*App, error) {
	tokens, err := utils.NewTokenMaker(cfg.SymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	if sender == nil {
		sender = messaging.NewWorkflowClient(cfg.WorkflowTextURL, cfg.WorkflowMediaURL, cfg.WorkflowTimeout)
	}

	patientRepo := repositories.NewPatientRepository(db, cache, locker)
	appointmentRepo := repositories.NewAppointmentRepository(db, cache)
	transactionRepo := repositories.NewTransactionRepository(db, cache)
	taskRepo := repositories.NewTaskRepository(db, cache)
	tagRepo := repositories.NewTagRepository(db, cache)
	messageRepo := repositories.NewMessageRepository(db, cache)
	activityRepo := repositories.NewActivityRepository(db)
	userRepo := repositories.NewUserRepository(db, cache)

	mailer := utils.NewMailer(utils.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
	})

	finance := services.NewFinanceService(transactionRepo)

	return &App{
		Config:       cfg,
		Patients:     services.NewPatientService(patientRepo, activityRepo),
		Appointments: services.NewAppointmentService(appointmentRepo),
		Finance:      finance,
		Tasks:        services.NewTaskService(taskRepo),
		Tags:         services.NewTagService(tagRepo, patientRepo, activityRepo),
		Messaging:    services.NewMessagingService(messageRepo, patientRepo, activityRepo, sender),
		Dashboard:    services.NewDashboardService(patientRepo, appointmentRepo, taskRepo, finance),
		Seed:         services.NewSeedService(patientRepo, appointmentRepo),
		Users:        services.NewUserService(userRepo, locker, tokens, utils.NewResetCodes(cache), mailer),
		Board:        pipeline.NewBoard(patientRepo, patientRepo),
		Hub:          realtime.NewHub(),
		Tokens:       tokens,
		cache:        cache,
	}, nil
}

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(app *App) http.Handler {
	cfg := app.Config
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middlewares.Recovery())
	router.Use(middlewares.RequestID())
	router.Use(middlewares.LoggingMiddleware())
	router.Use(middlewares.CorsMiddleware(middlewares.DefaultCorsConfig(cfg.CORSOrigins)))
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateBurst,
	}))

	auth := middlewares.TokenAuthMiddleware(app.Tokens)

	messageHandler := handlers.NewMessageHandler(app.Messaging)

	controllers.SetupClinicRoutes(router, auth, controllers.ClinicHandlers{
		Patient:     handlers.NewPatientHandler(app.Patients),
		Tag:         handlers.NewTagHandler(app.Tags),
		Pipeline:    handlers.NewPipelineHandler(app.Board),
		Appointment: handlers.NewAppointmentHandler(app.Appointments),
		Transaction: handlers.NewTransactionHandler(app.Finance),
		Task:        handlers.NewTaskHandler(app.Tasks),
		Message:     messageHandler,
		Dashboard:   handlers.NewDashboardHandler(app.Dashboard, app.Seed),
	})

	authController := controllers.NewAuthController(handlers.NewAuthHandler(app.Users), auth)
	authController.RegisterRoutes(router)

	controllers.SetupRealtimeRoutes(router, auth, realtime.NewWebSocketHandler(app.Hub, cfg.CORSOrigins), messageHandler, cfg.InboundToken)

	controllers.SetupRootRoute(router)

	return router
}
