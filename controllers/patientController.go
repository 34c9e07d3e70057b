package controllers

import (
	"ClinicHub/handlers"

	"github.com/gin-gonic/gin"
)

// ClinicHandlers groups the handlers behind the session middleware.
type ClinicHandlers struct {
	Patient     *handlers.PatientHandler
	Tag         *handlers.TagHandler
	Pipeline    *handlers.PipelineHandler
	Appointment *handlers.AppointmentHandler
	Transaction *handlers.TransactionHandler
	Task        *handlers.TaskHandler
	Message     *handlers.MessageHandler
	Dashboard   *handlers.DashboardHandler
}

func SetupClinicRoutes(router *gin.Engine, auth gin.HandlerFunc, h ClinicHandlers) {
	api := router.Group("/", auth)

	api.POST("/patients", h.Patient.CreatePatient)
	api.GET("/patients", h.Patient.GetAllPatients)
	api.GET("/patients/:patient_id", h.Patient.GetPatientByID)
	api.PUT("/patients/:patient_id", h.Patient.UpdatePatient)
	api.DELETE("/patients/:patient_id", h.Patient.DeletePatient)
	api.PATCH("/patients/:patient_id/stage", h.Patient.UpdateStage)
	api.PATCH("/patients/:patient_id/handoff", h.Patient.SetHandoff)
	api.GET("/patients/:patient_id/activities", h.Patient.GetActivities)
	api.GET("/patients/:patient_id/tags", h.Tag.GetPatientTags)
	api.POST("/patients/:patient_id/tags", h.Tag.AttachTag)
	api.DELETE("/patients/:patient_id/tags/:tag_id", h.Tag.DetachTag)

	api.GET("/pipeline", h.Pipeline.GetBoard)
	api.POST("/pipeline/moves", h.Pipeline.MovePatient)

	api.POST("/appointments", h.Appointment.CreateAppointment)
	api.GET("/appointments", h.Appointment.GetAllAppointments)
	api.GET("/appointments/:id", h.Appointment.GetAppointmentByID)
	api.PUT("/appointments/:id", h.Appointment.UpdateAppointment)
	api.PATCH("/appointments/:id/status", h.Appointment.UpdateAppointmentStatus)
	api.DELETE("/appointments/:id", h.Appointment.DeleteAppointment)

	api.POST("/transactions", h.Transaction.CreateTransaction)
	api.GET("/transactions", h.Transaction.GetAllTransactions)
	api.GET("/transactions/:id", h.Transaction.GetTransactionByID)
	api.PUT("/transactions/:id", h.Transaction.UpdateTransaction)
	api.DELETE("/transactions/:id", h.Transaction.DeleteTransaction)
	api.GET("/finance/summary", h.Transaction.GetSummary)

	api.POST("/tasks", h.Task.CreateTask)
	api.GET("/tasks", h.Task.GetAllTasks)
	api.GET("/tasks/:id", h.Task.GetTaskByID)
	api.PUT("/tasks/:id", h.Task.UpdateTask)
	api.PATCH("/tasks/:id/status", h.Task.UpdateTaskStatus)
	api.DELETE("/tasks/:id", h.Task.DeleteTask)

	api.POST("/tags", h.Tag.CreateTag)
	api.GET("/tags", h.Tag.GetAllTags)
	api.DELETE("/tags/:id", h.Tag.DeleteTag)

	api.GET("/messages/conversations", h.Message.GetConversations)
	api.GET("/messages/sessions/:session_id", h.Message.GetSession)
	api.POST("/messages/send", h.Message.SendMessage)
	api.POST("/messages/send-media", h.Message.SendMedia)

	api.GET("/dashboard/summary", h.Dashboard.GetSummary)
	api.GET("/seed/demo-appointments", h.Dashboard.SeedDemoAppointments)
}
