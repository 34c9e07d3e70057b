package handlers

import (
	"ClinicHub/models"
	"ClinicHub/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	service *services.AppointmentService
}

func NewAppointmentHandler(service *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var appointment models.Appointment
	if err := c.ShouldBindJSON(&appointment); err != nil {
		badRequest(c, err)
		return
	}
	appointment.ID = ""
	if err := h.service.Create(c.Request.Context(), &appointment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

// GetAllAppointments accepts ?from=, ?to= and ?patient_id=.
func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	appointments, err := h.service.List(c.Request.Context(), models.AppointmentFilter{
		From:      from,
		To:        to,
		PatientID: c.Query("patient_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var appointment models.Appointment
	if err := c.ShouldBindJSON(&appointment); err != nil {
		badRequest(c, err)
		return
	}
	appointment.ID = c.Param("id")
	if err := h.service.Update(c.Request.Context(), &appointment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var body struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": body.Status})
}

func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
