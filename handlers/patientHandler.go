package handlers

import (
	"ClinicHub/models"
	"ClinicHub/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PatientHandler struct {
	service *services.PatientService
}

func NewPatientHandler(service *services.PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var in services.PatientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	patient, err := h.service.Create(c.Request.Context(), s, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	patient, err := h.service.GetByID(c.Request.Context(), c.Param("patient_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// GetAllPatients accepts ?stage= and ?search= filters.
func (h *PatientHandler) GetAllPatients(c *gin.Context) {
	filter := models.PatientFilter{
		Stage:  models.PipelineStage(c.Query("stage")),
		Search: c.Query("search"),
	}
	patients, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var in services.PatientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	patient, err := h.service.Update(c.Request.Context(), c.Param("patient_id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *PatientHandler) UpdateStage(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var body struct {
		PipelineStage models.PipelineStage `json:"pipeline_stage"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	patient, err := h.service.UpdateStage(c.Request.Context(), s, c.Param("patient_id"), body.PipelineStage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// SetHandoff takes {"assigned_to_human": bool}.
func (h *PatientHandler) SetHandoff(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var body struct {
		AssignedToHuman *bool `json:"assigned_to_human"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.AssignedToHuman == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "assigned_to_human is required"})
		return
	}
	patient, err := h.service.SetHandoff(c.Request.Context(), s, c.Param("patient_id"), *body.AssignedToHuman)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *PatientHandler) DeletePatient(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("patient_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PatientHandler) GetActivities(c *gin.Context) {
	activities, err := h.service.Activities(c.Request.Context(), c.Param("patient_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}
