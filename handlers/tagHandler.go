package handlers

import (
	"ClinicHub/models"
	"ClinicHub/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type TagHandler struct {
	service *services.TagService
}

func NewTagHandler(service *services.TagService) *TagHandler {
	return &TagHandler{service: service}
}

func (h *TagHandler) CreateTag(c *gin.Context) {
	var tag models.Tag
	if err := c.ShouldBindJSON(&tag); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), &tag); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *TagHandler) GetAllTags(c *gin.Context) {
	tags, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) DeleteTag(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TagHandler) GetPatientTags(c *gin.Context) {
	tags, err := h.service.ListForPatient(c.Request.Context(), c.Param("patient_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// AttachTag takes {"tag_id": "..."}.
func (h *TagHandler) AttachTag(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var body struct {
		TagID string `json:"tag_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.TagID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tag_id is required"})
		return
	}
	if err := h.service.Attach(c.Request.Context(), s, c.Param("patient_id"), body.TagID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TagHandler) DetachTag(c *gin.Context) {
	if err := h.service.Detach(c.Request.Context(), c.Param("patient_id"), c.Param("tag_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
