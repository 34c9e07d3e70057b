package handlers

import (
	"ClinicHub/pipeline"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PipelineHandler serves the shared board kept fresh by the realtime listener.
type PipelineHandler struct {
	board *pipeline.Board
}

func NewPipelineHandler(board *pipeline.Board) *PipelineHandler {
	return &PipelineHandler{board: board}
}

func (h *PipelineHandler) GetBoard(c *gin.Context) {
	if !h.board.Loaded() {
		if err := h.board.Load(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"columns": h.board.Columns()})
}

// MovePatient applies a drag-end. A failed write answers 502 with the
// reverted result so the client can roll its card back too.
func (h *PipelineHandler) MovePatient(c *gin.Context) {
	var drag pipeline.DragEnd
	if err := c.ShouldBindJSON(&drag); err != nil || drag.ActiveID == "" || drag.OverID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "active_id and over_id are required"})
		return
	}
	if !h.board.Loaded() {
		if err := h.board.Load(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}

	result, err := h.board.Move(c.Request.Context(), drag)
	if errors.Is(err, pipeline.ErrPatientNotFound) || errors.Is(err, pipeline.ErrUnknownTarget) {
		// the card may belong to a patient created since the last refresh
		if refreshErr := h.board.Refresh(c.Request.Context()); refreshErr == nil {
			result, err = h.board.Move(c.Request.Context(), drag)
		}
	}
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}
	if result.PatientID != "" {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "failed to move patient", "result": result})
		return
	}
	respondError(c, err)
}
