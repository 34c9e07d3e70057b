package handlers

import (
	"ClinicHub/messaging"
	"ClinicHub/models"
	"ClinicHub/services"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultConversationWindow = 500
	maxConversationWindow     = 2000
)

type MessageHandler struct {
	service *services.MessagingService
}

func NewMessageHandler(service *services.MessagingService) *MessageHandler {
	return &MessageHandler{service: service}
}

// GetConversations groups the newest ?limit= messages by session.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	limit := queryLimit(c, defaultConversationWindow, maxConversationWindow)
	conversations, err := h.service.Conversations(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *MessageHandler) GetSession(c *gin.Context) {
	messages, err := h.service.Session(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	h.send(c, h.service.Send)
}

func (h *MessageHandler) SendMedia(c *gin.Context) {
	h.send(c, h.service.SendMedia)
}

type sendFunc func(ctx context.Context, session models.Session, in services.SendInput) (*models.Message, error)

// send answers {"success": bool}; a workflow failure is a 502 with success false.
func (h *MessageHandler) send(c *gin.Context, fn sendFunc) {
	s, ok := session(c)
	if !ok {
		return
	}
	var in services.SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	message, err := fn(c.Request.Context(), s, in)
	if errors.Is(err, messaging.ErrDeliveryFailed) {
		log.Warn().Err(err).Str("patient_id", in.PatientID).Msg("outbound message not delivered")
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"success": false})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// ReceiveInbound is called by the workflow for patient and assistant messages.
func (h *MessageHandler) ReceiveInbound(c *gin.Context) {
	var in services.InboundInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	message, err := h.service.Inbound(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}
