package controllers

import (
	"ClinicHub/handlers"
	"ClinicHub/middlewares"
	"ClinicHub/realtime"

	"github.com/gin-gonic/gin"
)

// SetupRealtimeRoutes mounts the WebSocket endpoint and, when inboundToken is
// set, the workflow's inbound message webhook.
func SetupRealtimeRoutes(router *gin.Engine, auth gin.HandlerFunc, ws *realtime.WebSocketHandler, messages *handlers.MessageHandler, inboundToken string) {
	router.GET("/realtime/ws", auth, ws.HandleConnect)

	if inboundToken != "" {
		router.POST("/webhooks/inbound-message", middlewares.ValidateBearerToken(inboundToken), messages.ReceiveInbound)
	}
}
