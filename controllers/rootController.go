package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rootHandler handles requests to the root path
func rootHandler(c *gin.Context) {
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write([]byte("ClinicHub is running")); err != nil {
		log.Error().Err(err).Msg("error writing root response")
	}
}

// SetupRootRoute sets up the liveness route
func SetupRootRoute(router *gin.Engine) {
	router.GET("/", rootHandler)
}
