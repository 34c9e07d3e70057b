package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// HttpError logs err and writes {"error": message}. Server errors log at
// error level, client errors at debug.
func HttpError(c *gin.Context, message string, status int, err error) {
	evt := log.Debug()
	if status >= 500 {
		evt = log.Error()
	}
	evt.Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Int("status", status).
		Str("path", c.Request.URL.Path).
		Msg(message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
