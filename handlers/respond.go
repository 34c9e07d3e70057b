package handlers

import (
	"ClinicHub/messaging"
	"ClinicHub/middlewares"
	"ClinicHub/models"
	"ClinicHub/pipeline"
	"ClinicHub/repositories"
	"ClinicHub/services"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// respondError maps service errors onto status codes. Anything unexpected is
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err), errors.Is(err, models.ErrInvalidTimeRange), errors.Is(err, pipeline.ErrUnknownTarget):
		middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, pipeline.ErrPatientNotFound):
		middlewares.HttpError(c, "not found", http.StatusNotFound, err)
	case errors.Is(err, services.ErrNoPatients):
		middlewares.HttpError(c, err.Error(), http.StatusNotFound, err)
	case errors.Is(err, services.ErrInvalidCredential):
		middlewares.HttpError(c, err.Error(), http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrForbidden):
		middlewares.HttpError(c, err.Error(), http.StatusForbidden, err)
	case errors.Is(err, messaging.ErrDeliveryFailed):
		middlewares.HttpError(c, "message delivery failed", http.StatusBadGateway, err)
	default:
		middlewares.HttpError(c, "backend query error", http.StatusInternalServerError, err)
	}
}

func badRequest(c *gin.Context, err error) {
	middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
}

// session returns the caller, aborting with 401 when the route was not
// mounted behind the auth middleware.
func session(c *gin.Context) (models.Session, bool) {
	s, ok := middlewares.SessionFromGin(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	}
	return s, ok
}

// queryTime parses an RFC3339 timestamp or a plain date. Empty yields the zero time.
func queryTime(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

func queryRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := queryTime(c, "from")
	if err == nil {
		var to time.Time
		if to, err = queryTime(c, "to"); err == nil {
			return from, to, true
		}
	}
	middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
	return time.Time{}, time.Time{}, false
}

func queryLimit(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
