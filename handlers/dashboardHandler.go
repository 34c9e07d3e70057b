package handlers

import (
	"ClinicHub/services"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	seed      *services.SeedService
}

func NewDashboardHandler(dashboard *services.DashboardService, seed *services.SeedService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, seed: seed}
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SeedDemoAppointments answers {"count": n}, or {"error": ...} when there is
// no patient to attach the appointments to.
func (h *DashboardHandler) SeedDemoAppointments(c *gin.Context) {
	count, err := h.seed.SeedDemoAppointments(c.Request.Context())
	if errors.Is(err, services.ErrNoPatients) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
