package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/service"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	statsService service.StatsService
}

func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics", middleware.RequireActor())
	{
		stats.GET("", h.GetStatistics)
	}
}

// GetStatistics returns task counts by status plus the number of tasks
// currently past their start and completion deadlines.
func (h *StatsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statsService.GetStatistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
