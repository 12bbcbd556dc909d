package handler

import (
	"net/http"

	"salesdesk/internal/middleware"
	"salesdesk/internal/model"
	"salesdesk/internal/service"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Authenticator
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Authenticator) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/stats", h.auth.RequireRole(model.RoleAdmin), h.GetStatistics)
}

// @Summary      Get Dashboard Statistics
// @Description  Sale counts, validated revenue, trailing 7-day series and breakdowns by product, agent and grade. Cancelled sales are left out of the breakdowns.
// @Tags         statistics
// @Produce      json
// @Success      200 {object} response.Response{data=model.DashboardStats}
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /api/stats [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statisticsService.GetDashboardStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
