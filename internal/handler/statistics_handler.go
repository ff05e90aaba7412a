package handler

import (
	"net/http"
	"time"

	"shopdesk/internal/service"
	"shopdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	guard             Guard
}

func NewStatisticsHandler(statisticsService service.StatisticsService, guard Guard) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, guard: guard}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard", h.guard.Authenticated(), h.GetDashboard)
}

// GetDashboard summarises sales, debt and expenses over a period
// @Summary      Get dashboard summary
// @Description  Sales total, amount collected, outstanding debt, expenses and top products. Defaults to the current month.
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start Date (RFC3339)"
// @Param        end_date    query     string  false  "End Date (RFC3339)"
// @Success      200         {object}  response.Response{data=model.DashboardSummary}
// @Failure      400         {object}  response.Response  "Invalid date format"
// @Failure      401         {object}  response.Response
// @Router       /api/dashboard [get]
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	var err error
	if s := c.Query("start_date"); s != "" {
		if startDate, err = time.Parse(time.RFC3339, s); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}
	if s := c.Query("end_date"); s != "" {
		if endDate, err = time.Parse(time.RFC3339, s); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	summary, err := h.statisticsService.GetDashboard(c.Request.Context(), actor, startDate, endDate)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
