package handler

import (
	"net/http"
	"time"

	"carservice/internal/middleware"
	"carservice/internal/model"
	"carservice/internal/service"
	"carservice/pkg/response"

	"github.com/gin-gonic/gin"
)

// GenerateReportRequest names the month to aggregate. Empty means the current month.
type GenerateReportRequest struct {
	Month string `json:"month" example:"2024-03"`
}

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	now              func() time.Time
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, now: time.Now}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/admin/analytics", middleware.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetDashboard)
		group.POST("/generate", h.GenerateReport)
	}
}

// GetDashboard lists the stored revenue and staff performance reports
// @Summary      Analytics dashboard
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.AnalyticsDashboard}
// @Router       /api/admin/analytics [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	d, err := h.analyticsService.GetAnalyticsDashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}

// GenerateReport recomputes the monthly revenue report and staff performance
// @Summary      Generate monthly report
// @Description  Idempotent: re-running a month overwrites its rows with the same values
// @Tags         analytics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      GenerateReportRequest  false  "Month (YYYY-MM)"
// @Success      200      {object}  response.Response{data=service.MonthlyReport}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/analytics/generate [post]
func (h *AnalyticsHandler) GenerateReport(c *gin.Context) {
	var req GenerateReportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	month := service.MonthStart(h.now())
	if req.Month != "" {
		parsed, err := service.ParseMonth(req.Month)
		if err != nil {
			respondError(c, err)
			return
		}
		month = parsed
	}

	report, err := h.analyticsService.GenerateMonthlyReport(c.Request.Context(), middleware.CurrentPrincipal(c), month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
