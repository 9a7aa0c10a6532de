package handler

import (
	"net/http"

	"carservice/internal/middleware"
	"carservice/internal/model"
	"carservice/internal/service"
	"carservice/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/admin/dashboard", middleware.RequireRole(model.RoleAdmin), h.AdminDashboard)
	router.GET("/staff/dashboard", middleware.RequireRole(model.RoleStaff), h.StaffDashboard)
	router.GET("/customer/dashboard", middleware.RequireRole(model.RoleCustomer), h.CustomerDashboard)
}

// AdminDashboard returns headline counts and recent bookings
// @Summary      Admin dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.AdminDashboard}
// @Failure      403  {object}  response.Response
// @Router       /api/admin/dashboard [get]
func (h *DashboardHandler) AdminDashboard(c *gin.Context) {
	d, err := h.dashboardService.GetAdminDashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}

// StaffDashboard returns the caller's open assignments
// @Summary      Staff dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.StaffDashboard}
// @Failure      403  {object}  response.Response
// @Router       /api/staff/dashboard [get]
func (h *DashboardHandler) StaffDashboard(c *gin.Context) {
	d, err := h.dashboardService.GetStaffDashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}

// CustomerDashboard summarises the caller's account
// @Summary      Customer dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.CustomerDashboard}
// @Failure      403  {object}  response.Response
// @Router       /api/customer/dashboard [get]
func (h *DashboardHandler) CustomerDashboard(c *gin.Context) {
	d, err := h.dashboardService.GetCustomerDashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}
