package handler

import (
	"net/http"

	"carservice/internal/middleware"
	"carservice/internal/model"
	"carservice/internal/service"
	"carservice/pkg/pagination"
	"carservice/pkg/response"

	"github.com/gin-gonic/gin"
)

type CommunicationHandler struct {
	notificationService service.NotificationService
}

func NewCommunicationHandler(notificationService service.NotificationService) *CommunicationHandler {
	return &CommunicationHandler{notificationService: notificationService}
}

func (h *CommunicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/admin/communication", middleware.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetDashboard)
		group.GET("/logs", h.ListLogs)
		group.POST("/templates", h.CreateTemplate)
		group.PUT("/templates/:id", h.UpdateTemplate)
		group.POST("/broadcast", h.SendBroadcast)
	}
}

// GetDashboard lists templates and the latest delivery attempts
// @Summary      Communication dashboard
// @Tags         communication
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.CommunicationDashboard}
// @Router       /api/admin/communication [get]
func (h *CommunicationHandler) GetDashboard(c *gin.Context) {
	d, err := h.notificationService.GetCommunicationDashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}

// ListLogs pages through the communication log
// @Summary      Communication logs
// @Tags         communication
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/admin/communication/logs [get]
func (h *CommunicationHandler) ListLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.notificationService.ListLogs(c.Request.Context(), middleware.CurrentPrincipal(c), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Result("logs", logs, total)))
}

// CreateTemplate adds a notification template
// @Summary      Create template
// @Tags         communication
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TemplateRequest  true  "Template Payload"
// @Success      201      {object}  response.Response{data=model.NotificationTemplate}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/communication/templates [post]
func (h *CommunicationHandler) CreateTemplate(c *gin.Context) {
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tmpl, err := h.notificationService.CreateTemplate(c.Request.Context(), middleware.CurrentPrincipal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tmpl))
}

// UpdateTemplate edits a notification template
// @Summary      Update template
// @Tags         communication
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Template ID"
// @Param        payload  body      service.TemplateRequest  true  "Template Payload"
// @Success      200      {object}  response.Response{data=model.NotificationTemplate}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/admin/communication/templates/{id} [put]
func (h *CommunicationHandler) UpdateTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tmpl, err := h.notificationService.UpdateTemplate(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tmpl))
}

// SendBroadcast messages every customer
// @Summary      Broadcast to customers
// @Description  One delivery per customer; individual failures are counted, not fatal
// @Tags         communication
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BroadcastRequest  true  "Broadcast Payload"
// @Success      200      {object}  response.Response{data=service.BroadcastResult}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/communication/broadcast [post]
func (h *CommunicationHandler) SendBroadcast(c *gin.Context) {
	var req service.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.notificationService.SendBroadcast(c.Request.Context(), middleware.CurrentPrincipal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
