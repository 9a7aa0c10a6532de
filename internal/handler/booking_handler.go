package handler

import (
	"net/http"
	"strings"

	"carservice/internal/middleware"
	"carservice/internal/model"
	"carservice/internal/service"
	"carservice/pkg/pagination"
	"carservice/pkg/response"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService  service.BookingService
	feedbackService service.FeedbackService
}

func NewBookingHandler(bookingService service.BookingService, feedbackService service.FeedbackService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, feedbackService: feedbackService}
}

func (h *BookingHandler) RegisterRoutes(router *gin.RouterGroup) {
	customer := router.Group("/bookings", middleware.RequireRole(model.RoleCustomer))
	{
		customer.GET("", h.ListMyBookings)
		customer.POST("", h.CreateBooking)
		customer.GET("/:id", h.GetBooking)
		customer.PUT("/:id", h.UpdateBooking)
		customer.POST("/:id/feedback", h.SubmitFeedback)
	}

	staff := router.Group("/staff/bookings", middleware.RequireRole(model.RoleStaff))
	{
		staff.GET("", h.ListStaffBookings)
		staff.PATCH("/:id/status", h.UpdateStatus)
	}

	admin := router.Group("/admin/bookings", middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("", h.ListAllBookings)
		admin.PUT("/:id/assign", h.AssignStaff)
		admin.PATCH("/:id/status", h.UpdateStatus)
	}
}

func listFilter(c *gin.Context) service.BookingListFilter {
	p := pagination.Parse(c)
	return service.BookingListFilter{
		Status: model.BookingStatus(strings.ToUpper(c.Query("status"))),
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

type listFunc func(ctx *gin.Context, filter service.BookingListFilter) ([]model.Booking, int64, error)

func (h *BookingHandler) respondList(c *gin.Context, list listFunc) {
	filter := listFilter(c)
	bookings, total, err := list(c, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.New(filter.Page, filter.Limit).Result("bookings", bookings, total)))
}

// ListMyBookings returns the caller's bookings
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "PENDING, IN_PROGRESS, COMPLETED or CANCELLED"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/bookings [get]
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	h.respondList(c, func(ctx *gin.Context, f service.BookingListFilter) ([]model.Booking, int64, error) {
		return h.bookingService.ListBookings(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), f)
	})
}

// ListStaffBookings returns bookings assigned to the calling staff member
// @Summary      List assigned bookings
// @Tags         staff
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Booking status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/staff/bookings [get]
func (h *BookingHandler) ListStaffBookings(c *gin.Context) {
	h.respondList(c, func(ctx *gin.Context, f service.BookingListFilter) ([]model.Booking, int64, error) {
		return h.bookingService.ListStaffBookings(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), f)
	})
}

// ListAllBookings returns every booking
// @Summary      List all bookings
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Booking status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/admin/bookings [get]
func (h *BookingHandler) ListAllBookings(c *gin.Context) {
	h.respondList(c, func(ctx *gin.Context, f service.BookingListFilter) ([]model.Booking, int64, error) {
		return h.bookingService.ListAllBookings(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), f)
	})
}

// CreateBooking books a service for one of the caller's vehicles
// @Summary      Create booking
// @Description  Creates a PENDING booking and sends the booking confirmation
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BookingRequest  true  "Booking Payload"
// @Success      201      {object}  response.Response{data=model.Booking}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), middleware.CurrentPrincipal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, booking))
}

// GetBooking returns one of the caller's bookings
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=model.Booking}
// @Failure      404  {object}  response.Response
// @Router       /api/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookingService.GetBooking(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, booking))
}

// UpdateBooking reschedules a pending booking
// @Summary      Update booking
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Booking ID"
// @Param        payload  body      service.BookingRequest  true  "Booking Payload"
// @Success      200      {object}  response.Response{data=model.Booking}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/bookings/{id} [put]
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, booking))
}

// SubmitFeedback rates a completed booking once
// @Summary      Submit feedback
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Booking ID"
// @Param        payload  body      service.FeedbackRequest  true  "Feedback Payload"
// @Success      201      {object}  response.Response{data=model.Feedback}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/bookings/{id}/feedback [post]
func (h *BookingHandler) SubmitFeedback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	feedback, err := h.feedbackService.SubmitFeedback(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, feedback))
}

// UpdateStatus moves a booking through its lifecycle
// @Summary      Update booking status
// @Description  PENDING -> IN_PROGRESS -> COMPLETED. Staff may only update bookings assigned to them.
// @Tags         staff
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Booking ID"
// @Param        payload  body      service.UpdateStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=model.Booking}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/staff/bookings/{id}/status [patch]
// @Router       /api/admin/bookings/{id}/status [patch]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.bookingService.UpdateBookingStatus(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, booking))
}

// AssignStaff assigns a staff member to a booking
// @Summary      Assign staff
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Booking ID"
// @Param        payload  body      service.AssignStaffRequest  true  "Assignment Payload"
// @Success      200      {object}  response.Response{data=model.Booking}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/admin/bookings/{id}/assign [put]
func (h *BookingHandler) AssignStaff(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.bookingService.AssignStaff(c.Request.Context(), middleware.CurrentPrincipal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, booking))
}
