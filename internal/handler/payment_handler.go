package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type paymentService interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, models.PaymentSummary, error)
	ListMine(ctx context.Context, userID string, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, models.PaymentSummary, error)
	Get(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, req service.CreatePaymentRequest) (*models.Payment, error)
	Update(ctx context.Context, id string, req service.UpdatePaymentRequest) (*models.Payment, error)
	Pay(ctx context.Context, id string, req service.PayRequest, userID string, admin bool) (*models.Payment, error)
	Delete(ctx context.Context, id string) error
}

// PaymentHandler manages student charges.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// List godoc
// @Summary List payments
// @Description Administrators see every charge, students only their own; meta carries the outstanding total
// @Tags Payments
// @Produce json
// @Param studentId query string false "Student (admin only)"
// @Param status query string false "PENDING, PAID, OVERDUE or CANCELLED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.PaymentFilter{Status: models.PaymentStatus(strings.ToUpper(c.Query("status")))}
	filter.Page, filter.PageSize = pageParams(c)

	var (
		items      []models.Payment
		pagination *models.Pagination
		summary    models.PaymentSummary
		err        error
	)
	if claims.Role.IsAdmin() {
		if !validQueryIDs(c, "studentId") {
			return
		}
		filter.StudentID = c.Query("studentId")
		items, pagination, summary, err = h.service.List(c.Request.Context(), filter)
	} else {
		items, pagination, summary, err = h.service.ListMine(c.Request.Context(), claims.UserID, filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, listMeta(c, map[string]interface{}{
		"outstanding_count": summary.Count,
		"outstanding_cents": summary.TotalCents,
	}))
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "payment")
	if !ok {
		return
	}
	payment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// Create godoc
// @Summary Bill a student
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Update godoc
// @Summary Update payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.UpdatePaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	var req service.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c, "payment")
	if !ok {
		return
	}
	payment, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// Pay godoc
// @Summary Settle a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.PayRequest false "Settlement reference"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id}/pay [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.PayRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	id, ok := pathID(c, "payment")
	if !ok {
		return
	}
	payment, err := h.service.Pay(c.Request.Context(), id, req, claims.UserID, claims.Role.IsAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// Delete godoc
// @Summary Delete payment
// @Tags Payments
// @Param id path string true "Payment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "payment")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
