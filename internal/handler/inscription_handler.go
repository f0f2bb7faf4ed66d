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

type inscriptionService interface {
	List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error)
	ListMine(ctx context.Context, userID string, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error)
	Create(ctx context.Context, userID string, req service.CreateInscriptionRequest) (*models.Inscription, error)
	Decide(ctx context.Context, id string, req service.DecideInscriptionRequest, actorID string) (*service.InscriptionResult, error)
	Cancel(ctx context.Context, id, userID string) (*models.Inscription, error)
	Delete(ctx context.Context, id string) error
}

// InscriptionHandler handles course registration requests.
type InscriptionHandler struct {
	service inscriptionService
}

// NewInscriptionHandler constructs the handler.
func NewInscriptionHandler(svc inscriptionService) *InscriptionHandler {
	return &InscriptionHandler{service: svc}
}

// List godoc
// @Summary List inscriptions
// @Description Administrators see every inscription, students only their own
// @Tags Inscriptions
// @Produce json
// @Param studentId query string false "Student (admin only)"
// @Param courseId query string false "Course"
// @Param period query string false "Academic period"
// @Param status query string false "PENDING, APPROVED, REJECTED or CANCELLED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions [get]
func (h *InscriptionHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if !validQueryIDs(c, "courseId") {
		return
	}
	filter := models.InscriptionFilter{
		CourseID:       c.Query("courseId"),
		AcademicPeriod: c.Query("period"),
		Status:         models.InscriptionStatus(strings.ToUpper(c.Query("status"))),
	}
	filter.Page, filter.PageSize = pageParams(c)

	var (
		items      []models.InscriptionDetail
		pagination *models.Pagination
		err        error
	)
	if claims.Role.IsAdmin() {
		if !validQueryIDs(c, "studentId") {
			return
		}
		filter.StudentID = c.Query("studentId")
		items, pagination, err = h.service.List(c.Request.Context(), filter)
	} else {
		items, pagination, err = h.service.ListMine(c.Request.Context(), claims.UserID, filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Request inscription in a course
// @Tags Inscriptions
// @Accept json
// @Produce json
// @Param payload body service.CreateInscriptionRequest true "Inscription payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions [post]
func (h *InscriptionHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.CreateInscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	inscription, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inscription)
}

// Decide godoc
// @Summary Approve or reject an inscription
// @Description Approval enrolls the student, waitlisting when the course is full
// @Tags Inscriptions
// @Accept json
// @Produce json
// @Param id path string true "Inscription ID"
// @Param payload body service.DecideInscriptionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions/{id} [put]
func (h *InscriptionHandler) Decide(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.DecideInscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c, "inscription")
	if !ok {
		return
	}
	result, err := h.service.Decide(c.Request.Context(), id, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Delete godoc
// @Summary Cancel or delete an inscription
// @Description Students cancel their own pending inscription; administrators delete outright
// @Tags Inscriptions
// @Produce json
// @Param id path string true "Inscription ID"
// @Success 200 {object} response.Envelope
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions/{id} [delete]
func (h *InscriptionHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	id, ok := pathID(c, "inscription")
	if !ok {
		return
	}
	if claims.Role.IsAdmin() {
		if err := h.service.Delete(c.Request.Context(), id); err != nil {
			response.Error(c, err)
			return
		}
		response.NoContent(c)
		return
	}
	inscription, err := h.service.Cancel(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inscription)
}
