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

type instructorService interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Instructor, error)
	Create(ctx context.Context, req service.InstructorRequest) (*models.Instructor, error)
	Update(ctx context.Context, id string, req service.InstructorRequest) (*models.Instructor, error)
	Delete(ctx context.Context, id string) error
}

// InstructorHandler handles instructor endpoints.
type InstructorHandler struct {
	service instructorService
}

func NewInstructorHandler(svc instructorService) *InstructorHandler {
	return &InstructorHandler{service: svc}
}

// List godoc
// @Summary List instructors
// @Tags Instructors
// @Produce json
// @Param search query string false "Search by name, number or email"
// @Param department query string false "Department"
// @Param active query bool false "Active filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	var filter models.InstructorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Department = c.Query("department")
	filter.Active = boolQuery(c, "active")
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get instructor
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "instructor")
	if !ok {
		return
	}
	instructor, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, instructor)
}

// Create godoc
// @Summary Create instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param payload body service.InstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors [post]
func (h *InstructorHandler) Create(c *gin.Context) {
	var req service.InstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	instructor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// Update godoc
// @Summary Update instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param id path string true "Instructor ID"
// @Param payload body service.InstructorRequest true "Instructor payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /instructors/{id} [put]
func (h *InstructorHandler) Update(c *gin.Context) {
	var req service.InstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c, "instructor")
	if !ok {
		return
	}
	instructor, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, instructor)
}

// Delete godoc
// @Summary Delete instructor
// @Tags Instructors
// @Param id path string true "Instructor ID"
// @Success 204
// @Security BearerAuth
// @Router /instructors/{id} [delete]
func (h *InstructorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "instructor")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
