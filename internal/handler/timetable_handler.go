package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type timetableService interface {
	List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ClassSessionDetail, error)
	Create(ctx context.Context, req service.ClassSessionRequest) (*models.ClassSessionDetail, error)
	Update(ctx context.Context, id string, req service.ClassSessionRequest) (*models.ClassSessionDetail, error)
	Delete(ctx context.Context, id string) error
	StudentTimetable(ctx context.Context, userID string) (*dto.StudentTimetable, bool, error)
}

type exportService interface {
	ExportTimetable(ctx context.Context, userID, format string) (*dto.TimetableExport, error)
	Open(token string) (*service.ExportFile, error)
}

// TimetableHandler serves class sessions and the student weekly view.
type TimetableHandler struct {
	service timetableService
	exports exportService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableService, exports exportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List class sessions
// @Description Sessions sorted by weekday then start time
// @Tags Timetable
// @Produce json
// @Param courseId query string false "Course"
// @Param instructorId query string false "Instructor"
// @Param day query string false "MONDAY..SUNDAY"
// @Param room query string false "Room"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	if !validQueryIDs(c, "courseId", "instructorId") {
		return
	}
	filter := models.ClassSessionFilter{
		CourseID:     c.Query("courseId"),
		InstructorID: c.Query("instructorId"),
		DayOfWeek:    strings.ToUpper(strings.TrimSpace(c.Query("day"))),
		Room:         strings.TrimSpace(c.Query("room")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	sessions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get class session
// @Tags Timetable
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "class session")
	if !ok {
		return
	}
	session, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Create godoc
// @Summary Create class session
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.ClassSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req service.ClassSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update class session
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.ClassSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req service.ClassSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c, "class session")
	if !ok {
		return
	}
	session, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Delete godoc
// @Summary Delete class session
// @Tags Timetable
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "class session")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Student godoc
// @Summary Weekly timetable of the calling student
// @Description Sessions of ENROLLED courses grouped by weekday
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/student [get]
func (h *TimetableHandler) Student(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	timetable, hit, err := h.service.StudentTimetable(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, timetable, nil, listMeta(c, nil))
}

// Export godoc
// @Summary Export the calling student's timetable
// @Description Renders the timetable and returns a signed download link
// @Tags Timetable
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/student/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.exports.ExportTimetable(c.Request.Context(), claims.UserID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Download godoc
// @Summary Download a generated export
// @Description The signed token is the only credential
// @Tags Timetable
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	file, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()

	info, err := file.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read export"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), file.ContentType, file.File, map[string]string{
		"Content-Disposition": `attachment; filename="` + file.Name + `"`,
		"Cache-Control":       "no-store",
	})
}
