package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

// requireClaims writes 401 and returns nil when the request is anonymous.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
// Chunked requests carry no ContentLength, so an empty body is detected on decode.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// pageParams reads page and limit, defaulting to 1 and 20.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		size = 20
	}
	return page, size
}

// pathID returns the :id parameter. A value that is not a UUID cannot name
// any row, so it is answered with 404 before reaching storage.
func pathID(c *gin.Context, resource string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, resource+" not found"))
		return "", false
	}
	return id, true
}

// validQueryIDs writes 400 when any of the given filters is set but not a UUID.
func validQueryIDs(c *gin.Context, keys ...string) bool {
	for _, key := range keys {
		value := c.Query(key)
		if value == "" {
			continue
		}
		if _, err := uuid.Parse(value); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, key+" must be a UUID"))
			return false
		}
	}
	return true
}

// boolQuery returns nil unless the parameter is exactly true or false.
func boolQuery(c *gin.Context, key string) *bool {
	switch strings.ToLower(c.Query(key)) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

func listMeta(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}
