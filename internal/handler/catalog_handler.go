package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/announcements-api/internal/service"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
	"github.com/campushq/announcements-api/pkg/response"
)

// CatalogHandler serves the compose-form option endpoints.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

type idsRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// Audiences godoc
// @Summary Audience and programme options
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/audiences [get]
func (h *CatalogHandler) Audiences(c *gin.Context) {
	options, err := h.service.AudiencesAndProgrammes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// MasterCourses godoc
// @Summary Master course options
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body idsRequest true "Master course ids"
// @Success 200 {object} response.Envelope
// @Router /catalog/master-courses [post]
func (h *CatalogHandler) MasterCourses(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	options, err := h.service.MasterCourses(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// ScheduledCourses godoc
// @Summary Scheduled course options
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body idsRequest true "Scheduled course ids"
// @Success 200 {object} response.Envelope
// @Router /catalog/scheduled-courses [post]
func (h *CatalogHandler) ScheduledCourses(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	options, err := h.service.ScheduledCourses(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// ScheduledCourseGroups godoc
// @Summary Scheduled course group options
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body idsRequest true "Group ids"
// @Success 200 {object} response.Envelope
// @Router /catalog/scheduled-course-groups [post]
func (h *CatalogHandler) ScheduledCourseGroups(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	options, err := h.service.ScheduledCourseGroups(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

func (h *CatalogHandler) bindIDs(c *gin.Context) ([]int64, bool) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return nil, false
	}
	return req.IDs, true
}
