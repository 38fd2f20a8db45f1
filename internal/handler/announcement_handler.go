package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
	"github.com/campushq/announcements-api/pkg/response"
)

type announcementManager interface {
	List(ctx context.Context, params dto.ListAnnouncementsQuery) ([]dto.AnnouncementItem, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*dto.AnnouncementDetail, error)
	Create(ctx context.Context, req dto.CreateAnnouncementRequest, actor *models.JWTClaims) (*dto.AnnouncementItem, error)
	Update(ctx context.Context, id int64, req dto.UpdateAnnouncementRequest) (*dto.AnnouncementItem, error)
	Delete(ctx context.Context, id int64) error
	Load(ctx context.Context, id int64) (*models.Announcement, error)
}

type recipientPreviewer interface {
	Preview(ctx context.Context, announcement *models.Announcement) ([]dto.RecipientPreview, error)
}

// AnnouncementHandler handles the admin announcement endpoints.
type AnnouncementHandler struct {
	service    announcementManager
	recipients recipientPreviewer
}

// NewAnnouncementHandler constructs an announcement handler.
func NewAnnouncementHandler(svc announcementManager, recipients recipientPreviewer) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc, recipients: recipients}
}

// List godoc
// @Summary List announcements
// @Description Searchable, sortable admin listing
// @Tags Announcements
// @Produce json
// @Param q query string false "Free-text query"
// @Param column query string false "Sort column"
// @Param order query string false "Sort order, desc for descending"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	var params dto.ListAnnouncementsQuery
	params.Q = strings.TrimSpace(c.Query("q"))
	params.Column = c.Query("column")
	params.Order = c.Query("order")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = page
	}
	if perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "0")); err == nil {
		params.PerPage = perPage
	}

	items, pagination, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get announcement by id
// @Tags Announcements
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	id, err := announcementID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create announcement
// @Description Creating an urgent announcement emails every recipient
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body dto.CreateAnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update announcement
// @Description Full-record replacement, never emails recipients
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path int true "Announcement ID"
// @Param payload body dto.UpdateAnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	id, err := announcementID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	id, err := announcementID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Recipients godoc
// @Summary Preview announcement recipients
// @Description Resolves the accounts the announcement currently reaches
// @Tags Announcements
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id}/recipients [get]
func (h *AnnouncementHandler) Recipients(c *gin.Context) {
	id, err := announcementID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	announcement, err := h.service.Load(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	preview, err := h.recipients.Preview(c.Request.Context(), announcement)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

func announcementID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "announcement id must be numeric")
	}
	return id, nil
}
