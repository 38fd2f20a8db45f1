package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/pkg/response"
)

type feedProvider interface {
	Feed(ctx context.Context, user *models.User, at time.Time) ([]dto.FeedItem, error)
	UnreadCount(ctx context.Context, user *models.User, at time.Time) (int, error)
	MarkRead(ctx context.Context, user *models.User, announcementID int64, at time.Time) (*dto.FeedItem, error)
	MarkUnread(ctx context.Context, user *models.User, announcementID int64) error
}

type currentUserProvider interface {
	CurrentUser(ctx context.Context, claims *models.JWTClaims) (*models.User, error)
}

// FeedHandler handles the per-user announcement feed endpoints.
type FeedHandler struct {
	visibility feedProvider
	auth       currentUserProvider
}

// NewFeedHandler constructs a feed handler.
func NewFeedHandler(visibility feedProvider, auth currentUserProvider) *FeedHandler {
	return &FeedHandler{visibility: visibility, auth: auth}
}

// Visible godoc
// @Summary Current user's announcement feed
// @Description Visible announcements annotated with read state
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /announcements/visible [get]
func (h *FeedHandler) Visible(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	feed, err := h.visibility.Feed(c.Request.Context(), user, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feed, nil)
}

// UnreadCount godoc
// @Summary Unread announcement counter
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /announcements/unread/count [get]
func (h *FeedHandler) UnreadCount(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	count, err := h.visibility.UnreadCount(c.Request.Context(), user, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.UnreadCount{Announcements: count}, nil)
}

// MarkRead godoc
// @Summary Mark announcement read
// @Description Repeat calls refresh the read timestamp
// @Tags Feed
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id}/read [post]
func (h *FeedHandler) MarkRead(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, err := announcementID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.visibility.MarkRead(c.Request.Context(), user, id, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// MarkUnread godoc
// @Summary Mark announcement unread
// @Tags Feed
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 204
// @Router /announcements/{id}/read [delete]
func (h *FeedHandler) MarkUnread(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, err := announcementID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.visibility.MarkUnread(c.Request.Context(), user, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *FeedHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, err := h.auth.CurrentUser(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return user, true
}
