package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/middleware"
	"github.com/campushq/announcements-api/internal/models"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

type feedProviderMock struct {
	feed        []dto.FeedItem
	feedErr     error
	unread      int
	markResp    *dto.FeedItem
	markErr     error
	unmarkErr   error
	markedIDs   []int64
	unmarkedIDs []int64
}

func (m *feedProviderMock) Feed(ctx context.Context, user *models.User, at time.Time) ([]dto.FeedItem, error) {
	return m.feed, m.feedErr
}

func (m *feedProviderMock) UnreadCount(ctx context.Context, user *models.User, at time.Time) (int, error) {
	return m.unread, m.feedErr
}

func (m *feedProviderMock) MarkRead(ctx context.Context, user *models.User, announcementID int64, at time.Time) (*dto.FeedItem, error) {
	m.markedIDs = append(m.markedIDs, announcementID)
	return m.markResp, m.markErr
}

func (m *feedProviderMock) MarkUnread(ctx context.Context, user *models.User, announcementID int64) error {
	m.unmarkedIDs = append(m.unmarkedIDs, announcementID)
	return m.unmarkErr
}

type currentUserMock struct {
	user *models.User
	err  error
}

func (m *currentUserMock) CurrentUser(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	return m.user, m.err
}

func studentContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})
	return c, w
}

func TestFeedHandlerVisible(t *testing.T) {
	provider := &feedProviderMock{feed: []dto.FeedItem{{ID: 1, Subject: "Closure"}}}
	auth := &currentUserMock{user: &models.User{ID: "user-1", Role: models.RoleStudent, Active: true}}
	h := NewFeedHandler(provider, auth)

	c, w := studentContext(t, http.MethodGet, "/announcements/visible")
	h.Visible(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Closure")
}

func TestFeedHandlerVisibleUnauthorized(t *testing.T) {
	h := NewFeedHandler(&feedProviderMock{}, &currentUserMock{err: appErrors.ErrUnauthorized})

	c, w := studentContext(t, http.MethodGet, "/announcements/visible")
	h.Visible(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedHandlerUnreadCount(t *testing.T) {
	provider := &feedProviderMock{unread: 4}
	auth := &currentUserMock{user: &models.User{ID: "user-1"}}
	h := NewFeedHandler(provider, auth)

	c, w := studentContext(t, http.MethodGet, "/announcements/unread/count")
	h.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"announcements":4`)
}

func TestFeedHandlerMarkRead(t *testing.T) {
	provider := &feedProviderMock{markResp: &dto.FeedItem{ID: 7}}
	auth := &currentUserMock{user: &models.User{ID: "user-1"}}
	h := NewFeedHandler(provider, auth)

	c, w := studentContext(t, http.MethodPost, "/announcements/7/read")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.MarkRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{7}, provider.markedIDs)
}

func TestFeedHandlerMarkUnread(t *testing.T) {
	provider := &feedProviderMock{}
	auth := &currentUserMock{user: &models.User{ID: "user-1"}}
	h := NewFeedHandler(provider, auth)

	c, w := studentContext(t, http.MethodDelete, "/announcements/7/read")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.MarkUnread(c)
	// Flush the status gin would write when the handler chain unwinds.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{7}, provider.unmarkedIDs)
}
