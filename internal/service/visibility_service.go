package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

// bodyPreviewChars is the length of the truncated body shown in inbox rows.
const bodyPreviewChars = 80

type visibilityAnnouncementStore interface {
	ListWindow(ctx context.Context, at time.Time, urgentOnly bool) ([]models.Announcement, error)
	GetByID(ctx context.Context, id int64) (*models.Announcement, error)
}

type programmeMembershipChecker interface {
	HasProgrammeMembership(ctx context.Context, userID string, programmeID int64) (bool, error)
}

type courseMembershipCache interface {
	IsCourseMember(ctx context.Context, vleCourseID, username string) bool
	IsGroupMember(ctx context.Context, vleCourseID, vleGroupID, username string) bool
}

type readMarkStore interface {
	Upsert(ctx context.Context, userID string, announcementID int64, at time.Time) (time.Time, error)
	Delete(ctx context.Context, userID string, announcementID int64) error
	ListForUser(ctx context.Context, userID string, announcementIDs []int64) ([]models.UserAnnouncement, error)
}

// VisibilityService decides which announcements a user can currently see and
// assembles the read/unread annotated feed.
type VisibilityService struct {
	announcements visibilityAnnouncementStore
	marks         readMarkStore
	programmes    programmeMembershipChecker
	memberships   courseMembershipCache
	feedLimit     int
	logger        *zap.Logger
}

// NewVisibilityService constructs the service. feedLimit caps the number of
// read, non-urgent items in the assembled feed.
func NewVisibilityService(
	announcements visibilityAnnouncementStore,
	marks readMarkStore,
	programmes programmeMembershipChecker,
	memberships courseMembershipCache,
	feedLimit int,
	logger *zap.Logger,
) *VisibilityService {
	if feedLimit < 0 {
		feedLimit = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{
		announcements: announcements,
		marks:         marks,
		programmes:    programmes,
		memberships:   memberships,
		feedLimit:     feedLimit,
		logger:        logger,
	}
}

// Visible returns the announcements whose visibility window contains at and
// whose audience, programme, course and group filters all pass for the
// user. The four filters are conjunctive.
func (s *VisibilityService) Visible(ctx context.Context, user *models.User, at time.Time, urgentOnly bool) ([]models.Announcement, error) {
	candidates, err := s.announcements.ListWindow(ctx, at, urgentOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcements")
	}

	visible := make([]models.Announcement, 0, len(candidates))
	for _, announcement := range candidates {
		if !announcement.Audience.Includes(user.Role) {
			continue
		}
		ok, err := s.programmeAllows(ctx, &announcement, user)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !s.courseAllows(ctx, &announcement, user) {
			continue
		}
		if !s.groupAllows(ctx, &announcement, user) {
			continue
		}
		visible = append(visible, announcement)
	}
	return visible, nil
}

// Feed returns the user's annotated feed: every visible announcement marked
// with its read state, capped by the configured limit.
func (s *VisibilityService) Feed(ctx context.Context, user *models.User, at time.Time) ([]dto.FeedItem, error) {
	visible, err := s.Visible(ctx, user, at, false)
	if err != nil {
		return nil, err
	}
	annotated, err := s.annotate(ctx, user.ID, visible)
	if err != nil {
		return nil, err
	}
	return assembleFeed(annotated, s.feedLimit), nil
}

// UnreadCount counts the unread items in the user's assembled feed. Unread
// items are always included by the cap, so the counter never under-reports.
func (s *VisibilityService) UnreadCount(ctx context.Context, user *models.User, at time.Time) (int, error) {
	feed, err := s.Feed(ctx, user, at)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range feed {
		if item.MarkedRead == nil {
			count++
		}
	}
	return count, nil
}

// MarkRead upserts the user's read-mark for the announcement, refreshing the
// timestamp on repeat calls, and returns the annotated item.
func (s *VisibilityService) MarkRead(ctx context.Context, user *models.User, announcementID int64, at time.Time) (*dto.FeedItem, error) {
	announcement, err := s.announcements.GetByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError(announcementID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	readAt, err := s.marks.Upsert(ctx, user.ID, announcementID, at)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark announcement read")
	}
	item := feedItem(announcement, &readAt)
	return &item, nil
}

// MarkUnread removes the user's read-mark. Removing an absent mark is a
// no-op: the target state is "unread" either way.
func (s *VisibilityService) MarkUnread(ctx context.Context, user *models.User, announcementID int64) error {
	if err := s.marks.Delete(ctx, user.ID, announcementID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark announcement unread")
	}
	return nil
}

func (s *VisibilityService) programmeAllows(ctx context.Context, announcement *models.Announcement, user *models.User) (bool, error) {
	if announcement.ProgrammeID == nil {
		return true, nil
	}
	member, err := s.programmes.HasProgrammeMembership(ctx, user.ID, *announcement.ProgrammeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check programme membership")
	}
	return member, nil
}

// courseAllows fails closed: a course-scoped announcement with no cached VLE
// course id or member list excludes the user.
func (s *VisibilityService) courseAllows(ctx context.Context, announcement *models.Announcement, user *models.User) bool {
	if announcement.ScheduledCourseID == nil {
		return true
	}
	if announcement.VLECourseID == nil {
		return false
	}
	return s.memberships.IsCourseMember(ctx, *announcement.VLECourseID, user.Username)
}

func (s *VisibilityService) groupAllows(ctx context.Context, announcement *models.Announcement, user *models.User) bool {
	if announcement.GroupID == nil {
		return true
	}
	if announcement.VLECourseID == nil || announcement.VLEGroupID == nil {
		return false
	}
	return s.memberships.IsGroupMember(ctx, *announcement.VLECourseID, *announcement.VLEGroupID, user.Username)
}

func (s *VisibilityService) annotate(ctx context.Context, userID string, visible []models.Announcement) ([]dto.FeedItem, error) {
	ids := make([]int64, len(visible))
	for i, announcement := range visible {
		ids[i] = announcement.ID
	}
	marks, err := s.marks.ListForUser(ctx, userID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load read-marks")
	}
	readAt := make(map[int64]time.Time, len(marks))
	for _, mark := range marks {
		readAt[mark.AnnouncementID] = mark.CreatedAt
	}

	items := make([]dto.FeedItem, len(visible))
	for i := range visible {
		var marked *time.Time
		if ts, ok := readAt[visible[i].ID]; ok {
			t := ts
			marked = &t
		}
		items[i] = feedItem(&visible[i], marked)
	}
	return items, nil
}

// assembleFeed applies the inclusion policy: urgent or unread items are
// always included and never consume the budget; read, non-urgent items fill
// the remaining budget in input order. Relative order is preserved, dropped
// items are simply skipped in place.
func assembleFeed(items []dto.FeedItem, limit int) []dto.FeedItem {
	alwaysIncluded := 0
	for _, item := range items {
		if alwaysInclude(item) {
			alwaysIncluded++
		}
	}
	budget := limit - alwaysIncluded
	if budget < 0 {
		budget = 0
	}

	out := make([]dto.FeedItem, 0, len(items))
	used := 0
	for _, item := range items {
		if alwaysInclude(item) {
			out = append(out, item)
			continue
		}
		if used < budget {
			used++
			out = append(out, item)
		}
	}
	return out
}

func alwaysInclude(item dto.FeedItem) bool {
	return item.IsUrgent || item.MarkedRead == nil
}

func feedItem(announcement *models.Announcement, markedRead *time.Time) dto.FeedItem {
	var modified *time.Time
	if announcement.Edited() {
		t := announcement.UpdatedAt
		modified = &t
	}
	return dto.FeedItem{
		ID:          announcement.ID,
		Subject:     announcement.Subject,
		Body:        dto.FeedBody{Body: announcement.Body, Truncated: truncateChars(announcement.Body, bodyPreviewChars)},
		VisibleFrom: announcement.VisibleFrom,
		IsUrgent:    announcement.IsUrgent,
		Modified:    modified,
		MarkedRead:  markedRead,
	}
}

// truncateChars shortens s to at most limit characters, ellipsis included.
func truncateChars(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
