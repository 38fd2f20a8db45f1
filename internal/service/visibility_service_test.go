package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

type announcementStoreStub struct {
	window  []models.Announcement
	byID    map[int64]*models.Announcement
	listErr error
}

func (s *announcementStoreStub) ListWindow(ctx context.Context, at time.Time, urgentOnly bool) ([]models.Announcement, error) {
	return s.window, s.listErr
}

func (s *announcementStoreStub) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	if a, ok := s.byID[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

type readMarkStoreStub struct {
	marks      []models.UserAnnouncement
	upsertAt   time.Time
	upsertErr  error
	deleted    []int64
	deleteErr  error
	upsertCall int
}

func (s *readMarkStoreStub) Upsert(ctx context.Context, userID string, announcementID int64, at time.Time) (time.Time, error) {
	s.upsertCall++
	if s.upsertErr != nil {
		return time.Time{}, s.upsertErr
	}
	if !s.upsertAt.IsZero() {
		return s.upsertAt, nil
	}
	return at, nil
}

func (s *readMarkStoreStub) Delete(ctx context.Context, userID string, announcementID int64) error {
	s.deleted = append(s.deleted, announcementID)
	return s.deleteErr
}

func (s *readMarkStoreStub) ListForUser(ctx context.Context, userID string, announcementIDs []int64) ([]models.UserAnnouncement, error) {
	return s.marks, nil
}

type programmeCheckerStub struct {
	memberOf map[int64]bool
	err      error
}

func (s programmeCheckerStub) HasProgrammeMembership(ctx context.Context, userID string, programmeID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.memberOf[programmeID], nil
}

type membershipCacheStub struct {
	courses map[string][]string
	groups  map[string][]string
}

func (s membershipCacheStub) IsCourseMember(ctx context.Context, vleCourseID, username string) bool {
	for _, member := range s.courses[vleCourseID] {
		if member == username {
			return true
		}
	}
	return false
}

func (s membershipCacheStub) IsGroupMember(ctx context.Context, vleCourseID, vleGroupID, username string) bool {
	for _, member := range s.groups[vleCourseID+"/"+vleGroupID] {
		if member == username {
			return true
		}
	}
	return false
}

func (s membershipCacheStub) CourseMembers(ctx context.Context, vleCourseID string) []string {
	return s.courses[vleCourseID]
}

func (s membershipCacheStub) GroupMembers(ctx context.Context, vleCourseID, vleGroupID string) []string {
	return s.groups[vleCourseID+"/"+vleGroupID]
}

func i64(v int64) *int64 { return &v }

func str(v string) *string { return &v }

func studentUser() *models.User {
	return &models.User{ID: "user-1", Username: "student1", Role: models.RoleStudent, Active: true}
}

func windowAnnouncement(id int64, audience models.Audience) models.Announcement {
	now := time.Now()
	return models.Announcement{
		ID:          id,
		Subject:     "subject",
		Body:        "body",
		VisibleFrom: now.Add(-time.Hour),
		VisibleTo:   now.Add(time.Hour),
		Audience:    audience,
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
}

func TestVisibleFiltersByAudience(t *testing.T) {
	store := &announcementStoreStub{window: []models.Announcement{
		windowAnnouncement(1, models.AudienceAll),
		windowAnnouncement(2, models.AudienceStudents),
		windowAnnouncement(3, models.AudienceTutors),
		windowAnnouncement(4, models.AudienceStudentsAndTutors),
	}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	visible, err := svc.Visible(context.Background(), studentUser(), time.Now(), false)
	require.NoError(t, err)
	ids := make([]int64, 0, len(visible))
	for _, a := range visible {
		ids = append(ids, a.ID)
	}
	// The combined audience matches a student through its students part.
	assert.Equal(t, []int64{1, 2, 4}, ids)
}

func TestVisibleCombinedAudienceMatchesTutor(t *testing.T) {
	store := &announcementStoreStub{window: []models.Announcement{
		windowAnnouncement(1, models.AudienceStudentsAndTutors),
	}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	tutor := &models.User{ID: "user-2", Username: "tutor1", Role: models.RoleTutor, Active: true}
	visible, err := svc.Visible(context.Background(), tutor, time.Now(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestVisibleAdminSeesOnlyAll(t *testing.T) {
	store := &announcementStoreStub{window: []models.Announcement{
		windowAnnouncement(1, models.AudienceAll),
		windowAnnouncement(2, models.AudienceStudentsAndTutors),
	}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	admin := &models.User{ID: "user-3", Username: "admin1", Role: models.RoleAdmin, Active: true}
	visible, err := svc.Visible(context.Background(), admin, time.Now(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, int64(1), visible[0].ID)
}

func TestVisibleProgrammeScoping(t *testing.T) {
	inProgramme := windowAnnouncement(1, models.AudienceStudents)
	inProgramme.ProgrammeID = i64(10)
	otherProgramme := windowAnnouncement(2, models.AudienceStudents)
	otherProgramme.ProgrammeID = i64(11)

	store := &announcementStoreStub{window: []models.Announcement{inProgramme, otherProgramme}}
	checker := programmeCheckerStub{memberOf: map[int64]bool{10: true}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, checker, membershipCacheStub{}, 30, nil)

	visible, err := svc.Visible(context.Background(), studentUser(), time.Now(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, int64(1), visible[0].ID)
}

func TestVisibleCourseScopingFailsClosed(t *testing.T) {
	member := windowAnnouncement(1, models.AudienceStudents)
	member.ScheduledCourseID = i64(5)
	member.VLECourseID = str("vle-5")

	nonMember := windowAnnouncement(2, models.AudienceStudents)
	nonMember.ScheduledCourseID = i64(6)
	nonMember.VLECourseID = str("vle-6")

	// No VLE reference recorded, so membership cannot be established.
	unmapped := windowAnnouncement(3, models.AudienceStudents)
	unmapped.ScheduledCourseID = i64(7)

	store := &announcementStoreStub{window: []models.Announcement{member, nonMember, unmapped}}
	cacheStub := membershipCacheStub{courses: map[string][]string{"vle-5": {"student1"}}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, cacheStub, 30, nil)

	visible, err := svc.Visible(context.Background(), studentUser(), time.Now(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, int64(1), visible[0].ID)
}

func TestVisibleGroupScoping(t *testing.T) {
	inGroup := windowAnnouncement(1, models.AudienceStudents)
	inGroup.ScheduledCourseID = i64(5)
	inGroup.GroupID = i64(50)
	inGroup.VLECourseID = str("vle-5")
	inGroup.VLEGroupID = str("grp-a")

	otherGroup := windowAnnouncement(2, models.AudienceStudents)
	otherGroup.ScheduledCourseID = i64(5)
	otherGroup.GroupID = i64(51)
	otherGroup.VLECourseID = str("vle-5")
	otherGroup.VLEGroupID = str("grp-b")

	store := &announcementStoreStub{window: []models.Announcement{inGroup, otherGroup}}
	cacheStub := membershipCacheStub{
		courses: map[string][]string{"vle-5": {"student1"}},
		groups:  map[string][]string{"vle-5/grp-a": {"student1"}},
	}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, cacheStub, 30, nil)

	visible, err := svc.Visible(context.Background(), studentUser(), time.Now(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, int64(1), visible[0].ID)
}

func TestFeedAnnotatesReadState(t *testing.T) {
	readAt := time.Now().Add(-10 * time.Minute)
	store := &announcementStoreStub{window: []models.Announcement{
		windowAnnouncement(1, models.AudienceAll),
		windowAnnouncement(2, models.AudienceAll),
	}}
	marks := &readMarkStoreStub{marks: []models.UserAnnouncement{
		{UserID: "user-1", AnnouncementID: 2, CreatedAt: readAt},
	}}
	svc := NewVisibilityService(store, marks, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	feed, err := svc.Feed(context.Background(), studentUser(), time.Now())
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Nil(t, feed[0].MarkedRead)
	require.NotNil(t, feed[1].MarkedRead)
	assert.Equal(t, readAt, *feed[1].MarkedRead)
}

func TestFeedModifiedOnlyWhenEdited(t *testing.T) {
	edited := windowAnnouncement(1, models.AudienceAll)
	edited.UpdatedAt = edited.CreatedAt.Add(time.Hour)
	pristine := windowAnnouncement(2, models.AudienceAll)

	store := &announcementStoreStub{window: []models.Announcement{edited, pristine}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	feed, err := svc.Feed(context.Background(), studentUser(), time.Now())
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.NotNil(t, feed[0].Modified)
	assert.Equal(t, edited.UpdatedAt, *feed[0].Modified)
	assert.Nil(t, feed[1].Modified)
}

func TestAssembleFeedBudget(t *testing.T) {
	readAt := time.Now()
	read := func(id int64) dto.FeedItem {
		return dto.FeedItem{ID: id, MarkedRead: &readAt}
	}
	unread := func(id int64) dto.FeedItem {
		return dto.FeedItem{ID: id}
	}
	urgentRead := func(id int64) dto.FeedItem {
		return dto.FeedItem{ID: id, IsUrgent: true, MarkedRead: &readAt}
	}

	items := []dto.FeedItem{urgentRead(1), read(2), unread(3), read(4), read(5)}

	// Urgent and unread never consume the budget; read items fill the rest in
	// input order.
	out := assembleFeed(items, 3)
	ids := make([]int64, 0, len(out))
	for _, item := range out {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)

	// A limit already exhausted by always-included items drops every read,
	// non-urgent item but keeps all of them.
	out = assembleFeed(items, 1)
	ids = ids[:0]
	for _, item := range out {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)

	// Zero limit still keeps urgent and unread items.
	out = assembleFeed(items, 0)
	ids = ids[:0]
	for _, item := range out {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestUnreadCountMatchesFeed(t *testing.T) {
	store := &announcementStoreStub{window: []models.Announcement{
		windowAnnouncement(1, models.AudienceAll),
		windowAnnouncement(2, models.AudienceAll),
		windowAnnouncement(3, models.AudienceAll),
	}}
	readAt := time.Now()
	marks := &readMarkStoreStub{marks: []models.UserAnnouncement{
		{UserID: "user-1", AnnouncementID: 1, CreatedAt: readAt},
	}}
	svc := NewVisibilityService(store, marks, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	count, err := svc.UnreadCount(context.Background(), studentUser(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMarkReadUnknownAnnouncement(t *testing.T) {
	store := &announcementStoreStub{byID: map[int64]*models.Announcement{}}
	svc := NewVisibilityService(store, &readMarkStoreStub{}, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	_, err := svc.MarkRead(context.Background(), studentUser(), 99, time.Now())
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestMarkReadReturnsAnnotatedItem(t *testing.T) {
	announcement := windowAnnouncement(7, models.AudienceAll)
	store := &announcementStoreStub{byID: map[int64]*models.Announcement{7: &announcement}}
	at := time.Now()
	marks := &readMarkStoreStub{upsertAt: at}
	svc := NewVisibilityService(store, marks, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)

	item, err := svc.MarkRead(context.Background(), studentUser(), 7, at)
	require.NoError(t, err)
	require.NotNil(t, item.MarkedRead)
	assert.Equal(t, at, *item.MarkedRead)
	assert.Equal(t, 1, marks.upsertCall)
}

func TestMarkUnreadDeletesMark(t *testing.T) {
	svc := NewVisibilityService(&announcementStoreStub{}, &readMarkStoreStub{}, programmeCheckerStub{}, membershipCacheStub{}, 30, nil)
	marks := &readMarkStoreStub{}
	svc.marks = marks

	require.NoError(t, svc.MarkUnread(context.Background(), studentUser(), 7))
	assert.Equal(t, []int64{7}, marks.deleted)
}

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "short", truncateChars("short", 80))
	long := "This announcement body is deliberately written to exceed the eighty character preview limit used by inbox rows."
	got := truncateChars(long, 80)
	assert.Len(t, []rune(got), 80)
	assert.Equal(t, "…", string([]rune(got)[79]))

	// Rune-safe on multibyte input.
	assert.Equal(t, "héll…", truncateChars("héllo wörld", 5))
}
