package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBuildSearchConditionsPlainToken(t *testing.T) {
	conditions, args := buildSearchConditions("exam", time.UTC)
	require.Len(t, conditions, 1)
	require.Len(t, args, 1)
	assert.Equal(t, "exam", args[0])
	assert.Contains(t, conditions[0], "a.subject ILIKE")
	assert.Contains(t, conditions[0], "a.body ILIKE")
	assert.NotContains(t, conditions[0], "a.visible_from")
	assert.NotContains(t, conditions[0], "a.id::text")
}

func TestBuildSearchConditionsIDToken(t *testing.T) {
	conditions, args := buildSearchConditions("AN-7", time.UTC)
	require.Len(t, conditions, 1)
	// Prefix match on the numeric suffix plus the substring fallback.
	require.Len(t, args, 2)
	assert.Equal(t, "7", args[0])
	assert.Equal(t, "AN-7", args[1])
	assert.Contains(t, conditions[0], "a.id::text ILIKE")
	assert.Contains(t, conditions[0], " OR ")
}

func TestBuildSearchConditionsIDTokenCaseInsensitive(t *testing.T) {
	_, args := buildSearchConditions("an-12", time.UTC)
	require.Len(t, args, 2)
	assert.Equal(t, "12", args[0])
}

func TestBuildSearchConditionsDateToken(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	conditions, args := buildSearchConditions("24/12/2025", loc)
	require.Len(t, conditions, 1)
	// Day bounds plus the substring fallback.
	require.Len(t, args, 3)
	day, ok := args[0].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 24, 0, 0, 0, 0, loc), day)
	next, ok := args[1].(time.Time)
	require.True(t, ok)
	assert.Equal(t, day.AddDate(0, 0, 1), next)
	assert.Equal(t, "24/12/2025", args[2])
	assert.Contains(t, conditions[0], "a.visible_from >=")
}

func TestBuildSearchConditionsMultipleTokensAnded(t *testing.T) {
	conditions, args := buildSearchConditions("exam timetable", time.UTC)
	require.Len(t, conditions, 2)
	require.Len(t, args, 2)
	assert.Equal(t, "exam", args[0])
	assert.Equal(t, "timetable", args[1])
}

func TestBuildSearchConditionsEmptyQuery(t *testing.T) {
	conditions, args := buildSearchConditions("   ", time.UTC)
	assert.Empty(t, conditions)
	assert.Empty(t, args)
}

func TestOrderByClause(t *testing.T) {
	cases := []struct {
		column string
		order  string
		want   string
	}{
		{"announcement_id", "", "a.id ASC"},
		{"announcement_id", "desc", "a.id DESC"},
		{"visible_from", "", "a.visible_from ASC, a.id ASC"},
		{"visible_from", "desc", "a.visible_from DESC, a.id ASC"},
		{"recipient", "desc", "recipient DESC, a.id ASC"},
		// Anything other than the exact token "desc" sorts ascending.
		{"visible_from", "DESC", "a.visible_from ASC, a.id ASC"},
		{"visible_from", "descending", "a.visible_from ASC, a.id ASC"},
		// Unknown columns fall back to the id.
		{"subject", "", "a.id ASC"},
		{"", "desc", "a.id DESC"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, orderByClause(tc.column, tc.order), "column=%q order=%q", tc.column, tc.order)
	}
}

func TestRecipientExprCoversAudiences(t *testing.T) {
	expr := recipientExpr()
	assert.Contains(t, expr, "'Programme' || p.display_name")
	for _, audience := range models.Audiences {
		assert.Contains(t, expr, string(audience))
		assert.Contains(t, expr, audience.Label())
	}
}

func TestAnnouncementRepositoryListWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "subject", "body", "visible_from", "visible_to", "is_urgent", "audience",
		"programme_id", "scheduled_course_id", "group_id", "created_by", "created_at", "updated_at",
		"programme_name", "vle_course_id", "vle_group_id"}).
		AddRow(int64(2), "Urgent notice", "body", at.Add(-time.Hour), at.Add(time.Hour), true, "all",
			nil, nil, nil, nil, at.Add(-2*time.Hour), at.Add(-2*time.Hour), nil, nil, nil)

	mock.ExpectQuery("SELECT .*FROM announcements a.*ORDER BY a\\.is_urgent DESC, a\\.visible_from DESC, a\\.id DESC").
		WithArgs(at).
		WillReturnRows(rows)

	announcements, err := repo.ListWindow(context.Background(), at, false)
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.Equal(t, int64(2), announcements[0].ID)
	assert.True(t, announcements[0].IsUrgent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	now := time.Now()
	announcement := &models.Announcement{
		Subject:     "Term dates",
		Body:        "Term starts on Monday",
		VisibleFrom: now,
		VisibleTo:   now.Add(48 * time.Hour),
		Audience:    models.AudienceStudents,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO announcements")).
		WithArgs(announcement.Subject, announcement.Body, announcement.VisibleFrom, announcement.VisibleTo,
			announcement.IsUrgent, announcement.Audience, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))

	require.NoError(t, repo.Create(context.Background(), announcement))
	assert.Equal(t, int64(9), announcement.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositorySearchPaginates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	rows := sqlmock.NewRows([]string{"id", "subject", "body", "visible_from", "visible_to", "is_urgent", "audience",
		"programme_id", "scheduled_course_id", "group_id", "created_at", "updated_at", "programme_name", "recipient"}).
		AddRow(int64(11), "Subject", "Body", now, now.Add(time.Hour), false, "all",
			nil, nil, nil, now, now, nil, "All")

	mock.ExpectQuery("SELECT a\\.id, .*LIMIT 10 OFFSET 10").
		WillReturnRows(rows)

	items, total, err := repo.Search(context.Background(), dto.ListAnnouncementsQuery{Page: 2, PerPage: 10}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, items, 1)
	assert.Equal(t, "All", items[0].Recipient)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositorySearchBindsTokens(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("exam").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT a\\.id, ").
		WithArgs("exam").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, total, err := repo.Search(context.Background(), dto.ListAnnouncementsQuery{Q: "exam"}, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
