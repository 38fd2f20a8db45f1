package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
)

// AnnouncementIDPrefix is prepended to the numeric id to form the display
// identifier shown in the admin listing (e.g. "AN-7").
const AnnouncementIDPrefix = "AN-"

// searchDateLayout is the day/month/year format accepted by free-text query
// tokens.
const searchDateLayout = "02/01/2006"

const announcementColumns = `a.id, a.subject, a.body, a.visible_from, a.visible_to, a.is_urgent, a.audience,
a.programme_id, a.scheduled_course_id, a.group_id, a.created_by, a.created_at, a.updated_at,
p.display_name AS programme_name`

const announcementJoins = `FROM announcements a
LEFT JOIN programmes p ON p.id = a.programme_id
LEFT JOIN scheduled_courses sc ON sc.id = a.scheduled_course_id
LEFT JOIN scheduled_course_groups g ON g.id = a.group_id`

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// ListWindow returns announcements whose visibility window contains at,
// urgent first then newest visible_from. Ties on both keys fall back to id
// descending so the ordering is total.
func (r *AnnouncementRepository) ListWindow(ctx context.Context, at time.Time, urgentOnly bool) ([]models.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s, sc.vle_course_id AS vle_course_id, g.vle_group_id AS vle_group_id
%s
WHERE a.visible_from <= $1 AND a.visible_to >= $1`, announcementColumns, announcementJoins)
	if urgentOnly {
		query += " AND a.is_urgent = TRUE"
	}
	query += " ORDER BY a.is_urgent DESC, a.visible_from DESC, a.id DESC"

	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, at); err != nil {
		return nil, fmt.Errorf("list visible announcements: %w", err)
	}
	return announcements, nil
}

// GetByID returns an announcement by identifier. sql.ErrNoRows passes
// through for callers to translate into a not-found outcome.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s, sc.vle_course_id AS vle_course_id, g.vle_group_id AS vle_group_id
%s
WHERE a.id = $1`, announcementColumns, announcementJoins)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create inserts a new announcement and fills in the generated id and
// system-managed timestamps.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	const query = `INSERT INTO announcements (subject, body, visible_from, visible_to, is_urgent, audience,
programme_id, scheduled_course_id, group_id, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		announcement.Subject,
		announcement.Body,
		announcement.VisibleFrom,
		announcement.VisibleTo,
		announcement.IsUrgent,
		announcement.Audience,
		announcement.ProgrammeID,
		announcement.ScheduledCourseID,
		announcement.GroupID,
		announcement.CreatedBy,
	)
	if err := row.Scan(&announcement.ID, &announcement.CreatedAt, &announcement.UpdatedAt); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update replaces the full record and refreshes updated_at. sql.ErrNoRows is
// returned when the id no longer exists.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	const query = `UPDATE announcements SET subject = $1, body = $2, visible_from = $3, visible_to = $4,
is_urgent = $5, audience = $6, programme_id = $7, scheduled_course_id = $8, group_id = $9, updated_at = NOW()
WHERE id = $10
RETURNING updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		announcement.Subject,
		announcement.Body,
		announcement.VisibleFrom,
		announcement.VisibleTo,
		announcement.IsUrgent,
		announcement.Audience,
		announcement.ProgrammeID,
		announcement.ScheduledCourseID,
		announcement.GroupID,
		announcement.ID,
	)
	if err := row.Scan(&announcement.UpdatedAt); err != nil {
		return err
	}
	return nil
}

// Delete removes an announcement; its read-marks cascade at the schema
// level.
func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// Search runs the admin listing: free-text tokens ANDed together, the
// computed recipient label, ordering and pagination. The returned total
// counts the filtered set before pagination.
func (r *AnnouncementRepository) Search(ctx context.Context, params dto.ListAnnouncementsQuery, loc *time.Location) ([]dto.AnnouncementItem, int, error) {
	where, args := buildSearchConditions(params.Q, loc)

	base := `FROM announcements a
LEFT JOIN programmes p ON p.id = a.programme_id`
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	countQuery := "SELECT COUNT(*) " + base + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}

	query := fmt.Sprintf(`SELECT a.id, a.subject, a.body, a.visible_from, a.visible_to, a.is_urgent, a.audience,
a.programme_id, a.scheduled_course_id, a.group_id, a.created_at, a.updated_at,
p.display_name AS programme_name,
%s
%s%s
ORDER BY %s`, recipientExpr(), base, whereClause, orderByClause(params.Column, params.Order))

	offset := 0
	if params.Page > 1 && params.PerPage > 0 {
		offset = (params.Page - 1) * params.PerPage
	}
	if params.PerPage > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", params.PerPage, offset)
	}

	var items []dto.AnnouncementItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search announcements: %w", err)
	}
	return items, total, nil
}

// recipientExpr computes the recipient label: programme announcements get
// "Programme" plus the programme name, the rest their audience label.
func recipientExpr() string {
	var b strings.Builder
	b.WriteString("CASE WHEN a.programme_id IS NOT NULL THEN 'Programme' || p.display_name")
	for _, audience := range models.Audiences {
		fmt.Fprintf(&b, " WHEN a.audience = '%s' THEN '%s'", audience, audience.Label())
	}
	b.WriteString(" ELSE a.audience END AS recipient")
	return b.String()
}

// orderByClause maps the requested column onto a deterministic ORDER BY.
// Unknown columns fall back to the announcement id; non-id sorts tie-break
// on id ascending. Descending applies only for the exact token "desc".
func orderByClause(column, order string) string {
	orderable := map[string]string{
		"announcement_id": "a.id",
		"recipient":       "recipient",
		"visible_from":    "a.visible_from",
	}
	expr, ok := orderable[column]
	if !ok {
		column = "announcement_id"
		expr = orderable[column]
	}
	direction := " ASC"
	if order == "desc" {
		direction = " DESC"
	}
	clause := expr + direction
	if column != "announcement_id" {
		clause += ", a.id ASC"
	}
	return clause
}

// buildSearchConditions tokenizes the free-text query on whitespace. Each
// token contributes one AND-ed condition that is an OR across a calendar-day
// match on visible_from, an id prefix match behind the display prefix, and a
// case-insensitive subject/body substring match. The substring branch always
// applies, so a token that also parses as a date or id widens the match
// rather than replacing it.
func buildSearchConditions(q string, loc *time.Location) ([]string, []interface{}) {
	if loc == nil {
		loc = time.UTC
	}

	tokens := strings.Fields(q)
	conditions := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens))

	for _, token := range tokens {
		var ors []string

		if day, err := time.ParseInLocation(searchDateLayout, token, loc); err == nil {
			ors = append(ors, fmt.Sprintf("(a.visible_from >= $%d AND a.visible_from < $%d)", len(args)+1, len(args)+2))
			args = append(args, day, day.AddDate(0, 0, 1))
		}

		if len(token) >= len(AnnouncementIDPrefix) && strings.EqualFold(token[:len(AnnouncementIDPrefix)], AnnouncementIDPrefix) {
			ors = append(ors, fmt.Sprintf("a.id::text ILIKE $%d || '%%'", len(args)+1))
			args = append(args, token[len(AnnouncementIDPrefix):])
		}

		ors = append(ors, fmt.Sprintf("(a.subject ILIKE '%%' || $%d || '%%' OR a.body ILIKE '%%' || $%d || '%%')", len(args)+1, len(args)+1))
		args = append(args, token)

		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}

	return conditions, args
}
