package dto

import (
	"time"

	"github.com/campushq/announcements-api/internal/models"
)

// CreateAnnouncementRequest describes the compose payload. Updates reuse the
// same shape: the update endpoint replaces the full record.
type CreateAnnouncementRequest struct {
	Subject           string    `json:"subject" validate:"required,max=100"`
	Body              string    `json:"body" validate:"required"`
	VisibleFrom       time.Time `json:"visible_from" validate:"required"`
	VisibleTo         time.Time `json:"visible_to" validate:"required"`
	IsUrgent          bool      `json:"is_urgent"`
	Audience          string    `json:"audience" validate:"required"`
	ProgrammeID       *int64    `json:"programme_id"`
	ScheduledCourseID *int64    `json:"scheduled_course_id"`
	GroupID           *int64    `json:"group_id"`
}

// UpdateAnnouncementRequest describes the full-record update payload.
type UpdateAnnouncementRequest = CreateAnnouncementRequest

// ListAnnouncementsQuery captures the admin listing query parameters.
type ListAnnouncementsQuery struct {
	Q       string
	Column  string
	Order   string
	Page    int
	PerPage int
}

// AnnouncementItem is an admin-listing row with the computed recipient label
// and display identifier.
type AnnouncementItem struct {
	ID                int64           `db:"id" json:"id"`
	DisplayID         string          `db:"-" json:"display_id"`
	Subject           string          `db:"subject" json:"subject"`
	Body              string          `db:"body" json:"body"`
	VisibleFrom       time.Time       `db:"visible_from" json:"visible_from"`
	VisibleTo         time.Time       `db:"visible_to" json:"visible_to"`
	IsUrgent          bool            `db:"is_urgent" json:"is_urgent"`
	Audience          models.Audience `db:"audience" json:"audience"`
	ProgrammeID       *int64          `db:"programme_id" json:"programme_id,omitempty"`
	ProgrammeName     *string         `db:"programme_name" json:"programme_name,omitempty"`
	ScheduledCourseID *int64          `db:"scheduled_course_id" json:"scheduled_course_id,omitempty"`
	GroupID           *int64          `db:"group_id" json:"group_id,omitempty"`
	Recipient         string          `db:"recipient" json:"recipient"`
	CreatedAt         time.Time       `db:"created_at" json:"created"`
	UpdatedAt         time.Time       `db:"updated_at" json:"modified"`
}

// AnnouncementDetail is the single-announcement response bundled with the
// compose-form options for its programme.
type AnnouncementDetail struct {
	AnnouncementItem
	Options *AnnouncementOptions `json:"options,omitempty"`
}

// FeedBody carries the full body next to a short preview for inbox rows.
type FeedBody struct {
	Body      string `json:"body"`
	Truncated string `json:"truncated"`
}

// FeedItem is a visible announcement annotated with the caller's read state.
// Modified is nil for never-edited announcements; MarkedRead is nil while
// unread.
type FeedItem struct {
	ID          int64      `json:"id"`
	Subject     string     `json:"subject"`
	Body        FeedBody   `json:"body"`
	VisibleFrom time.Time  `json:"visible_from"`
	IsUrgent    bool       `json:"is_urgent"`
	Modified    *time.Time `json:"modified"`
	MarkedRead  *time.Time `json:"marked_read"`
}

// UnreadCount is the unread-counter response.
type UnreadCount struct {
	Announcements int `json:"announcements"`
}

// RecipientPreview is one resolved recipient for the compose-form audience
// preview.
type RecipientPreview struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
