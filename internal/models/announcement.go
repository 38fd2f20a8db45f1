package models

import (
	"strings"
	"time"
)

// Audience is the coarse recipient category of an announcement. Combined
// audiences are encoded with an "_and_" joiner and match with OR semantics
// across their parts.
type Audience string

const (
	AudienceAll              Audience = "all"
	AudienceStudents         Audience = "students"
	AudienceTutors           Audience = "tutors"
	AudienceStudentsAndTutors Audience = "students_and_tutors"
)

// Audiences enumerates the closed set of valid audiences in display order.
var Audiences = []Audience{
	AudienceAll,
	AudienceStudents,
	AudienceTutors,
	AudienceStudentsAndTutors,
}

var audienceLabels = map[Audience]string{
	AudienceAll:              "All",
	AudienceStudents:         "All students",
	AudienceTutors:           "All tutors",
	AudienceStudentsAndTutors: "All students and tutors",
}

// Valid reports whether the audience is part of the closed enumeration.
func (a Audience) Valid() bool {
	_, ok := audienceLabels[a]
	return ok
}

// Label returns the human-readable audience label.
func (a Audience) Label() string {
	if label, ok := audienceLabels[a]; ok {
		return label
	}
	return string(a)
}

// Groups splits the audience code into its group-name parts, discarding the
// "and" joiner token.
func (a Audience) Groups() []string {
	parts := strings.Split(string(a), "_")
	groups := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "and" {
			continue
		}
		groups = append(groups, part)
	}
	return groups
}

// Includes reports whether a user with the given role is part of the
// audience. A combined audience matches a user in any one of its groups.
func (a Audience) Includes(role UserRole) bool {
	if a == AudienceAll {
		return true
	}
	group := role.Group()
	if group == "" {
		return false
	}
	for _, g := range a.Groups() {
		if g == group {
			return true
		}
	}
	return false
}

// Roles returns the user roles targeted by the audience; nil means every
// role.
func (a Audience) Roles() []UserRole {
	if a == AudienceAll {
		return nil
	}
	roles := make([]UserRole, 0, 2)
	for _, g := range a.Groups() {
		switch g {
		case "students":
			roles = append(roles, RoleStudent)
		case "tutors":
			roles = append(roles, RoleTutor)
		}
	}
	return roles
}

// Announcement represents a persisted announcement row. The VLE identifier
// columns are populated by list queries joining the catalog tables and feed
// the membership-cache checks.
type Announcement struct {
	ID                int64     `db:"id" json:"id"`
	Subject           string    `db:"subject" json:"subject"`
	Body              string    `db:"body" json:"body"`
	VisibleFrom       time.Time `db:"visible_from" json:"visible_from"`
	VisibleTo         time.Time `db:"visible_to" json:"visible_to"`
	IsUrgent          bool      `db:"is_urgent" json:"is_urgent"`
	Audience          Audience  `db:"audience" json:"audience"`
	ProgrammeID       *int64    `db:"programme_id" json:"programme_id,omitempty"`
	ScheduledCourseID *int64    `db:"scheduled_course_id" json:"scheduled_course_id,omitempty"`
	GroupID           *int64    `db:"group_id" json:"group_id,omitempty"`
	CreatedBy         *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created"`
	UpdatedAt         time.Time `db:"updated_at" json:"modified"`

	ProgrammeName *string `db:"programme_name" json:"programme_name,omitempty"`
	VLECourseID   *string `db:"vle_course_id" json:"-"`
	VLEGroupID    *string `db:"vle_group_id" json:"-"`
}

// Edited reports whether the announcement has been modified after creation.
func (a *Announcement) Edited() bool {
	return a.UpdatedAt.After(a.CreatedAt)
}

// UserAnnouncement is a read-mark: its presence means the user has read the
// announcement, its created timestamp is the "read at" time. Absence is the
// unread state.
type UserAnnouncement struct {
	UserID         string    `db:"user_id" json:"user_id"`
	AnnouncementID int64     `db:"announcement_id" json:"announcement_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
