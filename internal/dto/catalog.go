package dto

import "time"

// ProgrammeOption is a programme with the master courses available to it.
type ProgrammeOption struct {
	DisplayName     string  `json:"display_name"`
	MasterCourseIDs []int64 `json:"master_course_ids"`
}

// DefaultWindow is the visibility window the compose form prefills.
type DefaultWindow struct {
	VisibleFrom time.Time `json:"visible_from"`
	VisibleTo   time.Time `json:"visible_to"`
}

// AudiencesAndProgrammes feeds the compose form's audience and programme
// pickers.
type AudiencesAndProgrammes struct {
	Audiences     map[string]string         `json:"audiences"`
	Programmes    map[int64]ProgrammeOption `json:"programmes"`
	DefaultWindow DefaultWindow             `json:"default_window"`
}

// MasterCourseOption is a master course with its scheduled course runs.
type MasterCourseOption struct {
	DisplayName        string  `json:"display_name"`
	ScheduledCourseIDs []int64 `json:"scheduled_course_ids"`
}

// ScheduledCourseOption is a scheduled course with its group cohorts.
type ScheduledCourseOption struct {
	DisplayName             string  `json:"display_name"`
	ScheduledCourseGroupIDs []int64 `json:"scheduled_course_group_ids"`
}

// AnnouncementOptions narrows the course pickers to an announcement's
// programme.
type AnnouncementOptions struct {
	MasterCourses         map[int64]MasterCourseOption    `json:"master_courses"`
	ScheduledCourses      map[int64]ScheduledCourseOption `json:"scheduled_courses"`
	ScheduledCourseGroups map[int64]string                `json:"scheduled_course_groups"`
}
