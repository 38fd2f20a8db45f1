package models

// Programme is a catalog entity owned by the programmes subsystem; this
// module only reads identifiers and display names.
type Programme struct {
	ID          int64  `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
}

// MasterCourse groups scheduled courses under a catalog course.
type MasterCourse struct {
	ID          int64  `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
}

// ScheduledCourse is a concrete run of a master course. VLECourseID keys the
// external membership cache.
type ScheduledCourse struct {
	ID             int64  `db:"id" json:"id"`
	MasterCourseID int64  `db:"master_course_id" json:"master_course_id"`
	DisplayName    string `db:"display_name" json:"display_name"`
	VLECourseID    string `db:"vle_course_id" json:"vle_course_id"`
}

// ScheduledCourseGroup is a cohort within a scheduled course. VLEGroupID keys
// the group member lists in the membership cache.
type ScheduledCourseGroup struct {
	ID                int64  `db:"id" json:"id"`
	ScheduledCourseID int64  `db:"scheduled_course_id" json:"scheduled_course_id"`
	DisplayName       string `db:"display_name" json:"display_name"`
	VLEGroupID        string `db:"vle_group_id" json:"vle_group_id"`
}
