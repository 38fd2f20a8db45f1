package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/announcements-api/internal/models"
)

// ProgrammeMasterCourse is an ordered (programme, master course) pair from
// the availability table.
type ProgrammeMasterCourse struct {
	ProgrammeID    int64 `db:"programme_id"`
	MasterCourseID int64 `db:"master_course_id"`
}

// CatalogRepository reads the programme/course catalog owned by the
// programmes subsystem. Everything here is read-only.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListProgrammes returns every programme.
func (r *CatalogRepository) ListProgrammes(ctx context.Context) ([]models.Programme, error) {
	const query = `SELECT id, display_name FROM programmes ORDER BY id`
	var programmes []models.Programme
	if err := r.db.SelectContext(ctx, &programmes, query); err != nil {
		return nil, fmt.Errorf("list programmes: %w", err)
	}
	return programmes, nil
}

// ListAvailableProgrammeMasterCourses returns the available (programme,
// master course) pairs ordered for grouping.
func (r *CatalogRepository) ListAvailableProgrammeMasterCourses(ctx context.Context) ([]ProgrammeMasterCourse, error) {
	const query = `SELECT DISTINCT programme_id, master_course_id
FROM programme_master_courses
WHERE available = TRUE
ORDER BY programme_id, master_course_id`
	var pairs []ProgrammeMasterCourse
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("list programme master courses: %w", err)
	}
	return pairs, nil
}

// MasterCourseIDsForProgramme returns the distinct master course ids linked
// to a programme.
func (r *CatalogRepository) MasterCourseIDsForProgramme(ctx context.Context, programmeID int64) ([]int64, error) {
	const query = `SELECT DISTINCT master_course_id FROM programme_master_courses WHERE programme_id = $1`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, programmeID); err != nil {
		return nil, fmt.Errorf("list master course ids: %w", err)
	}
	return ids, nil
}

// ListMasterCourses returns the requested master courses, restricted to
// those with at least one scheduled course.
func (r *CatalogRepository) ListMasterCourses(ctx context.Context, ids []int64) ([]models.MasterCourse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT mc.id, mc.display_name
FROM master_courses mc
WHERE mc.id = ANY($1)
  AND EXISTS (SELECT 1 FROM scheduled_courses sc WHERE sc.master_course_id = mc.id)
ORDER BY mc.id`
	var courses []models.MasterCourse
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list master courses: %w", err)
	}
	return courses, nil
}

// ListScheduledCoursesForMasters returns scheduled courses under the given
// master courses, ordered for grouping.
func (r *CatalogRepository) ListScheduledCoursesForMasters(ctx context.Context, masterCourseIDs []int64) ([]models.ScheduledCourse, error) {
	if len(masterCourseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, master_course_id, display_name, vle_course_id
FROM scheduled_courses
WHERE master_course_id = ANY($1)
ORDER BY master_course_id, id`
	var courses []models.ScheduledCourse
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(masterCourseIDs)); err != nil {
		return nil, fmt.Errorf("list scheduled courses: %w", err)
	}
	return courses, nil
}

// ListScheduledCourses returns the requested scheduled courses.
func (r *CatalogRepository) ListScheduledCourses(ctx context.Context, ids []int64) ([]models.ScheduledCourse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, master_course_id, display_name, vle_course_id
FROM scheduled_courses
WHERE id = ANY($1)
ORDER BY id`
	var courses []models.ScheduledCourse
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list scheduled courses: %w", err)
	}
	return courses, nil
}

// ListGroupsForCourses returns groups under the given scheduled courses,
// ordered for grouping.
func (r *CatalogRepository) ListGroupsForCourses(ctx context.Context, scheduledCourseIDs []int64) ([]models.ScheduledCourseGroup, error) {
	if len(scheduledCourseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, scheduled_course_id, display_name, vle_group_id
FROM scheduled_course_groups
WHERE scheduled_course_id = ANY($1)
ORDER BY scheduled_course_id, id`
	var groups []models.ScheduledCourseGroup
	if err := r.db.SelectContext(ctx, &groups, query, pq.Array(scheduledCourseIDs)); err != nil {
		return nil, fmt.Errorf("list scheduled course groups: %w", err)
	}
	return groups, nil
}

// ListGroups returns the requested groups.
func (r *CatalogRepository) ListGroups(ctx context.Context, ids []int64) ([]models.ScheduledCourseGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, scheduled_course_id, display_name, vle_group_id
FROM scheduled_course_groups
WHERE id = ANY($1)
ORDER BY id`
	var groups []models.ScheduledCourseGroup
	if err := r.db.SelectContext(ctx, &groups, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list scheduled course groups: %w", err)
	}
	return groups, nil
}
