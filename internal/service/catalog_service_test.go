package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/internal/repository"
)

type catalogStoreStub struct {
	programmes      []models.Programme
	pairs           []repository.ProgrammeMasterCourse
	programmeMaster []int64
	masterCourses   []models.MasterCourse
	scheduled       []models.ScheduledCourse
	groups          []models.ScheduledCourseGroup
}

func (s *catalogStoreStub) ListProgrammes(ctx context.Context) ([]models.Programme, error) {
	return s.programmes, nil
}

func (s *catalogStoreStub) ListAvailableProgrammeMasterCourses(ctx context.Context) ([]repository.ProgrammeMasterCourse, error) {
	return s.pairs, nil
}

func (s *catalogStoreStub) MasterCourseIDsForProgramme(ctx context.Context, programmeID int64) ([]int64, error) {
	return s.programmeMaster, nil
}

func (s *catalogStoreStub) ListMasterCourses(ctx context.Context, ids []int64) ([]models.MasterCourse, error) {
	return s.masterCourses, nil
}

func (s *catalogStoreStub) ListScheduledCoursesForMasters(ctx context.Context, masterCourseIDs []int64) ([]models.ScheduledCourse, error) {
	return s.scheduled, nil
}

func (s *catalogStoreStub) ListScheduledCourses(ctx context.Context, ids []int64) ([]models.ScheduledCourse, error) {
	return s.scheduled, nil
}

func (s *catalogStoreStub) ListGroupsForCourses(ctx context.Context, scheduledCourseIDs []int64) ([]models.ScheduledCourseGroup, error) {
	return s.groups, nil
}

func (s *catalogStoreStub) ListGroups(ctx context.Context, ids []int64) ([]models.ScheduledCourseGroup, error) {
	return s.groups, nil
}

func TestAudiencesAndProgrammes(t *testing.T) {
	store := &catalogStoreStub{
		programmes: []models.Programme{
			{ID: 1, DisplayName: "BSc Computing"},
			{ID: 2, DisplayName: "BA History"},
		},
		pairs: []repository.ProgrammeMasterCourse{
			{ProgrammeID: 1, MasterCourseID: 10},
			{ProgrammeID: 1, MasterCourseID: 11},
			{ProgrammeID: 2, MasterCourseID: 20},
		},
	}
	svc := NewCatalogService(store, nil)

	options, err := svc.AudiencesAndProgrammes(context.Background())
	require.NoError(t, err)

	assert.Len(t, options.Audiences, len(models.Audiences))
	assert.Equal(t, "All students and tutors", options.Audiences["students_and_tutors"])

	require.Len(t, options.Programmes, 2)
	assert.Equal(t, "BSc Computing", options.Programmes[1].DisplayName)
	assert.Equal(t, []int64{10, 11}, options.Programmes[1].MasterCourseIDs)
	assert.Equal(t, []int64{20}, options.Programmes[2].MasterCourseIDs)
}

func TestAudiencesAndProgrammesDefaultWindow(t *testing.T) {
	svc := NewCatalogService(&catalogStoreStub{}, nil)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	options, err := svc.AudiencesAndProgrammes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, options.DefaultWindow.VisibleFrom)
	assert.Equal(t, at.AddDate(0, 0, 7), options.DefaultWindow.VisibleTo)
}

func TestMasterCoursesGroupScheduledIDs(t *testing.T) {
	store := &catalogStoreStub{
		masterCourses: []models.MasterCourse{{ID: 10, DisplayName: "Maths"}},
		scheduled: []models.ScheduledCourse{
			{ID: 100, MasterCourseID: 10, DisplayName: "Maths 2026"},
			{ID: 101, MasterCourseID: 10, DisplayName: "Maths 2027"},
		},
	}
	svc := NewCatalogService(store, nil)

	options, err := svc.MasterCourses(context.Background(), []int64{10})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "Maths", options[10].DisplayName)
	assert.Equal(t, []int64{100, 101}, options[10].ScheduledCourseIDs)
}

func TestScheduledCoursesGroupGroupIDs(t *testing.T) {
	store := &catalogStoreStub{
		scheduled: []models.ScheduledCourse{{ID: 100, MasterCourseID: 10, DisplayName: "Maths 2026"}},
		groups: []models.ScheduledCourseGroup{
			{ID: 1000, ScheduledCourseID: 100, DisplayName: "Group A"},
			{ID: 1001, ScheduledCourseID: 100, DisplayName: "Group B"},
		},
	}
	svc := NewCatalogService(store, nil)

	options, err := svc.ScheduledCourses(context.Background(), []int64{100})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, []int64{1000, 1001}, options[100].ScheduledCourseGroupIDs)
}

func TestAnnouncementOptionsWithoutProgramme(t *testing.T) {
	svc := NewCatalogService(&catalogStoreStub{}, nil)

	options, err := svc.AnnouncementOptions(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, options.MasterCourses)
	assert.Empty(t, options.ScheduledCourses)
	assert.Empty(t, options.ScheduledCourseGroups)
}

func TestAnnouncementOptionsBundlesPickers(t *testing.T) {
	store := &catalogStoreStub{
		programmeMaster: []int64{10},
		masterCourses:   []models.MasterCourse{{ID: 10, DisplayName: "Maths"}},
		scheduled:       []models.ScheduledCourse{{ID: 100, MasterCourseID: 10, DisplayName: "Maths 2026"}},
		groups:          []models.ScheduledCourseGroup{{ID: 1000, ScheduledCourseID: 100, DisplayName: "Group A"}},
	}
	svc := NewCatalogService(store, nil)

	options, err := svc.AnnouncementOptions(context.Background(), i64(4))
	require.NoError(t, err)
	assert.Equal(t, map[int64]dto.MasterCourseOption{
		10: {DisplayName: "Maths", ScheduledCourseIDs: []int64{100}},
	}, options.MasterCourses)
	assert.Equal(t, map[int64]dto.ScheduledCourseOption{
		100: {DisplayName: "Maths 2026", ScheduledCourseGroupIDs: []int64{1000}},
	}, options.ScheduledCourses)
	assert.Equal(t, map[int64]string{1000: "Group A"}, options.ScheduledCourseGroups)
}
