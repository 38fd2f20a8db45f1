package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/internal/repository"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

type catalogStore interface {
	ListProgrammes(ctx context.Context) ([]models.Programme, error)
	ListAvailableProgrammeMasterCourses(ctx context.Context) ([]repository.ProgrammeMasterCourse, error)
	MasterCourseIDsForProgramme(ctx context.Context, programmeID int64) ([]int64, error)
	ListMasterCourses(ctx context.Context, ids []int64) ([]models.MasterCourse, error)
	ListScheduledCoursesForMasters(ctx context.Context, masterCourseIDs []int64) ([]models.ScheduledCourse, error)
	ListScheduledCourses(ctx context.Context, ids []int64) ([]models.ScheduledCourse, error)
	ListGroupsForCourses(ctx context.Context, scheduledCourseIDs []int64) ([]models.ScheduledCourseGroup, error)
	ListGroups(ctx context.Context, ids []int64) ([]models.ScheduledCourseGroup, error)
}

// defaultWindowLength is how far ahead the prefilled visibility window
// closes.
const defaultWindowLength = 7 * 24 * time.Hour

// CatalogService serves the compose-form option bundles: audiences,
// programmes and the dependent course and group pickers.
type CatalogService struct {
	repo   catalogStore
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogStore, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger, now: time.Now}
}

// AudiencesAndProgrammes returns the top level of the compose form: every
// audience with its label, every programme with the master courses it can
// scope to, and the prefilled visibility window (now until one week ahead).
func (s *CatalogService) AudiencesAndProgrammes(ctx context.Context) (*dto.AudiencesAndProgrammes, error) {
	audiences := make(map[string]string, len(models.Audiences))
	for _, audience := range models.Audiences {
		audiences[string(audience)] = audience.Label()
	}

	programmes, err := s.repo.ListProgrammes(ctx)
	if err != nil {
		return nil, s.internal(err, "failed to list programmes")
	}
	pairs, err := s.repo.ListAvailableProgrammeMasterCourses(ctx)
	if err != nil {
		return nil, s.internal(err, "failed to list programme courses")
	}

	options := make(map[int64]dto.ProgrammeOption, len(programmes))
	for _, programme := range programmes {
		options[programme.ID] = dto.ProgrammeOption{DisplayName: programme.DisplayName}
	}
	for _, pair := range pairs {
		option, ok := options[pair.ProgrammeID]
		if !ok {
			continue
		}
		option.MasterCourseIDs = append(option.MasterCourseIDs, pair.MasterCourseID)
		options[pair.ProgrammeID] = option
	}

	from := s.now()
	return &dto.AudiencesAndProgrammes{
		Audiences:  audiences,
		Programmes: options,
		DefaultWindow: dto.DefaultWindow{
			VisibleFrom: from,
			VisibleTo:   from.Add(defaultWindowLength),
		},
	}, nil
}

// MasterCourses returns the requested master courses with their scheduled
// course ids. Master courses without scheduled courses are filtered out.
func (s *CatalogService) MasterCourses(ctx context.Context, ids []int64) (map[int64]dto.MasterCourseOption, error) {
	courses, err := s.repo.ListMasterCourses(ctx, ids)
	if err != nil {
		return nil, s.internal(err, "failed to list master courses")
	}
	options := make(map[int64]dto.MasterCourseOption, len(courses))
	kept := make([]int64, 0, len(courses))
	for _, course := range courses {
		options[course.ID] = dto.MasterCourseOption{DisplayName: course.DisplayName}
		kept = append(kept, course.ID)
	}

	scheduled, err := s.repo.ListScheduledCoursesForMasters(ctx, kept)
	if err != nil {
		return nil, s.internal(err, "failed to list scheduled courses")
	}
	for _, course := range scheduled {
		option, ok := options[course.MasterCourseID]
		if !ok {
			continue
		}
		option.ScheduledCourseIDs = append(option.ScheduledCourseIDs, course.ID)
		options[course.MasterCourseID] = option
	}
	return options, nil
}

// ScheduledCourses returns the requested scheduled courses with their group
// ids.
func (s *CatalogService) ScheduledCourses(ctx context.Context, ids []int64) (map[int64]dto.ScheduledCourseOption, error) {
	courses, err := s.repo.ListScheduledCourses(ctx, ids)
	if err != nil {
		return nil, s.internal(err, "failed to list scheduled courses")
	}
	options := make(map[int64]dto.ScheduledCourseOption, len(courses))
	kept := make([]int64, 0, len(courses))
	for _, course := range courses {
		options[course.ID] = dto.ScheduledCourseOption{DisplayName: course.DisplayName}
		kept = append(kept, course.ID)
	}

	groups, err := s.repo.ListGroupsForCourses(ctx, kept)
	if err != nil {
		return nil, s.internal(err, "failed to list scheduled course groups")
	}
	for _, group := range groups {
		option, ok := options[group.ScheduledCourseID]
		if !ok {
			continue
		}
		option.ScheduledCourseGroupIDs = append(option.ScheduledCourseGroupIDs, group.ID)
		options[group.ScheduledCourseID] = option
	}
	return options, nil
}

// ScheduledCourseGroups returns the requested groups with their display
// names.
func (s *CatalogService) ScheduledCourseGroups(ctx context.Context, ids []int64) (map[int64]string, error) {
	groups, err := s.repo.ListGroups(ctx, ids)
	if err != nil {
		return nil, s.internal(err, "failed to list scheduled course groups")
	}
	options := make(map[int64]string, len(groups))
	for _, group := range groups {
		options[group.ID] = group.DisplayName
	}
	return options, nil
}

// AnnouncementOptions bundles the dependent pickers for one announcement's
// programme. A nil programme yields empty maps, matching an unscoped
// compose form.
func (s *CatalogService) AnnouncementOptions(ctx context.Context, programmeID *int64) (*dto.AnnouncementOptions, error) {
	options := &dto.AnnouncementOptions{
		MasterCourses:         map[int64]dto.MasterCourseOption{},
		ScheduledCourses:      map[int64]dto.ScheduledCourseOption{},
		ScheduledCourseGroups: map[int64]string{},
	}
	if programmeID == nil {
		return options, nil
	}

	masterIDs, err := s.repo.MasterCourseIDsForProgramme(ctx, *programmeID)
	if err != nil {
		return nil, s.internal(err, "failed to list master course ids")
	}
	masters, err := s.MasterCourses(ctx, masterIDs)
	if err != nil {
		return nil, err
	}
	options.MasterCourses = masters

	scheduledIDs := make([]int64, 0, len(masters))
	for _, option := range masters {
		scheduledIDs = append(scheduledIDs, option.ScheduledCourseIDs...)
	}
	scheduled, err := s.ScheduledCourses(ctx, scheduledIDs)
	if err != nil {
		return nil, err
	}
	options.ScheduledCourses = scheduled

	groupIDs := make([]int64, 0, len(scheduled))
	for _, option := range scheduled {
		groupIDs = append(groupIDs, option.ScheduledCourseGroupIDs...)
	}
	groups, err := s.ScheduledCourseGroups(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	options.ScheduledCourseGroups = groups
	return options, nil
}

func (s *CatalogService) internal(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
