package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/internal/repository"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

type announcementStore interface {
	Search(ctx context.Context, params dto.ListAnnouncementsQuery, loc *time.Location) ([]dto.AnnouncementItem, int, error)
	GetByID(ctx context.Context, id int64) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id int64) error
}

type announcementNotifier interface {
	AnnouncementCreated(ctx context.Context, announcement *models.Announcement)
}

type composeOptionsProvider interface {
	AnnouncementOptions(ctx context.Context, programmeID *int64) (*dto.AnnouncementOptions, error)
}

// AnnouncementService handles the admin announcement workflows: compose,
// full-record update, delete, fetch and the searchable listing.
type AnnouncementService struct {
	repo      announcementStore
	notifier  announcementNotifier
	options   composeOptionsProvider
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewAnnouncementService constructs the service. The location governs how
// free-text date tokens are interpreted in the admin listing.
func NewAnnouncementService(
	repo announcementStore,
	notifier announcementNotifier,
	options composeOptionsProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	location *time.Location,
) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &AnnouncementService{
		repo:      repo,
		notifier:  notifier,
		options:   options,
		validator: validate,
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// List runs the admin listing and decorates each row with its display
// identifier.
func (s *AnnouncementService) List(ctx context.Context, params dto.ListAnnouncementsQuery) ([]dto.AnnouncementItem, *models.Pagination, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	items, total, err := s.repo.Search(ctx, params, s.location)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	for i := range items {
		items[i].DisplayID = fmt.Sprintf("%s%d", repository.AnnouncementIDPrefix, items[i].ID)
	}
	pagination := &models.Pagination{Page: params.Page, PageSize: params.PerPage, TotalCount: total}
	return items, pagination, nil
}

// Get returns one announcement bundled with the compose-form options for its
// programme.
func (s *AnnouncementService) Get(ctx context.Context, id int64) (*dto.AnnouncementDetail, error) {
	announcement, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &dto.AnnouncementDetail{AnnouncementItem: toItem(announcement)}
	if s.options != nil {
		options, err := s.options.AnnouncementOptions(ctx, announcement.ProgrammeID)
		if err != nil {
			return nil, err
		}
		detail.Options = options
	}
	return detail, nil
}

// Create registers a new announcement. Creation of an urgent announcement
// triggers recipient emails synchronously before the response is returned.
func (s *AnnouncementService) Create(ctx context.Context, req dto.CreateAnnouncementRequest, actor *models.JWTClaims) (*dto.AnnouncementItem, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	announcement := &models.Announcement{
		Subject:           req.Subject,
		Body:              req.Body,
		VisibleFrom:       req.VisibleFrom,
		VisibleTo:         req.VisibleTo,
		IsUrgent:          req.IsUrgent,
		Audience:          models.Audience(req.Audience),
		ProgrammeID:       req.ProgrammeID,
		ScheduledCourseID: req.ScheduledCourseID,
		GroupID:           req.GroupID,
	}
	if actor != nil {
		announcement.CreatedBy = &actor.UserID
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	// Reload to pick up joined catalog fields for dispatch and display.
	created, err := s.load(ctx, announcement.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AnnouncementCreated(ctx, created)
	}
	item := toItem(created)
	return &item, nil
}

// Update replaces the full record. Updates never trigger recipient emails.
func (s *AnnouncementService) Update(ctx context.Context, id int64, req dto.UpdateAnnouncementRequest) (*dto.AnnouncementItem, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Subject = req.Subject
	existing.Body = req.Body
	existing.VisibleFrom = req.VisibleFrom
	existing.VisibleTo = req.VisibleTo
	existing.IsUrgent = req.IsUrgent
	existing.Audience = models.Audience(req.Audience)
	existing.ProgrammeID = req.ProgrammeID
	existing.ScheduledCourseID = req.ScheduledCourseID
	existing.GroupID = req.GroupID
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	item := toItem(existing)
	return &item, nil
}

// Delete hard-deletes an announcement and, via the schema cascade, its
// read-marks.
func (s *AnnouncementService) Delete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

// Load fetches one announcement with its joined catalog fields.
func (s *AnnouncementService) Load(ctx context.Context, id int64) (*models.Announcement, error) {
	return s.load(ctx, id)
}

func (s *AnnouncementService) load(ctx context.Context, id int64) (*models.Announcement, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}

func (s *AnnouncementService) validate(req dto.CreateAnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if !models.Audience(req.Audience).Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown audience")
	}
	if !req.VisibleFrom.Before(req.VisibleTo) {
		return appErrors.Clone(appErrors.ErrValidation, "'visible from' must be before 'visible to'")
	}
	if req.VisibleTo.Before(s.now()) {
		return appErrors.Clone(appErrors.ErrValidation, "'visible to' cannot be in the past")
	}
	if req.GroupID != nil && req.ScheduledCourseID == nil {
		return appErrors.Clone(appErrors.ErrValidation, "a course group requires a scheduled course")
	}
	return nil
}

func notFoundError(id int64) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("announcement with id %d does not exist", id))
}

// toItem projects a loaded announcement into its listing shape, computing
// the recipient label and display identifier.
func toItem(a *models.Announcement) dto.AnnouncementItem {
	recipient := a.Audience.Label()
	if a.ProgrammeID != nil && a.ProgrammeName != nil {
		recipient = "Programme" + *a.ProgrammeName
	}
	return dto.AnnouncementItem{
		ID:                a.ID,
		DisplayID:         fmt.Sprintf("%s%d", repository.AnnouncementIDPrefix, a.ID),
		Subject:           a.Subject,
		Body:              a.Body,
		VisibleFrom:       a.VisibleFrom,
		VisibleTo:         a.VisibleTo,
		IsUrgent:          a.IsUrgent,
		Audience:          a.Audience,
		ProgrammeID:       a.ProgrammeID,
		ProgrammeName:     a.ProgrammeName,
		ScheduledCourseID: a.ScheduledCourseID,
		GroupID:           a.GroupID,
		Recipient:         recipient,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
