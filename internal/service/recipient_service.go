package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushq/announcements-api/internal/dto"
	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/internal/repository"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

type recipientStore interface {
	ListRecipients(ctx context.Context, filter repository.RecipientFilter) ([]models.User, error)
}

type membershipLister interface {
	CourseMembers(ctx context.Context, vleCourseID string) []string
	GroupMembers(ctx context.Context, vleCourseID, vleGroupID string) []string
}

// RecipientService computes the concrete set of active accounts an
// announcement reaches. It backs the compose-form audience preview and the
// urgent-announcement email dispatch.
type RecipientService struct {
	users       recipientStore
	memberships membershipLister
	logger      *zap.Logger
}

// NewRecipientService constructs the service.
func NewRecipientService(users recipientStore, memberships membershipLister, logger *zap.Logger) *RecipientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipientService{users: users, memberships: memberships, logger: logger}
}

// Resolve narrows all active accounts by audience, programme and, when the
// announcement is course- or group-scoped, by cached membership. Missing
// cache data resolves to an empty set, never to everyone.
func (s *RecipientService) Resolve(ctx context.Context, announcement *models.Announcement) ([]models.User, error) {
	filter := repository.RecipientFilter{
		Roles:       announcement.Audience.Roles(),
		ProgrammeID: announcement.ProgrammeID,
	}

	if announcement.ScheduledCourseID != nil || announcement.GroupID != nil {
		filter.RestrictUsernames = true
		filter.Usernames = s.courseUsernames(ctx, announcement)
	}

	users, err := s.users.ListRecipients(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}
	return users, nil
}

// Preview maps resolved recipients into the compose-form preview shape.
func (s *RecipientService) Preview(ctx context.Context, announcement *models.Announcement) ([]dto.RecipientPreview, error) {
	users, err := s.Resolve(ctx, announcement)
	if err != nil {
		return nil, err
	}
	preview := make([]dto.RecipientPreview, len(users))
	for i := range users {
		preview[i] = dto.RecipientPreview{
			ID:          users[i].ID,
			Username:    users[i].Username,
			DisplayName: users[i].DisplayName(),
			Email:       users[i].Email,
		}
	}
	return preview, nil
}

// courseUsernames returns the usernames allowed by the course and group
// scoping. Group scoping intersects with the course member list; any missing
// VLE reference yields nil, which matches nobody.
func (s *RecipientService) courseUsernames(ctx context.Context, announcement *models.Announcement) []string {
	if announcement.VLECourseID == nil {
		return nil
	}
	members := s.memberships.CourseMembers(ctx, *announcement.VLECourseID)
	if announcement.GroupID == nil {
		return members
	}
	if announcement.VLEGroupID == nil {
		return nil
	}
	return intersect(members, s.memberships.GroupMembers(ctx, *announcement.VLECourseID, *announcement.VLEGroupID))
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
