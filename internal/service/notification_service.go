package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/pkg/mailer"
)

const urgentEmailSubject = "Urgent announcement"

type recipientResolver interface {
	Resolve(ctx context.Context, announcement *models.Announcement) ([]models.User, error)
}

// NotificationService emails every resolved recipient of a newly created
// urgent announcement. Dispatch is synchronous and blocks the creating
// request per recipient send; a failed send is logged and skipped so one bad
// address never blocks the rest, and failures never surface to the creation
// path.
type NotificationService struct {
	resolver recipientResolver
	sender   mailer.Sender
	hubURL   string
	logger   *zap.Logger
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(resolver recipientResolver, sender mailer.Sender, hubURL string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{resolver: resolver, sender: sender, hubURL: hubURL, logger: logger}
}

// AnnouncementCreated dispatches urgent-announcement emails. Non-urgent
// creations are ignored; updates never reach this path.
func (s *NotificationService) AnnouncementCreated(ctx context.Context, announcement *models.Announcement) {
	if !announcement.IsUrgent || s.sender == nil {
		return
	}

	recipients, err := s.resolver.Resolve(ctx, announcement)
	if err != nil {
		s.logger.Error("failed to resolve urgent announcement recipients",
			zap.Int64("announcement_id", announcement.ID),
			zap.Error(err))
		return
	}

	sent := 0
	for _, recipient := range recipients {
		if recipient.Email == "" {
			continue
		}
		if err := s.sender.Send(recipient.Email, urgentEmailSubject, s.renderBody(&recipient, announcement)); err != nil {
			s.logger.Error("urgent announcement email failed",
				zap.Int64("announcement_id", announcement.ID),
				zap.String("recipient", recipient.Username),
				zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Info("urgent announcement emails dispatched",
		zap.Int64("announcement_id", announcement.ID),
		zap.Int("sent", sent),
		zap.Int("resolved", len(recipients)))
}

func (s *NotificationService) renderBody(recipient *models.User, announcement *models.Announcement) string {
	return fmt.Sprintf("Dear %s,\n\nAn urgent announcement has been published:\n\n%s\n\nRead it in full on your hub:\n%s\n",
		recipient.DisplayName(), announcement.Subject, s.hubURL)
}
