// Package notify delivers in-app notifications to students.
package notify

import (
	"context"
	"log/slog"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/store"
)

// DefaultListLimit caps List results.
const DefaultListLimit = 20

// Notifier sends a notification. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, studentID ids.ID, title, message string, typ store.NotificationType)
}

// Service stores notifications in a NotificationRepo.
type Service struct {
	repo store.NotificationRepo
}

// NewService creates a notification service.
func NewService(repo store.NotificationRepo) *Service {
	return &Service{repo: repo}
}

// Notify creates an unread notification. Failures are logged and dropped.
func (s *Service) Notify(ctx context.Context, studentID ids.ID, title, message string, typ store.NotificationType) {
	n := &store.Notification{
		StudentID: studentID,
		Title:     title,
		Message:   message,
		Type:      typ,
	}
	if err := s.repo.CreateNotification(context.WithoutCancel(ctx), n); err != nil {
		slog.Warn("failed to create notification", "err", err, "student", studentID, "title", title)
	}
}

// List returns up to DefaultListLimit notifications, newest first.
func (s *Service) List(ctx context.Context, studentID ids.ID, unreadOnly bool) ([]store.Notification, error) {
	return s.repo.ListNotifications(ctx, studentID, unreadOnly, DefaultListLimit)
}

// MarkRead marks one of the student's notifications read. Marking an
// already-read notification succeeds. store.ErrNotFound is returned when
// the notification does not exist or belongs to someone else.
func (s *Service) MarkRead(ctx context.Context, studentID, notificationID ids.ID) error {
	return s.repo.MarkRead(ctx, studentID, notificationID)
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, ids.ID, string, string, store.NotificationType) {}
