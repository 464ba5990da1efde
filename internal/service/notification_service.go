package service

import (
	"context"

	"quad/internal/models"
	"quad/internal/repository"
)

type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int, unreadOnly bool) ([]*models.Notification, error) {
	return s.notificationRepo.ListForUser(ctx, userID, limit, offset, unreadOnly)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkRead marks a single notification read. The update is scoped to the
// caller's own rows; marking an already-read notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) (bool, error) {
	return s.notificationRepo.MarkRead(ctx, userID, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	return s.notificationRepo.Delete(ctx, userID, notificationID)
}
