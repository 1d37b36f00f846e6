package service

import (
	"context"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/repository"
)

type notificationService struct {
	store repository.Store
}

func NewNotificationService(store repository.Store) NotificationService {
	return &notificationService{store: store}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	return s.store.Repos().Notifications.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	return s.store.Repos().Notifications.MarkAsRead(ctx, notificationID, userID)
}

// emailCategories are also delivered by email when a sender is configured.
var emailCategories = map[domain.NotificationCategory]bool{
	domain.NotificationCategoryViolation: true,
	domain.NotificationCategoryWallet:    true,
}

type notificationDispatcher struct {
	store   repository.Store
	clock   clock.Clock
	push    PushSender
	email   EmailSender
	metrics *metrics.Metrics
}

// NewNotificationDispatcher writes every notice to the in-app inbox and fans
// it out to push and email when those senders are non-nil.
func NewNotificationDispatcher(store repository.Store, clk clock.Clock, push PushSender, email EmailSender, m *metrics.Metrics) Notifier {
	return &notificationDispatcher{store: store, clock: clk, push: push, email: email, metrics: m}
}

func (d *notificationDispatcher) Notify(ctx context.Context, notice Notice) error {
	repos := d.store.Repos()

	note := &domain.Notification{
		UserID:     notice.UserID,
		Title:      notice.Title,
		Message:    notice.Message,
		Category:   notice.Category,
		Attributes: notice.Attributes,
		CreatedOn:  d.clock.Now(),
	}
	err := repos.Notifications.Create(ctx, note)
	d.metrics.Notification("inbox", err)
	if err != nil {
		return err
	}

	if d.push == nil && d.email == nil {
		return nil
	}

	user, err := repos.Users.GetByID(ctx, notice.UserID)
	if err != nil {
		logger.Warn("Notification recipient lookup failed", "userID", notice.UserID, "error", err)
		return nil
	}

	if d.push != nil && user.FCMToken != "" {
		err := d.push.SendPush(ctx, user.FCMToken, notice.Title, notice.Message, notice.Attributes)
		d.metrics.Notification("push", err)
		if err != nil {
			logger.Warn("Push notification failed", "userID", user.ID, "error", err)
		}
	}

	if d.email != nil && emailCategories[notice.Category] && user.Email != "" {
		err := d.email.SendEmail(ctx, user.Email, user.Name, notice.Title, notice.Message)
		d.metrics.Notification("email", err)
		if err != nil {
			logger.Warn("Email notification failed", "userID", user.ID, "error", err)
		}
	}
	return nil
}

// notify delivers a notice after a committed transition. Failures are logged
// and never surface to the caller.
func notify(ctx context.Context, n Notifier, notice Notice) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, notice); err != nil {
		logger.Error("Failed to deliver notification", "userID", notice.UserID, "title", notice.Title, "error", err)
	}
}
