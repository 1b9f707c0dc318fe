package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/realtime"
)

const (
	notificationPageLimitDefault = 20
	notificationPageLimitMax     = 50
)

// NotificationService serves the durable notification feed.
type NotificationService struct {
	notifications domain.NotificationRepository
	fanout        *Fanout
}

func NewNotificationService(notifications domain.NotificationRepository, fanout *Fanout) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		fanout:        fanout,
	}
}

// NotificationPage is one page of the user's feed, newest first.
type NotificationPage struct {
	Notifications []*domain.Notification `json:"notifications"`
	NextCursor    *int64                 `json:"nextCursor"`
}

// List returns the user's notifications with backward cursor pagination.
func (s *NotificationService) List(ctx context.Context, userID int64, f domain.NotificationListFilter) (*NotificationPage, error) {
	if f.Limit <= 0 {
		f.Limit = notificationPageLimitDefault
	}
	if f.Limit > notificationPageLimitMax {
		f.Limit = notificationPageLimitMax
	}

	notifications, err := s.notifications.ListForUser(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	page := &NotificationPage{Notifications: notifications}
	if len(notifications) == f.Limit {
		last := notifications[len(notifications)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

// MarkAsRead flags one of the user's notifications read. Idempotent.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID int64) (*domain.Notification, error) {
	n, err := s.notifications.GetForUser(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}

	if n.IsRead {
		return n, nil
	}

	now := time.Now()
	if err := s.notifications.MarkRead(ctx, n.ID, now); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	n.ReadAt = &now

	s.fanout.Push(userID, realtime.EventNotificationRead, realtime.NotificationReadData{
		ID:     n.ID,
		ReadAt: n.ReadAt,
	})

	return n, nil
}
