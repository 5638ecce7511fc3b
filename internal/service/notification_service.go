package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

const notificationsPageSize = 50

// NotificationStore хранилище уведомлений в приложении
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}

// NotificationFeed лента уведомлений пользователя
type NotificationFeed struct {
	Items  []*model.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

type NotificationService struct {
	notifications NotificationStore
}

func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List последние уведомления пользователя и число непрочитанных
func (s *NotificationService) List(ctx context.Context, actor model.Actor) (*NotificationFeed, error) {
	items, err := s.notifications.ListByUser(ctx, actor.ID, notificationsPageSize)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	unread, err := s.notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	if items == nil {
		items = []*model.Notification{}
	}
	return &NotificationFeed{Items: items, Unread: unread}, nil
}

// MarkRead отмечает своё уведомление прочитанным
func (s *NotificationService) MarkRead(ctx context.Context, actor model.Actor, id int64) error {
	ok, err := s.notifications.MarkRead(ctx, id, actor.ID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return interview.ErrNotFound
	}
	return nil
}
