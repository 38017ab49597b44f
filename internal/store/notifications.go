package store

import (
	"context"
	"fmt"
	"strings"

	"optigov.org/internal/domain"
)

// CreateNotification stores n for its recipient. Type defaults to info.
func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if strings.TrimSpace(n.RecipientID) == "" || strings.TrimSpace(n.Message) == "" {
		return domain.Notification{}, fmt.Errorf("%w: recipient and message are required", domain.ErrInvalidInput)
	}
	var out domain.Notification
	err := s.update(ctx, "create_notification", func(t *tx) error {
		created, err := s.appendNotifications(ctx, t, n)
		if err != nil {
			return err
		}
		out = created[0]
		return nil
	})
	return out, err
}

func (s *Store) addNotifications(ctx context.Context, t *tx, ns ...domain.Notification) error {
	_, err := s.appendNotifications(ctx, t, ns...)
	return err
}

func (s *Store) appendNotifications(ctx context.Context, t *tx, ns ...domain.Notification) ([]domain.Notification, error) {
	existing, err := get[[]domain.Notification](ctx, t, domain.PartitionNotifications)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	created := make([]domain.Notification, 0, len(ns))
	for _, n := range ns {
		n.ID = s.newID()
		n.Timestamp = now
		n.Read = false
		if n.Type == "" {
			n.Type = domain.NotifyInfo
		}
		created = append(created, n)
	}
	if err := t.put(domain.PartitionNotifications, append(existing, created...)); err != nil {
		return nil, err
	}
	return created, nil
}

// GetNotificationsByUser returns userID's notifications, newest first.
func (s *Store) GetNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	all, err := get[[]domain.Notification](ctx, s, domain.PartitionNotifications)
	if err != nil {
		return nil, err
	}
	return newestFirst(filter(all, func(n domain.Notification) bool { return n.RecipientID == userID })), nil
}

// UnreadNotificationCount counts userID's unread notifications.
func (s *Store) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	all, err := get[[]domain.Notification](ctx, s, domain.PartitionNotifications)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range all {
		if item.RecipientID == userID && !item.Read {
			n++
		}
	}
	return n, nil
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	var out domain.Notification
	err := s.update(ctx, "mark_notification_read", func(t *tx) error {
		all, err := get[[]domain.Notification](ctx, t, domain.PartitionNotifications)
		if err != nil {
			return err
		}
		i := indexOf(all, func(n domain.Notification) bool { return n.ID == id })
		if i < 0 {
			return domain.ErrNotFound
		}
		out = all[i]
		if all[i].Read {
			return nil
		}
		all[i].Read = true
		out.Read = true
		return t.put(domain.PartitionNotifications, all)
	})
	return out, err
}

// MarkAllNotificationsRead flags every notification of userID as read and
// returns how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	changed := 0
	err := s.update(ctx, "mark_all_notifications_read", func(t *tx) error {
		all, err := get[[]domain.Notification](ctx, t, domain.PartitionNotifications)
		if err != nil {
			return err
		}
		for i := range all {
			if all[i].RecipientID == userID && !all[i].Read {
				all[i].Read = true
				changed++
			}
		}
		if changed == 0 {
			return nil
		}
		return t.put(domain.PartitionNotifications, all)
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
