package store

import (
	"context"
	"fmt"
	"strings"

	"optigov.org/internal/domain"
)

// LogActivity appends an entry to the audit trail.
func (s *Store) LogActivity(ctx context.Context, a domain.ActivityLog) (domain.ActivityLog, error) {
	if strings.TrimSpace(a.UserID) == "" || strings.TrimSpace(a.Action) == "" {
		return domain.ActivityLog{}, fmt.Errorf("%w: user and action are required", domain.ErrInvalidInput)
	}
	var out domain.ActivityLog
	err := s.update(ctx, "log_activity", func(t *tx) error {
		var err error
		out, err = s.appendActivity(ctx, t, a)
		return err
	})
	return out, err
}

func (s *Store) addActivity(ctx context.Context, t *tx, a domain.ActivityLog) error {
	_, err := s.appendActivity(ctx, t, a)
	return err
}

func (s *Store) appendActivity(ctx context.Context, t *tx, a domain.ActivityLog) (domain.ActivityLog, error) {
	logs, err := get[[]domain.ActivityLog](ctx, t, domain.PartitionActivityLogs)
	if err != nil {
		return domain.ActivityLog{}, err
	}
	a.ID = s.newID()
	a.Timestamp = s.clock()
	if a.Type == "" {
		a.Type = domain.ActivityNotification
	}
	if err := t.put(domain.PartitionActivityLogs, append(logs, a)); err != nil {
		return domain.ActivityLog{}, err
	}
	return a, nil
}

// GetActivityLogs returns userID's entries, newest first.
func (s *Store) GetActivityLogs(ctx context.Context, userID string) ([]domain.ActivityLog, error) {
	logs, err := get[[]domain.ActivityLog](ctx, s, domain.PartitionActivityLogs)
	if err != nil {
		return nil, err
	}
	return newestFirst(filter(logs, func(a domain.ActivityLog) bool { return a.UserID == userID })), nil
}

// GetAllActivityLogs returns up to limit entries across all users, newest
// first. A non-positive limit returns everything.
func (s *Store) GetAllActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	logs, err := get[[]domain.ActivityLog](ctx, s, domain.PartitionActivityLogs)
	if err != nil {
		return nil, err
	}
	out := newestFirst(logs)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
