package store

import (
	"context"
	"fmt"
	"strings"

	"optigov.org/internal/domain"
)

func (s *Store) CreateAdminNote(ctx context.Context, n domain.AdminNote) (domain.AdminNote, error) {
	n.Content = strings.TrimSpace(n.Content)
	if strings.TrimSpace(n.AdminID) == "" || strings.TrimSpace(n.TargetUserID) == "" || n.Content == "" {
		return domain.AdminNote{}, fmt.Errorf("%w: admin, target and content are required", domain.ErrInvalidInput)
	}
	n.ID = s.newID()
	n.Timestamp = s.clock()
	err := s.update(ctx, "create_admin_note", func(t *tx) error {
		notes, err := get[[]domain.AdminNote](ctx, t, domain.PartitionAdminNotes)
		if err != nil {
			return err
		}
		return t.put(domain.PartitionAdminNotes, append(notes, n))
	})
	if err != nil {
		return domain.AdminNote{}, err
	}
	return n, nil
}

// GetAdminNotes returns notes about targetUserID, newest first.
func (s *Store) GetAdminNotes(ctx context.Context, targetUserID string) ([]domain.AdminNote, error) {
	notes, err := get[[]domain.AdminNote](ctx, s, domain.PartitionAdminNotes)
	if err != nil {
		return nil, err
	}
	return newestFirst(filter(notes, func(n domain.AdminNote) bool { return n.TargetUserID == targetUserID })), nil
}
