package store

import (
	"context"

	"optigov.org/internal/domain"
)

// SetCurrentUser stores the signed-in user snapshot. The password hash is not
// kept in the snapshot.
func (s *Store) SetCurrentUser(ctx context.Context, u domain.User) error {
	u.PasswordHash = ""
	return s.update(ctx, "set_current_user", func(t *tx) error {
		return t.put(domain.PartitionCurrentUser, u)
	})
}

// CurrentUser returns the snapshot or ErrNotFound when nobody is signed in.
func (s *Store) CurrentUser(ctx context.Context) (domain.User, error) {
	u, err := get[*domain.User](ctx, s, domain.PartitionCurrentUser)
	if err != nil {
		return domain.User{}, err
	}
	if u == nil || u.ID == "" {
		return domain.User{}, domain.ErrNotFound
	}
	return *u, nil
}

func (s *Store) ClearCurrentUser(ctx context.Context) error {
	return s.update(ctx, "clear_current_user", func(t *tx) error {
		t.del(domain.PartitionCurrentUser)
		return nil
	})
}
