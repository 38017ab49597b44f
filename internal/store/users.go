package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"optigov.org/internal/auth"
	"optigov.org/internal/domain"
)

// UserPatch holds the fields UpdateUser may change. Nil fields are left alone.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	Phone    *string

	FirstName  *string
	LastName   *string
	NationalID *string

	OrganizationName   *string
	OrganizationType   *string
	RegistrationNumber *string
	ContactPerson      *string
	Address            *string
	Website            *string

	Department      *string
	EmploymentID    *string
	PermissionLevel *string
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// conflicts reports whether another user already holds username or email.
func conflicts(users []domain.User, selfID, username, email string) bool {
	for _, u := range users {
		if u.ID == selfID {
			continue
		}
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// CreateUser registers u with password. ID, CreatedAt, LastActivity and
// IsActive are assigned here. Companies also get an empty compliance
// checklist.
func (s *Store) CreateUser(ctx context.Context, u domain.User, password string) (domain.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	if u.Username == "" || u.Email == "" || password == "" || !u.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: username, email, password and role are required", domain.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	u.ID = s.newID()
	u.PasswordHash = hash
	u.CreatedAt = now
	u.LastActivity = now
	u.IsActive = true

	err = s.update(ctx, "create_user", func(t *tx) error {
		users, err := get[[]domain.User](ctx, t, domain.PartitionUsers)
		if err != nil {
			return err
		}
		if conflicts(users, "", u.Username, u.Email) {
			return domain.ErrAlreadyExists
		}
		if err := t.put(domain.PartitionUsers, append(users, u)); err != nil {
			return err
		}
		if u.Role == domain.RoleCompany {
			return ensureChecklist(ctx, t, u.ID, now)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate returns the active user with email whose password matches and
// records the login. Any mismatch is ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	users, err := get[[]domain.User](ctx, s, domain.PartitionUsers)
	if err != nil {
		return domain.User{}, err
	}
	i := indexOf(users, func(u domain.User) bool { return u.IsActive && strings.EqualFold(u.Email, email) })
	if i < 0 || auth.VerifyPassword(users[i].PasswordHash, password) != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	id := users[i].ID

	var out domain.User
	err = s.update(ctx, "authenticate", func(t *tx) error {
		users, err := get[[]domain.User](ctx, t, domain.PartitionUsers)
		if err != nil {
			return err
		}
		j := indexOf(users, func(u domain.User) bool { return u.ID == id })
		if j < 0 || !users[j].IsActive {
			return domain.ErrInvalidCredentials
		}
		now := s.clock()
		users[j].LastActivity = now
		out = users[j]
		if err := t.put(domain.PartitionUsers, users); err != nil {
			return err
		}
		logs, err := get[[]domain.ActivityLog](ctx, t, domain.PartitionActivityLogs)
		if err != nil {
			return err
		}
		logs = append(logs, domain.ActivityLog{
			ID:        s.newID(),
			UserID:    out.ID,
			Action:    "Signed in",
			Details:   fmt.Sprintf("%s signed in to the %s dashboard", out.DisplayName(), out.Role),
			Timestamp: now,
			Type:      domain.ActivityLogin,
		})
		return t.put(domain.PartitionActivityLogs, logs)
	})
	return out, err
}

// GetUserByID returns the user or ErrNotFound.
func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	users, err := get[[]domain.User](ctx, s, domain.PartitionUsers)
	if err != nil {
		return domain.User{}, err
	}
	if i := indexOf(users, func(u domain.User) bool { return u.ID == id }); i >= 0 {
		return users[i], nil
	}
	return domain.User{}, domain.ErrNotFound
}

// GetAllUsers returns every user in registration order.
func (s *Store) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	users, err := get[[]domain.User](ctx, s, domain.PartitionUsers)
	if err != nil {
		return nil, err
	}
	return filter(users, func(domain.User) bool { return true }), nil
}

// GetUsersByRole returns users holding role.
func (s *Store) GetUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	users, err := get[[]domain.User](ctx, s, domain.PartitionUsers)
	if err != nil {
		return nil, err
	}
	return filter(users, func(u domain.User) bool { return u.Role == role }), nil
}

// GetCompanies returns the active company accounts citizens can file against.
func (s *Store) GetCompanies(ctx context.Context) ([]domain.User, error) {
	companies, err := s.GetUsersByRole(ctx, domain.RoleCompany)
	if err != nil {
		return nil, err
	}
	return filter(companies, func(u domain.User) bool { return u.IsActive }), nil
}

// UpdateUser applies patch to the user with id.
func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) (domain.User, error) {
	var hash string
	if patch.Password != nil {
		h, err := auth.HashPassword(*patch.Password, s.cost)
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		hash = h
	}
	var out domain.User
	err := s.update(ctx, "update_user", func(t *tx) error {
		return s.mutateUser(ctx, t, id, func(users []domain.User, u *domain.User) error {
			username, email := u.Username, u.Email
			if patch.Username != nil {
				username = strings.TrimSpace(*patch.Username)
			}
			if patch.Email != nil {
				email = normalizeEmail(*patch.Email)
			}
			if username == "" || email == "" {
				return fmt.Errorf("%w: username and email cannot be empty", domain.ErrInvalidInput)
			}
			if conflicts(users, u.ID, username, email) {
				return domain.ErrAlreadyExists
			}
			u.Username, u.Email = username, email
			if hash != "" {
				u.PasswordHash = hash
			}
			applyProfile(u, patch)
			out = *u
			return nil
		})
	})
	return out, err
}

func applyProfile(u *domain.User, p UserPatch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&u.Phone, p.Phone)
	set(&u.FirstName, p.FirstName)
	set(&u.LastName, p.LastName)
	set(&u.NationalID, p.NationalID)
	set(&u.OrganizationName, p.OrganizationName)
	set(&u.OrganizationType, p.OrganizationType)
	set(&u.RegistrationNumber, p.RegistrationNumber)
	set(&u.ContactPerson, p.ContactPerson)
	set(&u.Address, p.Address)
	set(&u.Website, p.Website)
	set(&u.Department, p.Department)
	set(&u.EmploymentID, p.EmploymentID)
	set(&u.PermissionLevel, p.PermissionLevel)
}

// UpdateUserActivity stamps the user's lastActivity with the current time.
func (s *Store) UpdateUserActivity(ctx context.Context, id string) error {
	return s.update(ctx, "update_user_activity", func(t *tx) error {
		return s.mutateUser(ctx, t, id, func(_ []domain.User, u *domain.User) error {
			u.LastActivity = s.clock()
			return nil
		})
	})
}

// SetUserActive enables or disables login for the user.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) (domain.User, error) {
	var out domain.User
	err := s.update(ctx, "set_user_active", func(t *tx) error {
		return s.mutateUser(ctx, t, id, func(_ []domain.User, u *domain.User) error {
			u.IsActive = active
			out = *u
			return nil
		})
	})
	if err == nil {
		s.log.Info("user activation changed", zap.String("user_id", id), zap.Bool("active", active))
	}
	return out, err
}

func (s *Store) mutateUser(ctx context.Context, t *tx, id string, fn func(users []domain.User, u *domain.User) error) error {
	users, err := get[[]domain.User](ctx, t, domain.PartitionUsers)
	if err != nil {
		return err
	}
	i := indexOf(users, func(u domain.User) bool { return u.ID == id })
	if i < 0 {
		return domain.ErrNotFound
	}
	if err := fn(users, &users[i]); err != nil {
		return err
	}
	return t.put(domain.PartitionUsers, users)
}
