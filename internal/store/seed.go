package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"optigov.org/internal/auth"
	"optigov.org/internal/domain"
)

// SeedPassword is the shared password of the predefined company accounts.
const SeedPassword = "company123"

type seedCompany struct {
	slug, name, kind, address string
}

var seedCompanies = []seedCompany{
	{"gtbank", "GTBank", "Banking", "635 Akin Adesola Street, Victoria Island, Lagos"},
	{"jumia", "Jumia", "E-commerce", "Plot 1 Jumia Lane, Ikeja, Lagos"},
	{"mtn", "MTN", "Telecommunications", "MTN Plaza, Falomo, Ikoyi, Lagos"},
	{"flutterwave", "Flutterwave", "Fintech", "8 Providence Street, Lekki Phase 1, Lagos"},
	{"paystack", "Paystack", "Fintech", "3a Ladoke Akintola Street, Ikeja GRA, Lagos"},
	{"konga", "Konga", "E-commerce", "Konga Place, Ilupeju, Lagos"},
	{"airtel", "Airtel", "Telecommunications", "Plot L2 Banana Island, Ikoyi, Lagos"},
	{"firstbank", "First Bank", "Banking", "35 Samuel Asabia House, Marina, Lagos"},
	{"zenith", "Zenith", "Banking", "Plot 84 Ajose Adeogun Street, Victoria Island, Lagos"},
	{"access", "Access", "Banking", "14/15 Prince Alaba Abiodun Oniru Road, Victoria Island, Lagos"},
}

// SeedAdmin is an optional administrator created alongside the companies.
type SeedAdmin struct {
	Username string
	Email    string
	Password string
}

// Seed populates an empty store with the predefined companies, their
// checklists and, when admin is non-nil, an administrator. It does nothing and
// returns false when any user already exists.
func (s *Store) Seed(ctx context.Context, admin *SeedAdmin) (bool, error) {
	existing, err := get[[]domain.User](ctx, s, domain.PartitionUsers)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	hashes := make([]string, len(seedCompanies))
	for i := range seedCompanies {
		h, err := auth.HashPassword(SeedPassword, s.cost)
		if err != nil {
			return false, err
		}
		hashes[i] = h
	}
	var adminUser *domain.User
	if admin != nil {
		if strings.TrimSpace(admin.Username) == "" || strings.TrimSpace(admin.Email) == "" || admin.Password == "" {
			return false, fmt.Errorf("%w: admin username, email and password are required", domain.ErrInvalidInput)
		}
		hash, err := auth.HashPassword(admin.Password, s.cost)
		if err != nil {
			return false, err
		}
		now := s.clock()
		adminUser = &domain.User{
			ID:              s.newID(),
			Username:        strings.TrimSpace(admin.Username),
			Email:           normalizeEmail(admin.Email),
			PasswordHash:    hash,
			Role:            domain.RoleAdmin,
			CreatedAt:       now,
			LastActivity:    now,
			IsActive:        true,
			Department:      "Data Protection",
			PermissionLevel: "full",
		}
	}

	seeded := false
	err = s.update(ctx, "seed", func(t *tx) error {
		users, err := get[[]domain.User](ctx, t, domain.PartitionUsers)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			return nil
		}
		now := s.clock()
		for i, c := range seedCompanies {
			id := "company_" + c.slug
			users = append(users, domain.User{
				ID:               id,
				Username:         c.slug,
				Email:            "contact@" + c.slug + ".com",
				PasswordHash:     hashes[i],
				Role:             domain.RoleCompany,
				CreatedAt:        now,
				LastActivity:     now,
				IsActive:         true,
				OrganizationName: c.name,
				OrganizationType: c.kind,
				ContactPerson:    c.name + " Data Protection Officer",
				Address:          c.address,
				Website:          "https://www." + c.slug + ".com",
			})
			if err := ensureChecklist(ctx, t, id, now); err != nil {
				return err
			}
		}
		if adminUser != nil {
			if conflicts(users, "", adminUser.Username, adminUser.Email) {
				return fmt.Errorf("%w: admin %q collides with a predefined company", domain.ErrAlreadyExists, adminUser.Username)
			}
			users = append(users, *adminUser)
		}
		seeded = true
		return t.put(domain.PartitionUsers, users)
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.log.Info("seeded predefined companies", zap.Int("companies", len(seedCompanies)), zap.Bool("admin", adminUser != nil))
	}
	return seeded, nil
}
