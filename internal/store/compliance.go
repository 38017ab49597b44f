package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"optigov.org/internal/domain"
)

// ComplianceRules returns a copy of the checklist every company is scored on.
func (s *Store) ComplianceRules() []string { return slices.Clone(domain.ComplianceRules) }

// GetComplianceItem returns companyID's checklist or ErrNotFound.
func (s *Store) GetComplianceItem(ctx context.Context, companyID string) (domain.ComplianceItem, error) {
	items, err := get[[]domain.ComplianceItem](ctx, s, domain.PartitionCompliance)
	if err != nil {
		return domain.ComplianceItem{}, err
	}
	i := indexOf(items, func(c domain.ComplianceItem) bool { return c.CompanyID == companyID })
	if i < 0 {
		return domain.ComplianceItem{}, domain.ErrNotFound
	}
	return fitRules(items[i]), nil
}

// UpdateComplianceItem sets rule index of companyID's checklist to value.
func (s *Store) UpdateComplianceItem(ctx context.Context, companyID string, index int, value bool) (domain.ComplianceItem, error) {
	if index < 0 || index >= len(domain.ComplianceRules) {
		return domain.ComplianceItem{}, fmt.Errorf("%w: rule index %d out of range [0,%d)", domain.ErrInvalidInput, index, len(domain.ComplianceRules))
	}
	var out domain.ComplianceItem
	err := s.update(ctx, "update_compliance_item", func(t *tx) error {
		items, err := get[[]domain.ComplianceItem](ctx, t, domain.PartitionCompliance)
		if err != nil {
			return err
		}
		i := indexOf(items, func(c domain.ComplianceItem) bool { return c.CompanyID == companyID })
		if i < 0 {
			return domain.ErrNotFound
		}
		item := fitRules(items[i])
		item.Items[index] = value
		item.LastUpdated = s.clock()
		items[i] = item
		out = item
		return t.put(domain.PartitionCompliance, items)
	})
	return out, err
}

// GetComplianceScore returns round(100*k/N) for companyID's checklist.
func (s *Store) GetComplianceScore(ctx context.Context, companyID string) (int, error) {
	item, err := s.GetComplianceItem(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return item.Score(), nil
}

// fitRules pads or truncates a stored checklist to the rule count.
func fitRules(c domain.ComplianceItem) domain.ComplianceItem {
	n := len(domain.ComplianceRules)
	items := make([]bool, n)
	copy(items, c.Items)
	c.Items = items
	return c
}

// ensureChecklist stages an all-false checklist for companyID unless one exists.
func ensureChecklist(ctx context.Context, t *tx, companyID string, now time.Time) error {
	items, err := get[[]domain.ComplianceItem](ctx, t, domain.PartitionCompliance)
	if err != nil {
		return err
	}
	if indexOf(items, func(c domain.ComplianceItem) bool { return c.CompanyID == companyID }) >= 0 {
		return nil
	}
	return t.put(domain.PartitionCompliance, append(items, domain.NewComplianceItem(companyID, now)))
}
