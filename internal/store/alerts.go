package store

import (
	"context"
	"fmt"
	"strings"

	"optigov.org/internal/domain"
)

func (s *Store) CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error) {
	if strings.TrimSpace(a.CitizenID) == "" || strings.TrimSpace(a.Message) == "" {
		return domain.Alert{}, fmt.Errorf("%w: citizen and message are required", domain.ErrInvalidInput)
	}
	switch a.Type {
	case "":
		a.Type = domain.AlertInfo
	case domain.AlertBreach, domain.AlertWarning, domain.AlertInfo:
	default:
		return domain.Alert{}, fmt.Errorf("%w: unknown alert type %q", domain.ErrInvalidInput, a.Type)
	}
	a.ID = s.newID()
	a.Date = s.clock()
	a.Resolved = false

	err := s.update(ctx, "create_alert", func(t *tx) error {
		alerts, err := get[[]domain.Alert](ctx, t, domain.PartitionAlerts)
		if err != nil {
			return err
		}
		return t.put(domain.PartitionAlerts, append(alerts, a))
	})
	if err != nil {
		return domain.Alert{}, err
	}
	return a, nil
}

func (s *Store) GetAlertsByCitizen(ctx context.Context, citizenID string) ([]domain.Alert, error) {
	alerts, err := get[[]domain.Alert](ctx, s, domain.PartitionAlerts)
	if err != nil {
		return nil, err
	}
	return newestFirst(filter(alerts, func(a domain.Alert) bool { return a.CitizenID == citizenID })), nil
}

// ResolveAlert marks the alert resolved. Resolution cannot be undone.
func (s *Store) ResolveAlert(ctx context.Context, id string) (domain.Alert, error) {
	var out domain.Alert
	err := s.update(ctx, "resolve_alert", func(t *tx) error {
		alerts, err := get[[]domain.Alert](ctx, t, domain.PartitionAlerts)
		if err != nil {
			return err
		}
		i := indexOf(alerts, func(a domain.Alert) bool { return a.ID == id })
		if i < 0 {
			return domain.ErrNotFound
		}
		if alerts[i].Resolved {
			out = alerts[i]
			return nil
		}
		alerts[i].Resolved = true
		out = alerts[i]
		return t.put(domain.PartitionAlerts, alerts)
	})
	return out, err
}
