package store

import (
	"context"
	"fmt"
	"strings"

	"optigov.org/internal/domain"
)

// RequestPatch is the part of a pending request its citizen may edit.
type RequestPatch struct {
	Type        *domain.RequestType
	Priority    *domain.Priority
	Description *string
}

func requestNoun(t domain.RequestType) string {
	if t == domain.RequestDelete {
		return "data deletion"
	}
	return "data access"
}

// CreateRequest files a new request. Status is always pending whatever in
// carries; ID and Date are assigned here. Empty name snapshots are filled from
// the stored users. The company and the citizen are each notified and the
// submission is logged, all in one commit.
func (s *Store) CreateRequest(ctx context.Context, in domain.DataRequest) (domain.DataRequest, error) {
	in.CitizenID = strings.TrimSpace(in.CitizenID)
	in.CompanyID = strings.TrimSpace(in.CompanyID)
	if in.CitizenID == "" || in.CompanyID == "" || !in.Type.Valid() {
		return domain.DataRequest{}, fmt.Errorf("%w: citizen, company and a valid type are required", domain.ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityNormal
	}
	if !in.Priority.Valid() {
		return domain.DataRequest{}, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, in.Priority)
	}

	now := s.clock()
	req := domain.DataRequest{
		ID:          s.newID(),
		CitizenID:   in.CitizenID,
		CompanyID:   in.CompanyID,
		CitizenName: strings.TrimSpace(in.CitizenName),
		CompanyName: strings.TrimSpace(in.CompanyName),
		Type:        in.Type,
		Status:      domain.StatusPending,
		Priority:    in.Priority,
		Date:        now,
		Description: strings.TrimSpace(in.Description),
	}

	err := s.update(ctx, "create_request", func(t *tx) error {
		if req.CitizenName == "" || req.CompanyName == "" {
			users, err := get[[]domain.User](ctx, t, domain.PartitionUsers)
			if err != nil {
				return err
			}
			for _, u := range users {
				if u.ID == req.CitizenID && req.CitizenName == "" {
					req.CitizenName = u.DisplayName()
				}
				if u.ID == req.CompanyID && req.CompanyName == "" {
					req.CompanyName = u.DisplayName()
				}
			}
		}

		requests, err := get[[]domain.DataRequest](ctx, t, domain.PartitionRequests)
		if err != nil {
			return err
		}
		if err := t.put(domain.PartitionRequests, append(requests, req)); err != nil {
			return err
		}

		noun := requestNoun(req.Type)
		if err := s.addNotifications(ctx, t,
			domain.Notification{
				RecipientID: req.CompanyID,
				Role:        domain.RoleCompany,
				Message:     fmt.Sprintf("New %s request from %s", noun, req.CitizenName),
				Type:        domain.NotifyInfo,
			},
			domain.Notification{
				RecipientID: req.CitizenID,
				Role:        domain.RoleCitizen,
				Message:     fmt.Sprintf("Your %s request to %s has been submitted", noun, req.CompanyName),
				Type:        domain.NotifySuccess,
			},
		); err != nil {
			return err
		}
		return s.addActivity(ctx, t, domain.ActivityLog{
			UserID:  req.CitizenID,
			Action:  "Submitted " + noun + " request",
			Details: fmt.Sprintf("Request %s sent to %s", req.ID, req.CompanyName),
			Type:    domain.ActivityRequest,
		})
	})
	if err != nil {
		return domain.DataRequest{}, err
	}
	return req, nil
}

// GetRequest returns the request with id or ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, id string) (domain.DataRequest, error) {
	requests, err := get[[]domain.DataRequest](ctx, s, domain.PartitionRequests)
	if err != nil {
		return domain.DataRequest{}, err
	}
	if i := indexOf(requests, func(r domain.DataRequest) bool { return r.ID == id }); i >= 0 {
		return requests[i], nil
	}
	return domain.DataRequest{}, domain.ErrNotFound
}

// GetAllRequests returns every request in filing order.
func (s *Store) GetAllRequests(ctx context.Context) ([]domain.DataRequest, error) {
	return s.requestsWhere(ctx, func(domain.DataRequest) bool { return true })
}

// GetRequestsByCitizen returns requests filed by citizenID.
func (s *Store) GetRequestsByCitizen(ctx context.Context, citizenID string) ([]domain.DataRequest, error) {
	return s.requestsWhere(ctx, func(r domain.DataRequest) bool { return r.CitizenID == citizenID })
}

// GetRequestsByCompany returns requests addressed to companyID.
func (s *Store) GetRequestsByCompany(ctx context.Context, companyID string) ([]domain.DataRequest, error) {
	return s.requestsWhere(ctx, func(r domain.DataRequest) bool { return r.CompanyID == companyID })
}

func (s *Store) requestsWhere(ctx context.Context, keep func(domain.DataRequest) bool) ([]domain.DataRequest, error) {
	requests, err := get[[]domain.DataRequest](ctx, s, domain.PartitionRequests)
	if err != nil {
		return nil, err
	}
	return filter(requests, keep), nil
}

// UpdateRequestStatus records a company's response. The previous status is not
// checked, so a request may be answered again; every call stamps a fresh
// response date, notifies the citizen and logs the response.
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus, responseMessage string) (domain.DataRequest, error) {
	if status != domain.StatusApproved && status != domain.StatusRejected {
		return domain.DataRequest{}, fmt.Errorf("%w: status must be approved or rejected", domain.ErrInvalidInput)
	}
	var out domain.DataRequest
	err := s.update(ctx, "update_request_status", func(t *tx) error {
		requests, err := get[[]domain.DataRequest](ctx, t, domain.PartitionRequests)
		if err != nil {
			return err
		}
		i := indexOf(requests, func(r domain.DataRequest) bool { return r.ID == id })
		if i < 0 {
			return domain.ErrNotFound
		}
		now := s.clock()
		r := &requests[i]
		r.Status = status
		r.ResponseDate = &now
		if msg := strings.TrimSpace(responseMessage); msg != "" {
			r.ResponseMessage = msg
		}
		out = *r
		if err := t.put(domain.PartitionRequests, requests); err != nil {
			return err
		}

		kind := domain.NotifySuccess
		if status == domain.StatusRejected {
			kind = domain.NotifyError
		}
		message := fmt.Sprintf("Your %s request to %s was %s", requestNoun(r.Type), r.CompanyName, status)
		if r.ResponseMessage != "" {
			message += ": " + r.ResponseMessage
		}
		if err := s.addNotifications(ctx, t, domain.Notification{
			RecipientID: r.CitizenID,
			Role:        domain.RoleCitizen,
			Message:     message,
			Type:        kind,
		}); err != nil {
			return err
		}
		return s.addActivity(ctx, t, domain.ActivityLog{
			UserID:  r.CompanyID,
			Action:  fmt.Sprintf("Request %s", status),
			Details: fmt.Sprintf("%s request %s from %s marked %s", requestNoun(r.Type), r.ID, r.CitizenName, status),
			Type:    domain.ActivityResponse,
		})
	})
	return out, err
}

// UpdateRequest edits a request that is still pending.
func (s *Store) UpdateRequest(ctx context.Context, id string, patch RequestPatch) (domain.DataRequest, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return domain.DataRequest{}, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidInput, *patch.Type)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.DataRequest{}, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, *patch.Priority)
	}
	var out domain.DataRequest
	err := s.update(ctx, "update_request", func(t *tx) error {
		requests, i, err := pendingRequest(ctx, t, id)
		if err != nil {
			return err
		}
		r := &requests[i]
		if patch.Type != nil {
			r.Type = *patch.Type
		}
		if patch.Priority != nil {
			r.Priority = *patch.Priority
		}
		if patch.Description != nil {
			r.Description = strings.TrimSpace(*patch.Description)
		}
		out = *r
		return t.put(domain.PartitionRequests, requests)
	})
	return out, err
}

// DeleteRequest cancels a pending request and drops its chat thread.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	return s.update(ctx, "delete_request", func(t *tx) error {
		requests, i, err := pendingRequest(ctx, t, id)
		if err != nil {
			return err
		}
		requests = append(requests[:i], requests[i+1:]...)
		if err := t.put(domain.PartitionRequests, requests); err != nil {
			return err
		}
		chats, err := get[map[string][]domain.ChatMessage](ctx, t, domain.PartitionChats)
		if err != nil {
			return err
		}
		if _, ok := chats[id]; ok {
			delete(chats, id)
			return t.put(domain.PartitionChats, chats)
		}
		return nil
	})
}

func pendingRequest(ctx context.Context, t *tx, id string) ([]domain.DataRequest, int, error) {
	requests, err := get[[]domain.DataRequest](ctx, t, domain.PartitionRequests)
	if err != nil {
		return nil, -1, err
	}
	i := indexOf(requests, func(r domain.DataRequest) bool { return r.ID == id })
	if i < 0 {
		return nil, -1, domain.ErrNotFound
	}
	if requests[i].Status != domain.StatusPending {
		return nil, -1, domain.ErrRequestNotPending
	}
	return requests, i, nil
}
