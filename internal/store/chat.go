package store

import (
	"context"
	"fmt"
	"strings"

	"optigov.org/internal/domain"
)

// AddChatMessage appends msg to the thread of requestID. The request must
// exist.
func (s *Store) AddChatMessage(ctx context.Context, requestID string, msg domain.ChatMessage) (domain.ChatMessage, error) {
	msg.Message = strings.TrimSpace(msg.Message)
	if strings.TrimSpace(msg.Sender) == "" || msg.Message == "" || !msg.SenderRole.Valid() {
		return domain.ChatMessage{}, fmt.Errorf("%w: sender, role and message are required", domain.ErrInvalidInput)
	}
	msg.ID = s.newID()
	msg.Timestamp = s.clock()

	err := s.update(ctx, "add_chat_message", func(t *tx) error {
		requests, err := get[[]domain.DataRequest](ctx, t, domain.PartitionRequests)
		if err != nil {
			return err
		}
		if indexOf(requests, func(r domain.DataRequest) bool { return r.ID == requestID }) < 0 {
			return domain.ErrNotFound
		}
		chats, err := get[map[string][]domain.ChatMessage](ctx, t, domain.PartitionChats)
		if err != nil {
			return err
		}
		if chats == nil {
			chats = make(map[string][]domain.ChatMessage)
		}
		chats[requestID] = append(chats[requestID], msg)
		return t.put(domain.PartitionChats, chats)
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// GetChatMessages returns the thread of requestID in posting order.
func (s *Store) GetChatMessages(ctx context.Context, requestID string) ([]domain.ChatMessage, error) {
	chats, err := get[map[string][]domain.ChatMessage](ctx, s, domain.PartitionChats)
	if err != nil {
		return nil, err
	}
	return filter(chats[requestID], func(domain.ChatMessage) bool { return true }), nil
}
