package chat

import (
	"fmt"
	"log"
	"strings"

	"github.com/nebulacoach/nebula-messaging/internal/database"
	"github.com/nebulacoach/nebula-messaging/internal/types"
)

// ConversationService owns conversation membership checks and the
// per-user unread bookkeeping. The participant set itself is immutable
// in this service; it is created by an external flow.
type ConversationService struct {
	log *log.Logger
	db  database.MessagingRepository
}

func NewConversationService(logger *log.Logger, db database.MessagingRepository) *ConversationService {
	return &ConversationService{
		log: logger,
		db:  db,
	}
}

// ListForUser returns every active conversation the user participates
// in, most recently updated first, annotated with a display name, the
// last message and the user's own unread count.
func (s *ConversationService) ListForUser(userId int) ([]types.ConversationSummary, error) {
	conversations, err := s.db.ListConversations(userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	summaries := make([]types.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, types.ConversationSummary{
			Id:              conv.Id,
			Type:            conv.Type,
			DisplayName:     displayName(conv, userId),
			LastMessage:     conv.LastMessage,
			LastMessageTime: conv.LastMessageTime,
			UnreadCount:     conv.UnreadCount,
			UpdatedAt:       conv.UpdatedAt,
		})
	}

	return summaries, nil
}

// IsParticipant is the authorization primitive for every
// conversation-scoped command. It fails closed: a lookup error counts
// as "not a participant".
func (s *ConversationService) IsParticipant(conversationId string, userId int) bool {
	ok, err := s.db.IsParticipant(conversationId, userId)
	if err != nil {
		s.log.Printf("participant lookup for conversation %q: %v", conversationId, err)
		return false
	}

	return ok
}

// MarkRead resets the user's unread counter for the conversation to
// zero. Idempotent.
func (s *ConversationService) MarkRead(conversationId string, userId int) error {
	if err := s.db.ResetUnreadCount(conversationId, userId); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}

	return nil
}

// displayName renders a conversation title for one user. A DIRECT
// conversation shows the single counterpart's name; GROUP and SUPPORT
// conversations list all other participants.
func displayName(conv database.ConversationWithMeta, userId int) string {
	var others []string
	for _, p := range conv.Participants {
		if p.UserId != userId {
			others = append(others, p.Name)
		}
	}

	if len(others) == 0 {
		return "Conversation"
	}

	if conv.Type == types.ConversationDirect {
		return others[0]
	}

	return strings.Join(others, ", ")
}
