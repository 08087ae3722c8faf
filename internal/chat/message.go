package chat

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nebulacoach/nebula-messaging/internal/database"
	"github.com/nebulacoach/nebula-messaging/internal/types"
)

const (
	DefaultPageSize = 50
	maxPageSize     = 200

	sentAtFormat = "Jan 2, 2006 3:04 PM"
)

// MessageService owns message persistence, pagination, read-state
// transitions and edit/delete.
type MessageService struct {
	log *log.Logger
	db  database.MessagingRepository
}

func NewMessageService(logger *log.Logger, db database.MessagingRepository) *MessageService {
	return &MessageService{
		log: logger,
		db:  db,
	}
}

// Now returns the current time the way it is persisted: UTC, millisecond
// precision.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

// GetMessages returns one page of non-deleted messages in ascending
// creation order, formatted for the requesting user. It fetches one row
// beyond the page to compute an exact hasMore signal.
func (s *MessageService) GetMessages(conversationId string, requesterId, page, limit int) ([]types.Message, bool, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := (page - 1) * limit
	rows, err := s.db.GetMessages(conversationId, offset, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load messages: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	messages := make([]types.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, formatMessage(row, requesterId))
	}

	return messages, hasMore, nil
}

// CreateMessage persists a new message together with its conversation
// side-effects (last-message cache, unread counters) in one store
// transaction, and returns it shaped for the new_message broadcast.
func (s *MessageService) CreateMessage(conversationId string, senderId int, content, msgType string) (types.Message, error) {
	if content == "" {
		return types.Message{}, fmt.Errorf("message content cannot be empty")
	}

	if msgType == "" {
		msgType = types.MessageText
	}
	if !types.ValidMessageType(msgType) {
		return types.Message{}, fmt.Errorf("invalid message type %q", msgType)
	}

	msg, err := s.db.SaveMessage(database.CreateMessageParams{
		Id:             uuid.NewString(),
		ConversationId: conversationId,
		SenderId:       senderId,
		Content:        content,
		Type:           msgType,
		CreatedAt:      Now(),
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("failed to save message: %w", err)
	}

	return formatMessage(msg, senderId), nil
}

// MarkMessagesRead flips is_read on every message in the conversation
// not authored by the user. Idempotent; a no-op when nothing matches.
func (s *MessageService) MarkMessagesRead(conversationId string, userId int) error {
	if err := s.db.MarkMessagesRead(conversationId, userId); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	return nil
}

// DeleteMessage soft-deletes the message if userId is its sender and
// returns the owning conversation id for the room broadcast. The false
// return covers both "not found" and "not the sender" so callers cannot
// probe for existence.
func (s *MessageService) DeleteMessage(messageId string, userId int) (string, bool, error) {
	conversationId, ok, err := s.db.DeleteMessage(messageId, userId)
	if err != nil {
		return "", false, fmt.Errorf("failed to delete message: %w", err)
	}

	return conversationId, ok, nil
}

// EditMessage updates the content and sets is_edited, with the same
// ownership gate and false-on-no-match semantics as DeleteMessage.
func (s *MessageService) EditMessage(messageId string, userId int, content string) (string, bool, error) {
	if content == "" {
		return "", false, fmt.Errorf("message content cannot be empty")
	}

	conversationId, ok, err := s.db.EditMessage(messageId, userId, content)
	if err != nil {
		return "", false, fmt.Errorf("failed to edit message: %w", err)
	}

	return conversationId, ok, nil
}

func formatMessage(msg database.Message, requesterId int) types.Message {
	return types.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		SenderId:       msg.SenderId,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		Type:           msg.Type,
		SentAt:         msg.CreatedAt.Format(sentAtFormat),
		Timestamp:      msg.CreatedAt,
		IsMe:           msg.SenderId == requesterId,
		IsRead:         msg.IsRead,
		IsEdited:       msg.IsEdited,
	}
}
