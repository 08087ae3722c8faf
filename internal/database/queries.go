package database

import (
	"database/sql"
	"fmt"
)

func (db *PgMessagingRepository) GetUserById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, role, status FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Name,
		&user.Role,
		&user.Status,
	)

	return user, err
}

func (db *PgMessagingRepository) ListConversations(userId int) ([]ConversationWithMeta, error) {
	query := `
		SELECT
				c.id,
				c.type,
				c.is_active,
				c.last_message,
				c.last_message_time,
				c.updated_at,
				p.unread_count,
				op.user_id,
				u.name
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = $1
		JOIN conversation_participants op ON op.conversation_id = c.id
		JOIN users u ON u.id = op.user_id
		WHERE c.is_active = TRUE
		ORDER BY c.updated_at DESC, c.id, op.user_id;
`

	rows, err := db.conn.Query(query, userId)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var (
		conversations []ConversationWithMeta
		current       *ConversationWithMeta
	)
	for rows.Next() {
		var (
			conv            Conversation
			lastMessage     sql.NullString
			lastMessageTime sql.NullTime
			unreadCount     int
			participantId   int
			participantName string
		)

		err := rows.Scan(
			&conv.Id,
			&conv.Type,
			&conv.IsActive,
			&lastMessage,
			&lastMessageTime,
			&conv.UpdatedAt,
			&unreadCount,
			&participantId,
			&participantName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		conv.LastMessage = lastMessage.String
		conv.LastMessageTime = lastMessageTime.Time

		if current == nil || current.Id != conv.Id {
			conversations = append(conversations, ConversationWithMeta{
				Conversation: conv,
				UnreadCount:  unreadCount,
			})
			current = &conversations[len(conversations)-1]
		}

		current.Participants = append(current.Participants, Participant{
			ConversationId: conv.Id,
			UserId:         participantId,
			Name:           participantName,
			UnreadCount:    unreadCount,
		})
	}

	return conversations, rows.Err()
}

func (db *PgMessagingRepository) IsParticipant(conversationId string, userId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM conversation_participants "+
			"WHERE conversation_id = $1 AND user_id = $2)",
		conversationId,
		userId,
	)

	var exists bool
	err := row.Scan(&exists)

	return exists, err
}

// SaveMessage persists a message and applies the conversation
// side-effects in a single transaction: the denormalized last-message
// cache and the unread counter of every participant except the sender.
// The unread increment runs in SQL so concurrent sends cannot lose
// updates.
func (db *PgMessagingRepository) SaveMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res := tx.QueryRow(
		"INSERT INTO messages (id, conversation_id, sender_id, content, type, is_read, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, FALSE, $6) "+
			"RETURNING id, conversation_id, sender_id, content, type, is_read, is_edited, created_at",
		params.Id,
		params.ConversationId,
		params.SenderId,
		params.Content,
		params.Type,
		params.CreatedAt,
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.ConversationId,
		&msg.SenderId,
		&msg.Content,
		&msg.Type,
		&msg.IsRead,
		&msg.IsEdited,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.Exec(
		"UPDATE conversations SET last_message = $2, last_message_time = $3, updated_at = $3 "+
			"WHERE id = $1",
		params.ConversationId,
		params.Content,
		params.CreatedAt,
	)
	if err != nil {
		return Message{}, fmt.Errorf("update conversation: %w", err)
	}

	_, err = tx.Exec(
		"UPDATE conversation_participants SET unread_count = unread_count + 1 "+
			"WHERE conversation_id = $1 AND user_id <> $2",
		params.ConversationId,
		params.SenderId,
	)
	if err != nil {
		return Message{}, fmt.Errorf("increment unread counts: %w", err)
	}

	row := tx.QueryRow("SELECT name FROM users WHERE id = $1", params.SenderId)
	if err := row.Scan(&msg.SenderName); err != nil {
		return Message{}, fmt.Errorf("resolve sender: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("commit tx: %w", err)
	}

	return msg, nil
}

func (db *PgMessagingRepository) GetMessages(conversationId string, offset, limit int) ([]Message, error) {
	query := `
		SELECT
				m.id,
				m.conversation_id,
				m.sender_id,
				u.name,
				m.content,
				m.type,
				m.is_read,
				m.is_edited,
				m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1 AND m.is_deleted = FALSE
		ORDER BY m.created_at ASC, m.id ASC
		OFFSET $2 LIMIT $3;
`

	rows, err := db.conn.Query(query, conversationId, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		err := rows.Scan(
			&msg.Id,
			&msg.ConversationId,
			&msg.SenderId,
			&msg.SenderName,
			&msg.Content,
			&msg.Type,
			&msg.IsRead,
			&msg.IsEdited,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgMessagingRepository) MarkMessagesRead(conversationId string, userId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET is_read = TRUE "+
			"WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE",
		conversationId,
		userId,
	)

	return err
}

func (db *PgMessagingRepository) ResetUnreadCount(conversationId string, userId int) error {
	_, err := db.conn.Exec(
		"UPDATE conversation_participants SET unread_count = 0 "+
			"WHERE conversation_id = $1 AND user_id = $2",
		conversationId,
		userId,
	)

	return err
}

// DeleteMessage soft-deletes a message if senderId authored it and
// returns the owning conversation id. The not-found and not-owner cases
// both report false so callers cannot distinguish them.
func (db *PgMessagingRepository) DeleteMessage(messageId string, senderId int) (string, bool, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET is_deleted = TRUE "+
			"WHERE id = $1 AND sender_id = $2 AND is_deleted = FALSE "+
			"RETURNING conversation_id",
		messageId,
		senderId,
	)

	var conversationId string
	err := row.Scan(&conversationId)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return conversationId, true, nil
}

func (db *PgMessagingRepository) EditMessage(messageId string, senderId int, content string) (string, bool, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET content = $3, is_edited = TRUE "+
			"WHERE id = $1 AND sender_id = $2 AND is_deleted = FALSE "+
			"RETURNING conversation_id",
		messageId,
		senderId,
		content,
	)

	var conversationId string
	err := row.Scan(&conversationId)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return conversationId, true, nil
}
