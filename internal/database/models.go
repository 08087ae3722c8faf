package database

import "time"

// User mirrors the identity system's user row. It is read-only in this
// service; writes happen in an external system.
type User struct {
	Id     int
	Name   string
	Role   string
	Status string
}

type Conversation struct {
	Id              string
	Type            string
	IsActive        bool
	LastMessage     string
	LastMessageTime time.Time
	UpdatedAt       time.Time
}

// Participant is one row of the persisted membership set. Membership is
// immutable here; only UnreadCount is mutated by this service.
type Participant struct {
	ConversationId string
	UserId         int
	Name           string
	UnreadCount    int
}

type Message struct {
	Id             string
	ConversationId string
	SenderId       int
	SenderName     string
	Content        string
	Type           string
	IsRead         bool
	IsEdited       bool
	IsDeleted      bool
	CreatedAt      time.Time
}

// ConversationWithMeta is a conversation annotated for a single user:
// their unread counter plus the full participant list for display-name
// computation.
type ConversationWithMeta struct {
	Conversation
	UnreadCount  int
	Participants []Participant
}

type CreateMessageParams struct {
	Id             string
	ConversationId string
	SenderId       int
	Content        string
	Type           string
	CreatedAt      time.Time
}
