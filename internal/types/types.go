package types

import (
	"time"
)

const StatusActive = "ACTIVE"

// Conversation types.
const (
	ConversationDirect  = "DIRECT"
	ConversationGroup   = "GROUP"
	ConversationSupport = "SUPPORT"
)

// Message content types.
const (
	MessageText  = "TEXT"
	MessageImage = "IMAGE"
	MessageFile  = "FILE"
	MessageLink  = "LINK"
)

// User is the read-only snapshot of a user owned by the external
// identity system. Only users with Status == StatusActive may
// authenticate.
type User struct {
	Id     int    `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Status string `json:"-"`
}

// ConversationSummary is a conversation formatted for the
// conversations_loaded event, annotated for one particular user.
type ConversationSummary struct {
	Id              string    `json:"id"`
	Type            string    `json:"type"`
	DisplayName     string    `json:"display_name"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastMessageTime time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int       `json:"unread_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Message is a message formatted for wire delivery. IsMe is computed
// relative to the receiving connection at delivery time, so a single
// broadcast yields IsMe=true for the sender's own sockets and false
// for everyone else's.
type Message struct {
	Id             string    `json:"id"`
	ConversationId string    `json:"conversation_id"`
	SenderId       int       `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	SentAt         string    `json:"sent_at"`
	Timestamp      time.Time `json:"timestamp"`
	IsMe           bool      `json:"is_me"`
	IsRead         bool      `json:"is_read"`
	IsEdited       bool      `json:"is_edited"`
}

// ValidMessageType reports whether t is one of the supported message
// content types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageLink:
		return true
	default:
		return false
	}
}
