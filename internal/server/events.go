package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nebulacoach/nebula-messaging/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the closed set of inbound commands. Exactly one
// payload field is set per message; the dispatcher switches over the
// fields exhaustively, so adding a command is a compile-time-checked
// change rather than a string lookup.
type ClientMessage struct {
	BaseMessage
	LoadConversations *LoadConversations `json:"load_conversations,omitempty"`
	JoinConversation  *JoinConversation  `json:"join_conversation,omitempty"`
	LeaveConversation *LeaveConversation `json:"leave_conversation,omitempty"`
	LoadMessages      *LoadMessages      `json:"load_messages,omitempty"`
	SendMessage       *SendMessage       `json:"send_message,omitempty"`
	MarkRead          *MarkRead          `json:"mark_read,omitempty"`
	DeleteMessage     *DeleteMessage     `json:"delete_message,omitempty"`
	EditMessage       *EditMessage       `json:"edit_message,omitempty"`
}

type LoadConversations struct{}

type JoinConversation struct {
	ConversationId string `json:"conversation_id"`
}

type LeaveConversation struct {
	ConversationId string `json:"conversation_id"`
}

type LoadMessages struct {
	ConversationId string `json:"conversation_id"`
	Page           int    `json:"page,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

type SendMessage struct {
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
	Type           string `json:"type,omitempty"`
}

type MarkRead struct {
	ConversationId string `json:"conversation_id"`
}

type DeleteMessage struct {
	MessageId string `json:"message_id"`
}

type EditMessage struct {
	MessageId string `json:"message_id"`
	Content   string `json:"content"`
}

// ServerMessage is the closed set of outbound events. Error events are
// always delivered to the requesting socket only; new_message,
// message_deleted and message_edited fan out to the conversation room.
type ServerMessage struct {
	BaseMessage
	Response            *Response            `json:"response,omitempty"`
	ConversationsLoaded *ConversationsLoaded `json:"conversations_loaded,omitempty"`
	MessagesLoaded      *MessagesLoaded      `json:"messages_loaded,omitempty"`
	NewMessage          *types.Message       `json:"new_message,omitempty"`
	MessageDeleted      *MessageDeleted      `json:"message_deleted,omitempty"`
	MessageEdited       *MessageEdited       `json:"message_edited,omitempty"`
	Error               *Error               `json:"error,omitempty"`
}

type Response struct {
	ResponseCode int `json:"response_code"`
}

type ConversationsLoaded struct {
	Conversations []types.ConversationSummary `json:"conversations"`
}

type MessagesLoaded struct {
	ConversationId string          `json:"conversation_id"`
	Messages       []types.Message `json:"messages"`
	HasMore        bool            `json:"has_more"`
}

type MessageDeleted struct {
	MessageId      string `json:"message_id"`
	ConversationId string `json:"conversation_id"`
}

type MessageEdited struct {
	MessageId      string `json:"message_id"`
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
}

type Error struct {
	Message string `json:"message"`
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

func NoErrOK(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrAuthRequired(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Error: &Error{
			Message: "Authentication required",
		},
	}
}

func ErrNotAuthorized(id int, action string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Error: &Error{
			Message: fmt.Sprintf("Not authorized to %s", action),
		},
	}
}

// ErrOperationFailed is the generic failure event. Internal detail is
// logged server-side; only the operation name reaches the wire.
func ErrOperationFailed(id int, what string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Error: &Error{
			Message: what,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Error: &Error{
			Message: "Invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}
