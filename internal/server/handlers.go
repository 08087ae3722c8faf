package server

// dispatch routes one inbound command to its handler. The switch over
// the union fields is exhaustive; an envelope with no recognized
// payload is rejected as malformed.
func (cs *ChatServer) dispatch(c *Client, msg *ClientMessage) {
	switch {
	case msg.LoadConversations != nil:
		cs.handleLoadConversations(c, msg)
	case msg.JoinConversation != nil:
		cs.handleJoinConversation(c, msg)
	case msg.LeaveConversation != nil:
		cs.handleLeaveConversation(c, msg)
	case msg.LoadMessages != nil:
		cs.handleLoadMessages(c, msg)
	case msg.SendMessage != nil:
		cs.handleSendMessage(c, msg)
	case msg.MarkRead != nil:
		cs.handleMarkRead(c, msg)
	case msg.DeleteMessage != nil:
		cs.handleDeleteMessage(c, msg)
	case msg.EditMessage != nil:
		cs.handleEditMessage(c, msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

// requireAuth is the gate in front of every privileged command. The
// connection stays open either way; an unauthenticated session is
// refused per command, never dropped.
func (cs *ChatServer) requireAuth(c *Client, id int) bool {
	if !c.authenticated {
		c.queueMessage(ErrAuthRequired(id))
		return false
	}

	return true
}

// requireParticipant is the authorization gate for conversation-scoped
// commands. It runs after requireAuth and fails closed.
func (cs *ChatServer) requireParticipant(c *Client, id int, conversationId, action string) bool {
	if !cs.conversations.IsParticipant(conversationId, c.user.Id) {
		c.queueMessage(ErrNotAuthorized(id, action))
		return false
	}

	return true
}

func (cs *ChatServer) handleLoadConversations(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	summaries, err := cs.conversations.ListForUser(c.user.Id)
	if err != nil {
		cs.log.Printf("list conversations for user %d: %v", c.user.Id, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Failed to load conversations"))
		return
	}

	out := &ServerMessage{
		BaseMessage:         BaseMessage{Id: msg.Id, Timestamp: Now()},
		ConversationsLoaded: &ConversationsLoaded{Conversations: summaries},
	}
	c.queueMessage(out)
}

func (cs *ChatServer) handleJoinConversation(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}
	if !cs.requireParticipant(c, msg.Id, msg.JoinConversation.ConversationId, "join this conversation") {
		return
	}

	cs.joinRoom(msg.JoinConversation.ConversationId, c)
	c.queueMessage(NoErrOK(msg.Id))
}

func (cs *ChatServer) handleLeaveConversation(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	cs.leaveRoom(msg.LeaveConversation.ConversationId, c)
	c.queueMessage(NoErrOK(msg.Id))
}

func (cs *ChatServer) handleLoadMessages(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	req := msg.LoadMessages
	if !cs.requireParticipant(c, msg.Id, req.ConversationId, "view this conversation") {
		return
	}

	messages, hasMore, err := cs.messages.GetMessages(req.ConversationId, c.user.Id, req.Page, req.Limit)
	if err != nil {
		cs.log.Printf("load messages for conversation %q: %v", req.ConversationId, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Failed to load messages"))
		return
	}

	out := &ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		MessagesLoaded: &MessagesLoaded{
			ConversationId: req.ConversationId,
			Messages:       messages,
			HasMore:        hasMore,
		},
	}
	c.queueMessage(out)
}

// handleSendMessage persists the message together with its conversation
// side-effects (last-message cache, unread counters) and broadcasts the
// result to the room. The acting socket gets an ack; its copy of the
// broadcast arrives through the room like everyone else's.
func (cs *ChatServer) handleSendMessage(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	req := msg.SendMessage
	if !cs.requireParticipant(c, msg.Id, req.ConversationId, "send messages to this conversation") {
		return
	}

	created, err := cs.messages.CreateMessage(req.ConversationId, c.user.Id, req.Content, req.Type)
	if err != nil {
		cs.log.Printf("create message in conversation %q: %v", req.ConversationId, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Failed to send message"))
		return
	}

	cs.stats.Incr("MessagesSent")
	c.queueMessage(NoErrAccepted(msg.Id))

	cs.EmitToRoom(req.ConversationId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		NewMessage:  &created,
	})
}

// handleMarkRead resets the caller's unread counter and flips is_read
// on every message they did not author. Idempotent.
func (cs *ChatServer) handleMarkRead(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	req := msg.MarkRead
	if !cs.requireParticipant(c, msg.Id, req.ConversationId, "mark this conversation read") {
		return
	}

	if err := cs.conversations.MarkRead(req.ConversationId, c.user.Id); err != nil {
		cs.log.Printf("mark conversation %q read: %v", req.ConversationId, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Failed to mark conversation read"))
		return
	}

	if err := cs.messages.MarkMessagesRead(req.ConversationId, c.user.Id); err != nil {
		cs.log.Printf("mark messages read in conversation %q: %v", req.ConversationId, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Failed to mark conversation read"))
		return
	}

	c.queueMessage(NoErrOK(msg.Id))
}

// handleDeleteMessage soft-deletes one of the caller's own messages.
// Ownership is checked in the service by a sender-match lookup; "not
// found" and "not yours" are deliberately indistinguishable.
func (cs *ChatServer) handleDeleteMessage(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	req := msg.DeleteMessage
	conversationId, ok, err := cs.messages.DeleteMessage(req.MessageId, c.user.Id)
	if err != nil {
		cs.log.Printf("delete message %q: %v", req.MessageId, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Unable to delete message"))
		return
	}
	if !ok {
		c.queueMessage(ErrOperationFailed(msg.Id, "Unable to delete message"))
		return
	}

	c.queueMessage(NoErrOK(msg.Id))

	cs.EmitToRoom(conversationId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MessageDeleted: &MessageDeleted{
			MessageId:      req.MessageId,
			ConversationId: conversationId,
		},
	})
}

func (cs *ChatServer) handleEditMessage(c *Client, msg *ClientMessage) {
	if !cs.requireAuth(c, msg.Id) {
		return
	}

	req := msg.EditMessage
	conversationId, ok, err := cs.messages.EditMessage(req.MessageId, c.user.Id, req.Content)
	if err != nil {
		cs.log.Printf("edit message %q: %v", req.MessageId, err)
		c.queueMessage(ErrOperationFailed(msg.Id, "Unable to edit message"))
		return
	}
	if !ok {
		c.queueMessage(ErrOperationFailed(msg.Id, "Unable to edit message"))
		return
	}

	c.queueMessage(NoErrOK(msg.Id))

	cs.EmitToRoom(conversationId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MessageEdited: &MessageEdited{
			MessageId:      req.MessageId,
			ConversationId: conversationId,
			Content:        req.Content,
		},
	})
}
