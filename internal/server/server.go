package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nebulacoach/nebula-messaging/internal/chat"
	"github.com/nebulacoach/nebula-messaging/internal/stats"
)

// Broadcaster is the capability to push an event to every socket
// currently joined to a conversation's room. Components that need to
// fan out events take this interface as an explicit dependency; there
// is no process-wide server handle.
type Broadcaster interface {
	EmitToRoom(conversationId string, msg *ServerMessage)
}

// ChatServer routes inbound socket commands to the conversation and
// message services and fans outbound events out to rooms. A room is a
// transport-level broadcast group keyed by conversation id, layered on
// top of (and never mutating) the persisted participant set.
type ChatServer struct {
	log           *log.Logger
	stats         stats.StatsProvider
	conversations *chat.ConversationService
	messages      *chat.MessageService

	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	rooms     map[string]map[*Client]struct{}
	roomsLock sync.RWMutex
}

func NewChatServer(logger *log.Logger, conversations *chat.ConversationService, messages *chat.MessageService, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:           logger,
		stats:         su,
		conversations: conversations,
		messages:      messages,
		clients:       make(map[*Client]struct{}),
		rooms:         make(map[string]map[*Client]struct{}),
	}

	for _, metric := range []string{
		"NumActiveConnections",
		"NumAuthenticatedSessions",
		"NumActiveRooms",
		"MessagesSent",
		"MessagesDelivered",
	} {
		su.RegisterMetric(metric)
	}

	return cs, nil
}

var _ Broadcaster = (*ChatServer)(nil)

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	cs.clients[c] = struct{}{}
	cs.stats.Incr("NumActiveConnections")
	if c.authenticated {
		cs.stats.Incr("NumAuthenticatedSessions")
	}
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; !ok {
		return
	}

	delete(cs.clients, c)
	cs.stats.Decr("NumActiveConnections")
	if c.authenticated {
		cs.stats.Decr("NumAuthenticatedSessions")
	}
}

// joinRoom subscribes the socket to the conversation's broadcast room.
// Purely transport-level: the persisted participant list is untouched.
func (cs *ChatServer) joinRoom(conversationId string, c *Client) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	room := cs.rooms[conversationId]
	if room == nil {
		room = make(map[*Client]struct{})
		cs.rooms[conversationId] = room
		cs.stats.Incr("NumActiveRooms")
	}
	room[c] = struct{}{}

	c.addRoom(conversationId)
}

func (cs *ChatServer) leaveRoom(conversationId string, c *Client) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	cs.leaveRoomLocked(conversationId, c)
}

func (cs *ChatServer) leaveRoomLocked(conversationId string, c *Client) {
	room, ok := cs.rooms[conversationId]
	if !ok {
		return
	}

	delete(room, c)
	c.delRoom(conversationId)

	if len(room) == 0 {
		delete(cs.rooms, conversationId)
		cs.stats.Decr("NumActiveRooms")
	}
}

func (cs *ChatServer) leaveAllRooms(c *Client) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	for _, id := range c.roomIds() {
		cs.leaveRoomLocked(id, c)
	}
}

// EmitToRoom delivers msg to every socket joined to the conversation's
// room, the sender's own other connections included. For new_message
// events the per-viewer IsMe flag is computed here, so each receiving
// connection sees the message relative to its own session user.
func (cs *ChatServer) EmitToRoom(conversationId string, msg *ServerMessage) {
	cs.roomsLock.RLock()
	defer cs.roomsLock.RUnlock()

	for c := range cs.rooms[conversationId] {
		out := msg
		if msg.NewMessage != nil {
			personalized := *msg
			view := *msg.NewMessage
			view.IsMe = c.authenticated && view.SenderId == c.user.Id
			personalized.NewMessage = &view
			out = &personalized
		}

		if c.queueMessage(out) {
			cs.stats.Incr("MessagesDelivered")
		}
	}
}

// RoomSize reports how many sockets are currently joined to the room.
func (cs *ChatServer) RoomSize(conversationId string) int {
	cs.roomsLock.RLock()
	defer cs.roomsLock.RUnlock()

	return len(cs.rooms[conversationId])
}

// Shutdown stops every client and waits for them to deregister, or
// gives up when ctx expires.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
		if c.conn != nil {
			c.conn.Close()
		}
	}
	cs.clientsLock.Unlock()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cs.clientsLock.Lock()
			remaining := len(cs.clients)
			cs.clientsLock.Unlock()
			if remaining == 0 {
				return nil
			}
		}
	}
}
