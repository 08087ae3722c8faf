package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/nebulacoach/nebula-messaging/internal/chat"
	"github.com/nebulacoach/nebula-messaging/internal/config"
	"github.com/nebulacoach/nebula-messaging/internal/database"
	"github.com/nebulacoach/nebula-messaging/internal/server"
	"github.com/nebulacoach/nebula-messaging/internal/stats"
	"github.com/nebulacoach/nebula-messaging/internal/testutil"
	"github.com/nebulacoach/nebula-messaging/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		db.On("Ping").Return(nil).Once()
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		w := httptest.NewRecorder()
		app.healthz(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code, "expected status 200")

		var body map[string]string
		err := json.NewDecoder(w.Body).Decode(&body)
		assert.NoError(t, err, "expected a json body")
		assert.Equal(t, "ok", body["status"], "expected status ok")
	})

	t.Run("store unreachable", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		db.On("Ping").Return(errors.New("connection refused")).Once()
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		w := httptest.NewRecorder()
		app.healthz(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "expected status 503")
	})
}

// newWsTestServer stands up the full websocket surface: chat server,
// services, app, all backed by the given repository mock.
func newWsTestServer(t *testing.T, db database.MessagingRepository) *httptest.Server {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(5)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	logger := testutil.TestLogger(t)
	cs, err := server.NewChatServer(
		logger,
		chat.NewConversationService(logger, db),
		chat.NewMessageService(logger, db),
		su,
	)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}

	cfg, err := config.NewConfig(
		"localhost:8080",
		"postgres://localhost/messaging",
		base64.StdEncoding.EncodeToString(testSigningKey),
		[]string{"http://localhost:3000"},
	)
	if err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	app := NewMessagingApp(http.NewServeMux(), logger, cs, db, cfg)

	srv := httptest.NewServer(http.HandlerFunc(app.serveWs))
	t.Cleanup(srv.Close)
	return srv
}

func dialWs(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token != "" {
		url += "?token=" + token
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) *server.ServerMessage {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read server message: %v", err)
	}

	var msg server.ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("failed to parse server message: %v", err)
	}
	return &msg
}

func TestServeWs(t *testing.T) {
	t.Run("authenticated session serves commands", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		db.On("GetUserById", 1).Return(database.User{
			Id:     1,
			Name:   "alice",
			Status: types.StatusActive,
		}, nil).Once()
		db.On("ListConversations", 1).Return([]database.ConversationWithMeta{}, nil).Once()
		defer db.AssertExpectations(t)

		srv := newWsTestServer(t, db)
		token := signToken(t, testSigningKey, jwt.MapClaims{
			userIdClaim: 1,
			"exp":       time.Now().Add(time.Hour).Unix(),
		})

		conn := dialWs(t, srv, token)
		err := conn.WriteJSON(map[string]interface{}{
			"id":                 1,
			"load_conversations": map[string]interface{}{},
		})
		assert.NoError(t, err, "expected the command to be written")

		reply := readServerMessage(t, conn)
		assert.Nil(t, reply.Error, "expected no error event")
		if assert.NotNil(t, reply.ConversationsLoaded, "expected a conversations_loaded event") {
			assert.Empty(t, reply.ConversationsLoaded.Conversations, "expected no conversations")
		}
	})

	t.Run("missing token still connects, commands are refused", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)

		srv := newWsTestServer(t, db)
		conn := dialWs(t, srv, "")

		err := conn.WriteJSON(map[string]interface{}{
			"id":                 1,
			"load_conversations": map[string]interface{}{},
		})
		assert.NoError(t, err, "expected the command to be written")

		reply := readServerMessage(t, conn)
		if assert.NotNil(t, reply.Error, "expected an error event on the open socket") {
			assert.Equal(t, "Authentication required", reply.Error.Message, "expected the authentication error")
		}
	})

	t.Run("invalid token still connects", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)

		srv := newWsTestServer(t, db)
		conn := dialWs(t, srv, "not-a-jwt")

		err := conn.WriteJSON(map[string]interface{}{
			"id":        2,
			"mark_read": map[string]interface{}{"conversation_id": "c1"},
		})
		assert.NoError(t, err, "expected the command to be written")

		reply := readServerMessage(t, conn)
		if assert.NotNil(t, reply.Error, "expected an error event on the open socket") {
			assert.Equal(t, "Authentication required", reply.Error.Message, "expected the authentication error")
		}
	})

	t.Run("malformed frame is rejected without closing", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)

		srv := newWsTestServer(t, db)
		conn := dialWs(t, srv, "")

		err := conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		assert.NoError(t, err, "expected the frame to be written")

		reply := readServerMessage(t, conn)
		if assert.NotNil(t, reply.Error, "expected an error event") {
			assert.Equal(t, "Invalid message format", reply.Error.Message, "expected the malformed message error")
		}

		// the socket survives a bad frame
		err = conn.WriteJSON(map[string]interface{}{
			"id":                 3,
			"load_conversations": map[string]interface{}{},
		})
		assert.NoError(t, err, "expected a follow-up command to be written")

		reply = readServerMessage(t, conn)
		assert.NotNil(t, reply.Error, "expected the follow-up to be refused as unauthenticated")
	})
}
