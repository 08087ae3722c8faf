package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/nebulacoach/nebula-messaging/internal/database"
	"github.com/nebulacoach/nebula-messaging/internal/testutil"
	"github.com/nebulacoach/nebula-messaging/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestListForUser(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)

	direct := database.ConversationWithMeta{
		Conversation: database.Conversation{
			Id:              "c1",
			Type:            types.ConversationDirect,
			IsActive:        true,
			LastMessage:     "see you tomorrow",
			LastMessageTime: now,
			UpdatedAt:       now,
		},
		UnreadCount: 3,
		Participants: []database.Participant{
			{ConversationId: "c1", UserId: 1, Name: "alice"},
			{ConversationId: "c1", UserId: 2, Name: "bob"},
		},
	}

	group := database.ConversationWithMeta{
		Conversation: database.Conversation{
			Id:        "c2",
			Type:      types.ConversationGroup,
			IsActive:  true,
			UpdatedAt: now.Add(-time.Hour),
		},
		Participants: []database.Participant{
			{ConversationId: "c2", UserId: 1, Name: "alice"},
			{ConversationId: "c2", UserId: 2, Name: "bob"},
			{ConversationId: "c2", UserId: 3, Name: "carol"},
		},
	}

	t.Run("formats direct and group conversations", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)
		db.On("ListConversations", 1).Return([]database.ConversationWithMeta{direct, group}, nil).Once()

		svc := NewConversationService(testutil.TestLogger(t), db)
		summaries, err := svc.ListForUser(1)
		assert.NoError(t, err, "expected no error listing conversations")
		assert.Len(t, summaries, 2, "expected two conversations")

		assert.Equal(t, "c1", summaries[0].Id, "expected most recently updated conversation first")
		assert.Equal(t, "bob", summaries[0].DisplayName, "expected counterpart name for direct conversation")
		assert.Equal(t, "see you tomorrow", summaries[0].LastMessage, "expected last message to be carried over")
		assert.Equal(t, 3, summaries[0].UnreadCount, "expected caller's unread count")

		assert.Equal(t, "bob, carol", summaries[1].DisplayName, "expected joined names for group conversation")
		assert.Equal(t, 0, summaries[1].UnreadCount, "expected zero unread count")
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)
		db.On("ListConversations", 1).Return(nil, errors.New("db error")).Once()

		svc := NewConversationService(testutil.TestLogger(t), db)
		summaries, err := svc.ListForUser(1)
		assert.Error(t, err, "expected error from repository to propagate")
		assert.ErrorContains(t, err, "failed to load conversations", "expected domain-level error message")
		assert.Nil(t, summaries, "expected no summaries on error")
	})

	t.Run("returns empty slice for no conversations", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)
		db.On("ListConversations", 1).Return([]database.ConversationWithMeta{}, nil).Once()

		svc := NewConversationService(testutil.TestLogger(t), db)
		summaries, err := svc.ListForUser(1)
		assert.NoError(t, err, "expected no error for empty list")
		assert.Empty(t, summaries, "expected no summaries")
	})
}

func TestIsParticipant(t *testing.T) {
	tcases := []struct {
		name     string
		mockOk   bool
		mockErr  error
		expected bool
	}{
		{
			name:     "user is a participant",
			mockOk:   true,
			expected: true,
		},
		{
			name:     "user is not a participant",
			mockOk:   false,
			expected: false,
		},
		{
			name:     "lookup error fails closed",
			mockOk:   false,
			mockErr:  errors.New("db error"),
			expected: false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockMessagingRepository{}
			defer db.AssertExpectations(t)
			db.On("IsParticipant", "c1", 1).Return(tc.mockOk, tc.mockErr).Once()

			svc := NewConversationService(testutil.TestLogger(t), db)
			assert.Equal(t, tc.expected, svc.IsParticipant("c1", 1), "expected participant check result to match")
		})
	}
}

func TestMarkRead(t *testing.T) {
	t.Run("resets unread count", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)
		db.On("ResetUnreadCount", "c1", 1).Return(nil).Once()

		svc := NewConversationService(testutil.TestLogger(t), db)
		assert.NoError(t, svc.MarkRead("c1", 1), "expected no error marking read")
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)
		db.On("ResetUnreadCount", "c1", 1).Return(nil).Twice()

		svc := NewConversationService(testutil.TestLogger(t), db)
		assert.NoError(t, svc.MarkRead("c1", 1), "expected no error on first mark read")
		assert.NoError(t, svc.MarkRead("c1", 1), "expected no error on second mark read")
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		db := &database.MockMessagingRepository{}
		defer db.AssertExpectations(t)
		db.On("ResetUnreadCount", "c1", 1).Return(errors.New("db error")).Once()

		svc := NewConversationService(testutil.TestLogger(t), db)
		err := svc.MarkRead("c1", 1)
		assert.ErrorContains(t, err, "failed to mark conversation read", "expected domain-level error message")
	})
}

func Test_displayName(t *testing.T) {
	tcases := []struct {
		name     string
		conv     database.ConversationWithMeta
		userId   int
		expected string
	}{
		{
			name: "direct conversation uses counterpart name",
			conv: database.ConversationWithMeta{
				Conversation: database.Conversation{Type: types.ConversationDirect},
				Participants: []database.Participant{
					{UserId: 1, Name: "alice"},
					{UserId: 2, Name: "bob"},
				},
			},
			userId:   1,
			expected: "bob",
		},
		{
			name: "support conversation joins other participants",
			conv: database.ConversationWithMeta{
				Conversation: database.Conversation{Type: types.ConversationSupport},
				Participants: []database.Participant{
					{UserId: 1, Name: "alice"},
					{UserId: 2, Name: "bob"},
					{UserId: 3, Name: "carol"},
				},
			},
			userId:   1,
			expected: "bob, carol",
		},
		{
			name: "no other participants falls back to generic title",
			conv: database.ConversationWithMeta{
				Conversation: database.Conversation{Type: types.ConversationDirect},
				Participants: []database.Participant{
					{UserId: 1, Name: "alice"},
				},
			},
			userId:   1,
			expected: "Conversation",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, displayName(tc.conv, tc.userId), "expected display name to match")
		})
	}
}
