package database

import (
	"github.com/stretchr/testify/mock"
)

type MockMessagingRepository struct {
	mock.Mock
}

func (m *MockMessagingRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockMessagingRepository) GetUserById(id int) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMessagingRepository) ListConversations(userId int) ([]ConversationWithMeta, error) {
	args := m.Called(userId)
	if convs, ok := args.Get(0).([]ConversationWithMeta); ok {
		return convs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessagingRepository) IsParticipant(conversationId string, userId int) (bool, error) {
	args := m.Called(conversationId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockMessagingRepository) SaveMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockMessagingRepository) GetMessages(conversationId string, offset, limit int) ([]Message, error) {
	args := m.Called(conversationId, offset, limit)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessagingRepository) MarkMessagesRead(conversationId string, userId int) error {
	args := m.Called(conversationId, userId)
	return args.Error(0)
}
func (m *MockMessagingRepository) ResetUnreadCount(conversationId string, userId int) error {
	args := m.Called(conversationId, userId)
	return args.Error(0)
}
func (m *MockMessagingRepository) DeleteMessage(messageId string, senderId int) (string, bool, error) {
	args := m.Called(messageId, senderId)
	return args.String(0), args.Bool(1), args.Error(2)
}
func (m *MockMessagingRepository) EditMessage(messageId string, senderId int, content string) (string, bool, error) {
	args := m.Called(messageId, senderId, content)
	return args.String(0), args.Bool(1), args.Error(2)
}
