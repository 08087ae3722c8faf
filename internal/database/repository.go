package database

type MessagingRepository interface {
	Ping() error
	GetUserById(id int) (User, error)
	ListConversations(userId int) ([]ConversationWithMeta, error)
	IsParticipant(conversationId string, userId int) (bool, error)
	SaveMessage(params CreateMessageParams) (Message, error)
	GetMessages(conversationId string, offset, limit int) ([]Message, error)
	MarkMessagesRead(conversationId string, userId int) error
	ResetUnreadCount(conversationId string, userId int) error
	DeleteMessage(messageId string, senderId int) (string, bool, error)
	EditMessage(messageId string, senderId int, content string) (string, bool, error)
}
