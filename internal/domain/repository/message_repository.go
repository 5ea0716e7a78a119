package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	Update(ctx context.Context, conversationID string, message *entity.Message) error
	// ListByConversation returns non-deleted messages ordered by creation
	// time ascending.
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)
	// MarkRead flips read/seenAt on every unread row addressed to receiverID
	// from senderID and returns the rows it changed. Calling it again is a
	// no-op.
	MarkRead(ctx context.Context, conversationID, senderID, receiverID string) ([]*entity.Message, error)
	// CountUnread counts non-deleted unread messages addressed to receiverID.
	CountUnread(ctx context.Context, conversationID, receiverID string) (int, error)
	// LastVisible returns the most recent non-deleted message, or nil if the
	// conversation has none left.
	LastVisible(ctx context.Context, conversationID string) (*entity.Message, error)
	// DeleteAll hard-deletes every message in the conversation. Used only by
	// the delete-conversation cascade.
	DeleteAll(ctx context.Context, conversationID string) error
}
