package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type ConversationRepository interface {
	// Upsert writes the conversation under its canonical id.
	Upsert(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	Delete(ctx context.Context, id string) error
	// SetLastEmailNotified stamps the suppression-window marker.
	SetLastEmailNotified(ctx context.Context, id string) error
}
