package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}
