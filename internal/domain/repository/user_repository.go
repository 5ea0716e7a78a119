package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// Touch records a presence heartbeat (lastSeen = now).
	Touch(ctx context.Context, id string) error
}
