package usecase

import (
	"context"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

// Touch records a presence heartbeat for the caller. The notification
// dispatcher reads lastSeen to decide whether email escalation is needed.
func (uc *UserUseCase) Touch(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Unauthenticated("Sign in first", nil)
	}
	return uc.userRepo.Touch(ctx, userID)
}

// EnsureProfile creates a minimal profile row on first authenticated call.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, userID, emailAddr, displayName string) (*entity.User, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("Sign in first", nil)
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	user = &entity.User{
		ID:          userID,
		Email:       emailAddr,
		DisplayName: displayName,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
