package usecase

import (
	"context"
	"strings"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/pkg/errors"
)

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewListingUseCase(listingRepo repository.ListingRepository) *ListingUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ListingUseCase{
		listingRepo: listingRepo,
		rateLimiter: rateLimiter,
	}
}

type CreateListingInput struct {
	Title       string
	Description string
	Price       float64
	Category    string
}

func (uc *ListingUseCase) Create(ctx context.Context, sellerID string, input CreateListingInput) (*entity.Listing, error) {
	if sellerID == "" {
		return nil, errors.Unauthenticated("Sign in to create listings", nil)
	}

	if allowed, _ := uc.rateLimiter.Allow(sellerID, "create_listing"); !allowed {
		return nil, errors.TooManyRequests("You are creating listings too quickly. Please slow down.")
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.Validation("Listing title must not be empty", nil)
	}
	if input.Price < 0 {
		return nil, errors.Validation("Listing price must not be negative", nil)
	}

	listing := &entity.Listing{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
	}

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

func (uc *ListingUseCase) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	return uc.listingRepo.GetByID(ctx, id)
}

func (uc *ListingUseCase) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.Listing, int64, error) {
	return uc.listingRepo.ListBySellerID(ctx, sellerID, limit, offset)
}
