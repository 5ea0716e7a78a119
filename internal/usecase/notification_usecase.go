package usecase

import (
	"context"
	"fmt"
	"time"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/infrastructure/email"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	listingRepo      repository.ListingRepository
	counterRepo      repository.EmailCounterRepository
	sender           email.Sender

	presenceThreshold time.Duration
	dailyCap          int
}

func NewNotificationUseCase(
	notificationRepo repository.NotificationRepository,
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	counterRepo repository.EmailCounterRepository,
	sender email.Sender,
	presenceThreshold time.Duration,
	dailyCap int,
) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo:  notificationRepo,
		conversationRepo:  conversationRepo,
		userRepo:          userRepo,
		listingRepo:       listingRepo,
		counterRepo:       counterRepo,
		sender:            sender,
		presenceThreshold: presenceThreshold,
		dailyCap:          dailyCap,
	}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DispatchNewMessage always records an in-app notification for the receiver,
// then walks the email escalation checks in order, short-circuiting on the
// first failing one:
//
//  1. receiver active within the presence threshold
//  2. receiver has an email address
//  3. an email already went out since the receiver was last active
//  4. the daily email budget is spent
//
// Every failure in here is logged and swallowed; message delivery already
// happened and must not be affected.
func (uc *NotificationUseCase) DispatchNewMessage(ctx context.Context, message *entity.Message) {
	sender, err := uc.userRepo.GetByID(ctx, message.SenderID)
	if err != nil {
		logger.Error("dispatch: sender %s lookup failed: %v", message.SenderID, err)
		return
	}

	var listingTitle string
	if listing, err := uc.listingRepo.GetByID(ctx, message.ListingID); err == nil {
		listingTitle = listing.Title
	} else {
		logger.Warn("dispatch: listing %s lookup failed: %v", message.ListingID, err)
	}

	notification := &entity.Notification{
		UserID:    message.ReceiverID,
		Type:      entity.NotificationNewMessage,
		Title:     fmt.Sprintf("New message from %s", sender.DisplayName),
		Body:      snippet(message.Body, 120),
		Link:      fmt.Sprintf("/chats/%s/%s", message.ListingID, message.SenderID),
		ListingID: message.ListingID,
	}
	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		logger.Error("dispatch: failed to create in-app notification for %s: %v", message.ReceiverID, err)
		// The email path still runs; the two channels are independent.
	}

	receiver, err := uc.userRepo.GetByID(ctx, message.ReceiverID)
	if err != nil {
		logger.Error("dispatch: receiver %s lookup failed: %v", message.ReceiverID, err)
		return
	}

	now := time.Now()

	if receiver.ActiveWithin(uc.presenceThreshold, now) {
		logger.Debug("dispatch: receiver %s active, skipping email", receiver.ID)
		return
	}

	if receiver.Email == "" {
		logger.Debug("dispatch: receiver %s has no email on file", receiver.ID)
		return
	}

	conversationID := entity.ConversationKey(message.ListingID, message.SenderID, message.ReceiverID)
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		logger.Error("dispatch: conversation %s lookup failed: %v", conversationID, err)
		return
	}

	// One email per idle stretch: if we already mailed since the receiver
	// was last active, a burst of further messages stays quiet.
	if conversation.LastEmailNotifiedAt.After(receiver.LastSeen) {
		logger.Debug("dispatch: receiver %s already emailed for conversation %s", receiver.ID, conversationID)
		return
	}

	today := dateKey(now)

	count, err := uc.counterRepo.Get(ctx, today)
	if err != nil {
		logger.Error("dispatch: failed to read email counter: %v", err)
		return
	}
	if count >= uc.dailyCap {
		logger.Warn("dispatch: daily email cap (%d) reached, suppressing email to %s", uc.dailyCap, receiver.ID)
		return
	}

	// Increment first, then re-check. Two dispatchers can both pass the read
	// above; the atomic increment decides who actually sends. The counter may
	// overshoot by the losers' increments but no email goes out past the cap.
	newCount, err := uc.counterRepo.IncrementAndGet(ctx, today)
	if err != nil {
		logger.Error("dispatch: failed to increment email counter: %v", err)
		return
	}
	if newCount > uc.dailyCap {
		logger.Warn("dispatch: lost cap race at %d/%d, aborting email to %s", newCount, uc.dailyCap, receiver.ID)
		return
	}

	subject := fmt.Sprintf("%s sent you a message about \"%s\"", sender.DisplayName, listingTitle)
	html := fmt.Sprintf(
		"<p><strong>%s</strong> sent you a message about <strong>%s</strong>:</p><blockquote>%s</blockquote><p><a href=\"%s\">Reply on unimarket</a></p>",
		sender.DisplayName, listingTitle, snippet(message.Body, 300), notification.Link,
	)

	if err := uc.sender.Send(receiver.Email, subject, html); err != nil {
		logger.Error("dispatch: email to %s failed: %v", receiver.Email, err)
		return
	}

	if err := uc.conversationRepo.SetLastEmailNotified(ctx, conversationID); err != nil {
		logger.Error("dispatch: failed to stamp email marker on %s: %v", conversationID, err)
	}
}

// List returns the user's notifications, newest first.
func (uc *NotificationUseCase) List(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	if userID == "" {
		return nil, 0, errors.Unauthenticated("Sign in to view notifications", nil)
	}
	return uc.notificationRepo.ListByUserID(ctx, userID, limit, offset)
}

// MarkRead flips one notification's read flag.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return errors.Unauthenticated("Sign in to update notifications", nil)
	}
	return uc.notificationRepo.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead flips every unread notification for the user.
func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Unauthenticated("Sign in to update notifications", nil)
	}
	return uc.notificationRepo.MarkAllRead(ctx, userID)
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
