package usecase

import (
	"context"
	"strings"
	"time"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/internal/infrastructure/realtime"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// Dispatcher reacts to a newly stored message. Dispatch runs off the send
// path; its failures never surface to the sender.
type Dispatcher interface {
	DispatchNewMessage(ctx context.Context, message *entity.Message)
}

type MessageUseCase struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	listingRepo      repository.ListingRepository
	relay            *realtime.Relay
	rateLimiter      *ratelimit.RateLimiter
	dispatcher       Dispatcher
}

func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	relay *realtime.Relay,
) *MessageUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &MessageUseCase{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		listingRepo:      listingRepo,
		relay:            relay,
		rateLimiter:      rateLimiter,
	}
}

// SetDispatcher wires the notification dispatcher after construction; the
// dispatcher itself depends on conversation state this usecase maintains.
func (uc *MessageUseCase) SetDispatcher(dispatcher Dispatcher) {
	uc.dispatcher = dispatcher
}

type SendMessageInput struct {
	ListingID  string
	ReceiverID string
	Body       string
	ClientID   string
}

type ConversationResponse struct {
	*entity.Conversation
	Listing   *entity.Listing `json:"listing,omitempty"`
	OtherUser *entity.User    `json:"other_user,omitempty"`
}

// Send stores a new message and kicks off aggregate refresh, relay fan-out
// and notification dispatch. Only the store step can fail the call.
func (uc *MessageUseCase) Send(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	if senderID == "" {
		return nil, errors.Unauthenticated("Sign in to send messages", nil)
	}

	if allowed, wait := uc.rateLimiter.Allow(senderID, "send_message"); !allowed {
		logger.Warn("Send rate limited: user %s must wait %v", senderID, wait)
		return nil, errors.TooManyRequests("You are sending messages too quickly. Please slow down.")
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, errors.Validation("Message body must not be empty", nil)
	}
	if input.ReceiverID == "" || input.ListingID == "" {
		return nil, errors.Validation("Listing and receiver are required", nil)
	}
	if senderID == input.ReceiverID {
		return nil, errors.Validation("You cannot message yourself", nil)
	}

	if _, err := uc.listingRepo.GetByID(ctx, input.ListingID); err != nil {
		return nil, err
	}
	if _, err := uc.userRepo.GetByID(ctx, input.ReceiverID); err != nil {
		return nil, err
	}

	message := &entity.Message{
		ClientID:   input.ClientID,
		ListingID:  input.ListingID,
		SenderID:   senderID,
		ReceiverID: input.ReceiverID,
		Body:       body,
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		logger.Error("Send: failed to store message for listing %s: %v", input.ListingID, err)
		return nil, err
	}

	conversationID := entity.ConversationKey(message.ListingID, message.SenderID, message.ReceiverID)
	uc.refreshAggregate(ctx, conversationID, message.ListingID, message.SenderID, message.ReceiverID)

	uc.relay.Publish(realtime.ChangeEvent{
		Table:  realtime.TableMessages,
		Type:   realtime.EventInsert,
		Filter: conversationID,
		NewRow: message,
	})

	if uc.dispatcher != nil {
		go uc.dispatcher.DispatchNewMessage(context.Background(), message)
	}

	return message, nil
}

// ListMessages returns the non-deleted messages of the caller's conversation
// with otherUserID about the listing, oldest first.
func (uc *MessageUseCase) ListMessages(ctx context.Context, callerID, listingID, otherUserID string, limit, offset int) ([]*entity.Message, int64, error) {
	if callerID == "" {
		return nil, 0, errors.Unauthenticated("Sign in to read messages", nil)
	}
	if callerID == otherUserID {
		return nil, 0, errors.Validation("A conversation needs two distinct participants", nil)
	}

	conversationID := entity.ConversationKey(listingID, callerID, otherUserID)

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return []*entity.Message{}, 0, nil
		}
		return nil, 0, err
	}
	if !conversation.HasParticipant(callerID) {
		return nil, 0, errors.Forbidden("You are not part of this conversation", nil)
	}

	return uc.messageRepo.ListByConversation(ctx, conversationID, limit, offset)
}

// Edit replaces the body of the caller's own message.
func (uc *MessageUseCase) Edit(ctx context.Context, callerID, listingID, otherUserID, messageID, newBody string) (*entity.Message, error) {
	if callerID == "" {
		return nil, errors.Unauthenticated("Sign in to edit messages", nil)
	}

	body := strings.TrimSpace(newBody)
	if body == "" {
		return nil, errors.Validation("Message body must not be empty", nil)
	}

	conversationID := entity.ConversationKey(listingID, callerID, otherUserID)

	message, err := uc.messageRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != callerID {
		return nil, errors.Forbidden("Only the sender can edit a message", nil)
	}

	message.Body = body
	message.Edited = true

	if err := uc.messageRepo.Update(ctx, conversationID, message); err != nil {
		return nil, err
	}

	uc.refreshAggregate(ctx, conversationID, message.ListingID, message.SenderID, message.ReceiverID)

	uc.relay.Publish(realtime.ChangeEvent{
		Table:  realtime.TableMessages,
		Type:   realtime.EventUpdate,
		Filter: conversationID,
		NewRow: message,
	})

	return message, nil
}

// SoftDelete flags the caller's own message as deleted. The row stays for
// audit; reads filter it out.
func (uc *MessageUseCase) SoftDelete(ctx context.Context, callerID, listingID, otherUserID, messageID string) error {
	if callerID == "" {
		return errors.Unauthenticated("Sign in to delete messages", nil)
	}

	conversationID := entity.ConversationKey(listingID, callerID, otherUserID)

	message, err := uc.messageRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != callerID {
		return errors.Forbidden("Only the sender can delete a message", nil)
	}

	message.Deleted = true

	if err := uc.messageRepo.Update(ctx, conversationID, message); err != nil {
		return err
	}

	uc.refreshAggregate(ctx, conversationID, message.ListingID, message.SenderID, message.ReceiverID)

	uc.relay.Publish(realtime.ChangeEvent{
		Table:  realtime.TableMessages,
		Type:   realtime.EventUpdate,
		Filter: conversationID,
		NewRow: message,
	})

	return nil
}

// MarkRead flips every unread message from otherUserID to the caller in the
// listing's conversation. Idempotent: a second call changes nothing.
func (uc *MessageUseCase) MarkRead(ctx context.Context, callerID, listingID, otherUserID string) error {
	if callerID == "" {
		return errors.Unauthenticated("Sign in to read messages", nil)
	}

	conversationID := entity.ConversationKey(listingID, callerID, otherUserID)

	changed, err := uc.messageRepo.MarkRead(ctx, conversationID, otherUserID, callerID)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	uc.refreshAggregate(ctx, conversationID, listingID, callerID, otherUserID)

	for _, message := range changed {
		uc.relay.Publish(realtime.ChangeEvent{
			Table:  realtime.TableMessages,
			Type:   realtime.EventUpdate,
			Filter: conversationID,
			NewRow: message,
		})
	}

	return nil
}

// ListConversations returns the caller's conversations newest-activity first,
// with listing and other-participant embeds for list rendering.
func (uc *MessageUseCase) ListConversations(ctx context.Context, callerID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	if callerID == "" {
		return nil, 0, errors.Unauthenticated("Sign in to view conversations", nil)
	}

	conversations, total, err := uc.conversationRepo.ListByUserID(ctx, callerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var responses []*ConversationResponse
	for _, conversation := range conversations {
		resp := &ConversationResponse{Conversation: conversation}

		if listing, err := uc.listingRepo.GetByID(ctx, conversation.ListingID); err == nil {
			resp.Listing = listing
		} else {
			logger.Warn("ListConversations: listing %s not found for conversation %s: %v", conversation.ListingID, conversation.ID, err)
		}

		if otherID := conversation.OtherParticipant(callerID); otherID != "" {
			if otherUser, err := uc.userRepo.GetByID(ctx, otherID); err == nil {
				resp.OtherUser = otherUser
			} else {
				logger.Warn("ListConversations: user %s not found for conversation %s: %v", otherID, conversation.ID, err)
			}
		}

		responses = append(responses, resp)
	}

	return responses, total, nil
}

// DeleteConversation removes the conversation and every message in it. This
// is the only hard-delete path for messages.
func (uc *MessageUseCase) DeleteConversation(ctx context.Context, callerID, listingID, otherUserID string) error {
	if callerID == "" {
		return errors.Unauthenticated("Sign in to delete conversations", nil)
	}

	conversationID := entity.ConversationKey(listingID, callerID, otherUserID)

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(callerID) {
		return errors.Forbidden("You are not part of this conversation", nil)
	}

	messages, _, err := uc.messageRepo.ListByConversation(ctx, conversationID, 0, 0)
	if err != nil {
		return err
	}

	if err := uc.messageRepo.DeleteAll(ctx, conversationID); err != nil {
		return err
	}
	if err := uc.conversationRepo.Delete(ctx, conversationID); err != nil {
		return err
	}

	for _, message := range messages {
		uc.relay.Publish(realtime.ChangeEvent{
			Table:  realtime.TableMessages,
			Type:   realtime.EventDelete,
			Filter: conversationID,
			OldRow: message,
		})
	}
	uc.relay.Publish(realtime.ChangeEvent{
		Table:  realtime.TableConversations,
		Type:   realtime.EventDelete,
		Filter: callerID,
		OldRow: conversation,
	})

	return nil
}

// refreshAggregate recomputes the conversation row from message state: last
// visible message, activity time and per-participant unread counts. Unread
// is always recounted from rows, never incremented. Failures are logged and
// swallowed; the next mutation or refetch reconciles.
func (uc *MessageUseCase) refreshAggregate(ctx context.Context, conversationID, listingID, userA, userB string) {
	existing, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		logger.Error("refreshAggregate: failed to load conversation %s: %v", conversationID, err)
		return
	}

	conversation := existing
	if conversation == nil {
		conversation = &entity.Conversation{
			ID:           conversationID,
			ListingID:    listingID,
			Participants: entity.CanonicalPair(userA, userB),
			UnreadCount:  make(map[string]int),
		}
	}
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}

	last, err := uc.messageRepo.LastVisible(ctx, conversationID)
	if err != nil {
		logger.Error("refreshAggregate: failed to read last message of %s: %v", conversationID, err)
		return
	}
	if last != nil {
		conversation.LastMessage = last.Body
		conversation.LastMessageAt = last.CreatedAt
	} else {
		conversation.LastMessage = ""
		if conversation.LastMessageAt.IsZero() {
			conversation.LastMessageAt = time.Now()
		}
	}

	for _, participantID := range conversation.Participants {
		count, err := uc.messageRepo.CountUnread(ctx, conversationID, participantID)
		if err != nil {
			logger.Error("refreshAggregate: failed to count unread for %s in %s: %v", participantID, conversationID, err)
			return
		}
		conversation.UnreadCount[participantID] = count
	}

	if err := uc.conversationRepo.Upsert(ctx, conversation); err != nil {
		logger.Error("refreshAggregate: failed to upsert conversation %s: %v", conversationID, err)
		return
	}

	for _, participantID := range conversation.Participants {
		uc.relay.Publish(realtime.ChangeEvent{
			Table:  realtime.TableConversations,
			Type:   realtime.EventUpdate,
			Filter: participantID,
			NewRow: conversation,
		})
	}
}
