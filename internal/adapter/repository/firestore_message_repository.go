package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.client.Collection("conversations").Doc(conversationID).Collection("messages")
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now

	conversationID := entity.ConversationKey(message.ListingID, message.SenderID, message.ReceiverID)
	_, err := r.messages(conversationID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Transport("Failed to create message", err)
	}

	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Transport("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreMessageRepository) Update(ctx context.Context, conversationID string, message *entity.Message) error {
	message.UpdatedAt = time.Now()

	_, err := r.messages(conversationID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Transport("Failed to update message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.messages(conversationID).
		Where("deleted", "==", false).
		OrderBy("createdAt", firestore.Asc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching messages for conversation %s: %v", conversationID, err)
		return nil, 0, errors.Transport("Failed to fetch messages", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var messages []*entity.Message
	for i := start; i < end; i++ {
		var message entity.Message
		if err := allDocs[i].DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message doc in conversation %s: %v", conversationID, err)
			continue
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, conversationID, senderID, receiverID string) ([]*entity.Message, error) {
	query := r.messages(conversationID).
		Where("senderId", "==", senderID).
		Where("receiverId", "==", receiverID).
		Where("read", "==", false)

	iter := query.Documents(ctx)
	now := time.Now()
	var changed []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Transport("Failed to iterate unread messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			continue
		}

		message.Read = true
		message.SeenAt = &now
		message.UpdatedAt = now

		if _, err := doc.Ref.Set(ctx, &message); err != nil {
			return changed, errors.Transport("Failed to update message read state", err)
		}
		changed = append(changed, &message)
	}

	return changed, nil
}

func (r *firestoreMessageRepository) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	query := r.messages(conversationID).
		Where("receiverId", "==", receiverID).
		Where("read", "==", false).
		Where("deleted", "==", false)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Transport("Failed to count unread messages", err)
	}
	return len(docs), nil
}

func (r *firestoreMessageRepository) LastVisible(ctx context.Context, conversationID string) (*entity.Message, error) {
	query := r.messages(conversationID).
		Where("deleted", "==", false).
		OrderBy("createdAt", firestore.Desc).
		Limit(1)

	iter := query.Documents(ctx)
	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Transport("Failed to query last message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreMessageRepository) DeleteAll(ctx context.Context, conversationID string) error {
	iter := r.messages(conversationID).Documents(ctx)

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Transport("Failed to iterate messages for delete", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return errors.Transport("Failed to delete message", err)
		}
	}

	return nil
}
