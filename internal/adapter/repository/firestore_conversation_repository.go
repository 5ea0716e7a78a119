package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) Upsert(ctx context.Context, conversation *entity.Conversation) error {
	if conversation.ID == "" && len(conversation.Participants) == 2 {
		conversation.ID = entity.ConversationKey(conversation.ListingID, conversation.Participants[0], conversation.Participants[1])
	}

	now := time.Now()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = now

	_, err := r.client.Collection("conversations").Doc(conversation.ID).Set(ctx, conversation)
	if err != nil {
		return errors.Transport("Failed to upsert conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection("conversations").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Transport("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.client.Collection("conversations").
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, 0, errors.Transport("Failed to fetch conversations", err)
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

	var conversations []*entity.Conversation
	for i := start; i < end; i++ {
		var conversation entity.Conversation
		if err := allDocs[i].DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation doc for user %s: %v", userID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, total, nil
}

func (r *firestoreConversationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection("conversations").Doc(id).Delete(ctx)
	if err != nil {
		return errors.Transport("Failed to delete conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) SetLastEmailNotified(ctx context.Context, id string) error {
	_, err := r.client.Collection("conversations").Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastEmailNotifiedAt", Value: time.Now()},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return errors.Transport("Failed to stamp conversation email marker", err)
	}
	return nil
}
