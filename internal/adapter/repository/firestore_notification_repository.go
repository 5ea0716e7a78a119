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
)

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.CreatedAt = time.Now()

	_, err := r.client.Collection("notifications").Doc(notification.ID).Set(ctx, notification)
	if err != nil {
		return errors.Transport("Failed to create notification", err)
	}

	return nil
}

func (r *firestoreNotificationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	query := r.client.Collection("notifications").
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Transport("Failed to fetch notifications", err)
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

	var notifications []*entity.Notification
	for i := start; i < end; i++ {
		var notification entity.Notification
		if err := allDocs[i].DataTo(&notification); err != nil {
			continue
		}
		notifications = append(notifications, &notification)
	}

	return notifications, total, nil
}

func (r *firestoreNotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	docRef := r.client.Collection("notifications").Doc(notificationID)

	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Notification", err)
		}
		return errors.Transport("Failed to get notification", err)
	}

	var notification entity.Notification
	if err := doc.DataTo(&notification); err != nil {
		return errors.Internal("Failed to parse notification data", err)
	}
	if notification.UserID != userID {
		return errors.Forbidden("Notification belongs to another user", nil)
	}

	_, err = docRef.Update(ctx, []firestore.Update{{Path: "read", Value: true}})
	if err != nil {
		return errors.Transport("Failed to mark notification read", err)
	}
	return nil
}

func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query := r.client.Collection("notifications").
		Where("userId", "==", userID).
		Where("read", "==", false)

	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Transport("Failed to iterate notifications", err)
		}
		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "read", Value: true}}); err != nil {
			return errors.Transport("Failed to mark notification read", err)
		}
	}

	return nil
}
