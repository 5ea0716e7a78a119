package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type firestoreEmailCounterRepository struct {
	client *firestore.Client
}

func NewFirestoreEmailCounterRepository(client *firestore.Client) repository.EmailCounterRepository {
	return &firestoreEmailCounterRepository{
		client: client,
	}
}

func (r *firestoreEmailCounterRepository) Get(ctx context.Context, date string) (int, error) {
	doc, err := r.client.Collection("email_counters").Doc(date).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, errors.Transport("Failed to read email counter", err)
	}

	var counter entity.EmailCounter
	if err := doc.DataTo(&counter); err != nil {
		return 0, errors.Internal("Failed to parse email counter", err)
	}
	return counter.Count, nil
}

// IncrementAndGet runs inside a Firestore transaction so concurrent
// dispatchers never observe the same value.
func (r *firestoreEmailCounterRepository) IncrementAndGet(ctx context.Context, date string) (int, error) {
	docRef := r.client.Collection("email_counters").Doc(date)
	var newCount int

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		counter := entity.EmailCounter{Date: date}

		doc, err := tx.Get(docRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			if err := doc.DataTo(&counter); err != nil {
				return err
			}
		}

		counter.Count++
		newCount = counter.Count
		return tx.Set(docRef, counter)
	})
	if err != nil {
		return 0, errors.Transport("Failed to increment email counter", err)
	}

	return newCount, nil
}
