package repository

import "context"

// EmailCounterRepository is the daily outbound-email budget. IncrementAndGet
// must be atomic: two concurrent dispatchers must never read the same value.
type EmailCounterRepository interface {
	Get(ctx context.Context, date string) (int, error)
	IncrementAndGet(ctx context.Context, date string) (int, error)
}
