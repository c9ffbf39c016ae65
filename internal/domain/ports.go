package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStockNotFound       = errors.New("stock not found")
	ErrConcurrencyConflict = errors.New("stock was modified concurrently")
	ErrLockNotAcquired     = errors.New("location lock not acquired")
)

type StockRepository interface {
	// GetByLocation returns ErrStockNotFound when the location has no stock yet.
	GetByLocation(ctx context.Context, locationID ScanningLocationID) (*Stock, error)
	Insert(ctx context.Context, s *Stock) error
	// Update succeeds only if the stored version still equals s.Version().
	Update(ctx context.Context, s *Stock) error
	ListLocations(ctx context.Context) ([]ScanningLocationID, error)
}

type OutboxRepository interface {
	Insert(ctx context.Context, msg OutboxMessage) error
	GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]OutboxMessage, error)
	Save(ctx context.Context, msg OutboxMessage) error
}

type OutboxMessage struct {
	ID             uuid.UUID
	Type           string
	PayloadJSON    string
	OccurredAtUtc  int64 // unix seconds
	RetryCount     int
	ProcessedAtUtc *int64
}

// LocationLock serialises work on one scanning location across processes.
type LocationLock interface {
	// Acquire blocks until the lock is held or ctx is done. The returned
	// function releases it.
	Acquire(ctx context.Context, locationID ScanningLocationID, ttl time.Duration) (release func(context.Context) error, err error)
}
