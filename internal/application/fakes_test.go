package application

import (
	"context"
	"sync"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// memStockRepo keeps snapshots the way the Postgres repository does, so every
// load goes through Snapshot and RestoreStock.
type memStockRepo struct {
	mu        sync.Mutex
	snapshots map[domain.ScanningLocationID]domain.StockSnapshot
	conflicts int
	saves     int
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{snapshots: make(map[domain.ScanningLocationID]domain.StockSnapshot)}
}

func (r *memStockRepo) GetByLocation(ctx context.Context, locationID domain.ScanningLocationID) (*domain.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snapshots[locationID]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return domain.RestoreStock(snap)
}

func (r *memStockRepo) Insert(ctx context.Context, s *domain.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.snapshots[s.ScanningLocationID()]; exists {
		return domain.ErrConcurrencyConflict
	}
	r.store(s, 1)
	return nil
}

func (r *memStockRepo) Update(ctx context.Context, s *domain.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrConcurrencyConflict
	}
	cur, ok := r.snapshots[s.ScanningLocationID()]
	if !ok || cur.Version != s.Version() {
		return domain.ErrConcurrencyConflict
	}
	r.store(s, cur.Version+1)
	return nil
}

func (r *memStockRepo) store(s *domain.Stock, version int64) {
	snap := s.Snapshot()
	snap.Version = version
	r.snapshots[s.ScanningLocationID()] = snap
	s.MarkPersisted(version)
	r.saves++
}

func (r *memStockRepo) ListLocations(ctx context.Context) ([]domain.ScanningLocationID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ScanningLocationID, 0, len(r.snapshots))
	for id := range r.snapshots {
		out = append(out, id)
	}
	return out, nil
}

func (r *memStockRepo) version(locationID domain.ScanningLocationID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[locationID].Version
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []primitives.Event
}

func (o *recordingOutbox) Enqueue(ctx context.Context, ev primitives.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
	return nil
}

func (o *recordingOutbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = nil
}

func eventsOf[T primitives.Event](o *recordingOutbox) []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []T
	for _, ev := range o.events {
		if t, ok := ev.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

type countingLock struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

func (l *countingLock) Acquire(ctx context.Context, locationID domain.ScanningLocationID, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}
