package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// LocalLocationLock is the single-process fallback used when no Redis address
// is configured. The ttl argument is ignored.
type LocalLocationLock struct {
	mu    sync.Mutex
	slots map[domain.ScanningLocationID]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocationLock() *LocalLocationLock {
	return &LocalLocationLock{slots: make(map[domain.ScanningLocationID]*slot)}
}

func (l *LocalLocationLock) Acquire(
	ctx context.Context,
	locationID domain.ScanningLocationID,
	_ time.Duration,
) (func(context.Context) error, error) {
	s := l.ref(locationID)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(locationID)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockNotAcquired, locationID, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-s.ch
			l.unref(locationID)
		})
		return nil
	}, nil
}

func (l *LocalLocationLock) ref(id domain.ScanningLocationID) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	return s
}

func (l *LocalLocationLock) unref(id domain.ScanningLocationID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[id]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, id)
	}
}
