package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BatchDispatcher is the unit of work the scheduler repeats.
type BatchDispatcher interface {
	DispatchOnce(ctx context.Context) (int, error)
}

type Scheduler struct {
	dispatcher BatchDispatcher
	interval   time.Duration
	logger     *zap.Logger
}

func NewScheduler(d BatchDispatcher, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		dispatcher: d,
		interval:   interval,
		logger:     logger.Named("outbox_scheduler"),
	}
}

// Start runs the dispatcher on every tick until ctx is done. The returned
// channel is closed once the loop has exited.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("outbox scheduler stopped")
				return
			case <-ticker.C:
				n, err := s.dispatcher.DispatchOnce(ctx)
				if err != nil {
					s.logger.Error("outbox dispatch error", zap.Error(err))
				} else if n > 0 {
					s.logger.Info("outbox dispatch processed messages", zap.Int("count", n))
				}
			}
		}
	}()
	return done
}
