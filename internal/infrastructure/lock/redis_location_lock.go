package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

const (
	lockKeyPrefix       = "stock:lock:"
	defaultPollInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocationLock serialises work on a scanning location across replicas.
type RedisLocationLock struct {
	client       *redis.Client
	pollInterval time.Duration
}

func NewRedisLocationLock(client *redis.Client) *RedisLocationLock {
	return &RedisLocationLock{client: client, pollInterval: defaultPollInterval}
}

func (l *RedisLocationLock) Acquire(
	ctx context.Context,
	locationID domain.ScanningLocationID,
	ttl time.Duration,
) (func(context.Context) error, error) {
	key := lockKeyPrefix + locationID.String()
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockNotAcquired, locationID, ctx.Err())
		case <-ticker.C:
		}
	}
}
