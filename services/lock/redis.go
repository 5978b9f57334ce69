package locksvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo/core"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares course exclusion tokens between API instances.
// A token expires after ttl so a crashed holder cannot block a course forever.
type RedisLocker struct {
	client *redis.Client
	prefix string
	wait   time.Duration
	ttl    time.Duration
	retry  time.Duration
	logger core.Logger
}

var _ core.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, wait, ttl time.Duration, logger core.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "outline:lock:",
		wait:   wait,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		logger: logger,
	}
}

func (l *RedisLocker) key(courseID string) string {
	return l.prefix + courseID
}

func (l *RedisLocker) Lock(ctx context.Context, courseID string) (func(), error) {
	key := l.key(courseID)
	value := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		if err := ctx.Err(); err != nil {
			return nil, core.NewConflictError(core.ResourceCourse, courseID, err)
		}
		ok, err := l.client.SetNX(ctx, key, value, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, "acquiring course lock")
		}
		if ok {
			return l.unlocker(key, value), nil
		}

		if time.Now().Add(l.retry).After(deadline) {
			return nil, core.NewConflictError(core.ResourceCourse, courseID, errWaitTimeout)
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, core.NewConflictError(core.ResourceCourse, courseID, ctx.Err())
		}
	}
}

func (l *RedisLocker) unlocker(key, value string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the request context may already be done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, value).Err(); err != nil {
				l.logger.Warn("releasing course lock", errors.Wrap(err, key))
			}
		})
	}
}
