package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// defaultLockTTL bounds how long a crashed instance can hold a visit's
// lock. Transitions are single writes, so a few seconds is generous.
const defaultLockTTL = 10 * time.Second

// releaseScript deletes the lock only if this instance still owns it, so
// an expired-and-reacquired lock is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a distributed per-visit try-lock over SET NX with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*Redis)

// WithTTL overrides the lock expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *Redis) {
		l.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	l := &Redis{client: client, ttl: defaultLockTTL}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Redis) Acquire(ctx context.Context, visitID id.VisitID) (func(), error) {
	key := lockKey(visitID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire visit lock: %w", err)
	}
	if !ok {
		return nil, sentinel.ErrLockHeld
	}

	release := func() {
		// Detached context: the release must run even when the request
		// context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}

func lockKey(visitID id.VisitID) string {
	return "vigil:visit-lock:" + visitID.String()
}
