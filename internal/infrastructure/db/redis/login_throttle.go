package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	defaultMaxAttempts = 5
	defaultLockWindow  = 15 * time.Minute
)

// LoginThrottle counts failed logins per key in Redis.
// Key format: login:fail:<email>
type LoginThrottle struct {
	client      redis.Cmdable
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle locks a key once maxAttempts failures land within window
// of the first one.
func NewLoginThrottle(client redis.Cmdable, maxAttempts int, window time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultLockWindow
	}
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), window: window}
}

func (l *LoginThrottle) Blocked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(key)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		metrics.LoginThrottleErrorsTotal.Inc()
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= l.maxAttempts, nil
}

// recordFailure increments the counter and starts the window when the key
// has no TTL yet. A counter left without a TTL gets one on the next failure.
var recordFailure = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RecordFailure increments the counter; the window starts at the first failure.
func (l *LoginThrottle) RecordFailure(ctx context.Context, key string) error {
	err := recordFailure.Run(ctx, l.client, []string{l.key(key)}, l.window.Milliseconds()).Err()
	if err != nil {
		metrics.LoginThrottleErrorsTotal.Inc()
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

func (l *LoginThrottle) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		metrics.LoginThrottleErrorsTotal.Inc()
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}

func (l *LoginThrottle) key(k string) string {
	return "login:fail:" + k
}

var _ ports.LoginThrottle = (*LoginThrottle)(nil)
