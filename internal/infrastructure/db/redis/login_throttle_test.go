package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThrottle(t *testing.T, max int, window time.Duration) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, max, window), mr
}

func TestLoginThrottle_BlocksAfterMaxFailures(t *testing.T) {
	th, mr := newThrottle(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	}
	blocked, err := th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	blocked, err = th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, blocked)

	assert.Equal(t, time.Minute, mr.TTL("login:fail:a@example.com"))

	other, err := th.Blocked(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, other)
}

func TestLoginThrottle_WindowExpires(t *testing.T) {
	th, mr := newThrottle(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	blocked, _ := th.Blocked(ctx, "a@example.com")
	require.True(t, blocked)

	mr.FastForward(2 * time.Minute)
	blocked, err := th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLoginThrottle_WindowNotExtendedByLaterFailures(t *testing.T) {
	th, mr := newThrottle(t, 10, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	mr.FastForward(40 * time.Second)
	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))

	assert.Equal(t, 20*time.Second, mr.TTL("login:fail:a@example.com"))
}

// expireFails rejects every EXPIRE sent through it.
type expireFails struct {
	redis.Cmdable
}

func (expireFails) Expire(ctx context.Context, key string, d time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key, d)
	cmd.SetErr(errors.New("expire unavailable"))
	return cmd
}

func TestLoginThrottle_WindowSetWithoutSeparateExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	th := NewLoginThrottle(expireFails{client}, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("login:fail:a@example.com"))

	blocked, err := th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, blocked)

	mr.FastForward(24 * time.Hour)
	blocked, err = th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLoginThrottle_CounterWithoutTTLIsRepaired(t *testing.T) {
	th, mr := newThrottle(t, 3, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("login:fail:a@example.com", "7"))
	assert.Equal(t, time.Duration(0), mr.TTL("login:fail:a@example.com"))

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("login:fail:a@example.com"))

	mr.FastForward(2 * time.Minute)
	blocked, err := th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLoginThrottle_Reset(t *testing.T) {
	th, mr := newThrottle(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	require.NoError(t, th.Reset(ctx, "a@example.com"))

	assert.False(t, mr.Exists("login:fail:a@example.com"))
	blocked, err := th.Blocked(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLoginThrottle_ErrorsWhenRedisDown(t *testing.T) {
	th, mr := newThrottle(t, 1, time.Minute)
	mr.Close()

	_, err := th.Blocked(context.Background(), "a@example.com")
	assert.Error(t, err)
	assert.Error(t, th.RecordFailure(context.Background(), "a@example.com"))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
