package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimiter_Window(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewLimiter(rdb, time.Second, 2)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "42"))
	assert.True(t, l.Allow(ctx, "42"))
	assert.False(t, l.Allow(ctx, "42"))
	assert.True(t, l.Allow(ctx, "7"), "callers are counted separately")

	mr.FastForward(2 * time.Second)
	assert.True(t, l.Allow(ctx, "42"))
}

func TestLimiter_WindowTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewLimiter(rdb, time.Second, 5)
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "42"))
	assert.Equal(t, time.Second, mr.TTL(limitKey("42")))

	// later hits count in the same window without extending it
	mr.FastForward(400 * time.Millisecond)
	require.True(t, l.Allow(ctx, "42"))
	assert.Equal(t, 600*time.Millisecond, mr.TTL(limitKey("42")))
	v, err := mr.Get(limitKey("42"))
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestLimiter_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewLimiter(rdb, time.Second, 1)
	mr.Close()

	ctx := context.Background()
	assert.True(t, l.Allow(ctx, "42"))
	assert.True(t, l.Allow(ctx, "42"))

	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow(ctx, "42"))
}

func TestChatStore(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewChatStore(rdb, time.Minute)
	ctx := context.Background()

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoState)

	require.NoError(t, s.Set(ctx, 1, ChatState{Step: StepAwaitName, ToolID: 9}))
	st, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitName, st.Step)
	assert.Equal(t, uint(9), st.ToolID)
	assert.NotZero(t, st.At)

	require.NoError(t, s.Clear(ctx, 1))
	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoState)

	require.NoError(t, s.Set(ctx, 2, ChatState{Step: StepAwaitPhoto, ToolID: 3}))
	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNoState)
}

func TestReturnStore(t *testing.T) {
	_, rdb := newRedis(t)
	s := NewReturnStore(rdb, time.Hour)
	ctx := context.Background()

	p := PendingReturn{IssueID: 5, ToolID: 3, ChatID: 42, PhotoRef: "file-abc"}
	require.NoError(t, s.Save(ctx, p))

	got, err := s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, p, *got)

	got, err = s.Take(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "file-abc", got.PhotoRef)

	_, err = s.Take(ctx, 5)
	assert.ErrorIs(t, err, ErrNoState)
}

func TestAppSessionStore(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewAppSessionStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "a", "1000"))
	require.NoError(t, s.Create(ctx, "b", "1000"))
	as, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1000", as.AdminID)
	assert.Equal(t, time.Hour, mr.TTL(sessKey("a")))

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoState)
	_, err = s.Get(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, s.RevokeAll(ctx, "1000"))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNoState)

	require.NoError(t, s.Create(ctx, "c", "1000"))
	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "c")
	assert.ErrorIs(t, err, ErrNoState)
}

func TestLoginCodes(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewLoginCodes(rdb, time.Minute)
	ctx := context.Background()

	code, err := l.Issue(ctx, "1000")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	ok, err := l.Redeem(ctx, "1001", code)
	require.NoError(t, err)
	assert.False(t, ok, "codes are per admin")

	ok, err = l.Redeem(ctx, "1000", code)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Redeem(ctx, "1000", code)
	require.NoError(t, err)
	assert.False(t, ok, "single use")

	// a wrong guess burns the code
	code, err = l.Issue(ctx, "1000")
	require.NoError(t, err)
	ok, _ = l.Redeem(ctx, "1000", "x"+code[1:])
	assert.False(t, ok)
	ok, _ = l.Redeem(ctx, "1000", code)
	assert.False(t, ok)

	code, err = l.Issue(ctx, "1000")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	ok, err = l.Redeem(ctx, "1000", code)
	require.NoError(t, err)
	assert.False(t, ok)
}
