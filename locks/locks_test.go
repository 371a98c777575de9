package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "issue-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestKeyedMutexExcludes(t *testing.T) {
	exerciseMutualExclusion(t, NewKeyedMutex())
}

func TestKeyedMutexIndependentKeysAndTimeout(t *testing.T) {
	m := NewKeyedMutex()
	unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)

	unlockB, err := m.Lock(context.Background(), "b")
	require.NoError(t, err)
	unlockB()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlockA()
	unlockA()

	unlock, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	assert.Empty(t, m.locks)
}

func TestRedisLockerExcludes(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	exerciseMutualExclusion(t, NewRedisLocker(client, "lock:", 5*time.Second))
	assert.False(t, s.Exists("lock:issue-1"))
}

func TestRedisLockerTimeoutAndExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, "lock:", time.Second)
	_, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrLockTimeout)

	s.FastForward(2 * time.Second)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerUnlockKeepsForeignLock(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	l := NewRedisLocker(client, "lock:", time.Second)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	require.NoError(t, s.Set("lock:k", "someone-else"))
	unlock()

	got, err := s.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
