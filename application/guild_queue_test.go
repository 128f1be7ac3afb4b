package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildQueue_PreservesOrderPerGuild(t *testing.T) {
	t.Parallel()

	q := NewGuildQueue()

	var mu sync.Mutex
	seen := map[int64][]int{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, guildID := range []int64{1, 2, 3} {
			wg.Add(1)
			require.NoError(t, q.Enqueue(guildID, func() {
				defer wg.Done()
				mu.Lock()
				seen[guildID] = append(seen[guildID], i)
				mu.Unlock()
			}))
		}
	}
	wg.Wait()

	for _, guildID := range []int64{1, 2, 3} {
		require.Len(t, seen[guildID], 50)
		for i, v := range seen[guildID] {
			assert.Equal(t, i, v)
		}
	}

	q.Close()
	assert.Zero(t, q.Busy())
}

func TestGuildQueue_GuildsRunIndependently(t *testing.T) {
	t.Parallel()

	q := NewGuildQueue()
	defer q.Close()

	release := make(chan struct{})
	require.NoError(t, q.Enqueue(1, func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := q.Do(ctx, 2, func(context.Context) error { return nil })
	assert.NoError(t, err)

	close(release)
}

func TestGuildQueue_DoReturnsTaskError(t *testing.T) {
	t.Parallel()

	q := NewGuildQueue()
	defer q.Close()

	boom := errors.New("boom")
	err := q.Do(context.Background(), 1, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestGuildQueue_DoSkipsCancelledTask(t *testing.T) {
	t.Parallel()

	q := NewGuildQueue()
	defer q.Close()

	release := make(chan struct{})
	require.NoError(t, q.Enqueue(1, func() { <-release }))

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Do(ctx, 1, func(context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	close(release)

	require.NoError(t, q.Do(context.Background(), 1, func(context.Context) error { return nil }))
	assert.Empty(t, ran)
}

func TestGuildQueue_RecoversPanics(t *testing.T) {
	t.Parallel()

	q := NewGuildQueue()
	defer q.Close()

	require.NoError(t, q.Enqueue(1, func() { panic("handler bug") }))
	assert.NoError(t, q.Do(context.Background(), 1, func(context.Context) error { return nil }))
}

func TestGuildQueue_ClosedRejectsWork(t *testing.T) {
	t.Parallel()

	q := NewGuildQueue()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(1, func() {}), ErrQueueClosed)
	assert.ErrorIs(t, q.Do(context.Background(), 1, func(context.Context) error { return nil }), ErrQueueClosed)
}
