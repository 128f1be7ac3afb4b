package application

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrQueueClosed is returned for work submitted after Close
var ErrQueueClosed = errors.New("guild queue closed")

// GuildQueue runs tasks one at a time per guild, in submission order. Each
// busy guild gets its own goroutine which exits once its lane drains.
type GuildQueue struct {
	mu     sync.Mutex
	lanes  map[int64][]func()
	closed bool
	wg     sync.WaitGroup
}

// NewGuildQueue creates an empty queue
func NewGuildQueue() *GuildQueue {
	return &GuildQueue{
		lanes: make(map[int64][]func()),
	}
}

// Enqueue appends task to the guild's lane without waiting for it
func (q *GuildQueue) Enqueue(guildID int64, task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	lane, busy := q.lanes[guildID]
	q.lanes[guildID] = append(lane, task)
	if !busy {
		q.wg.Add(1)
		go q.drain(guildID)
	}
	return nil
}

// Do runs task on the guild's lane and waits for it. A task still queued when
// ctx ends is skipped.
func (q *GuildQueue) Do(ctx context.Context, guildID int64, task func(context.Context) error) error {
	done := make(chan error, 1)
	err := q.Enqueue(guildID, func() {
		if ctx.Err() != nil {
			done <- ctx.Err()
			return
		}
		done <- task(ctx)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Busy reports how many guilds have queued or running work
func (q *GuildQueue) Busy() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

// Close stops accepting tasks and waits for the queued ones to finish
func (q *GuildQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *GuildQueue) drain(guildID int64) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		lane := q.lanes[guildID]
		if len(lane) == 0 {
			delete(q.lanes, guildID)
			q.mu.Unlock()
			return
		}
		task := lane[0]
		lane[0] = nil
		q.lanes[guildID] = lane[1:]
		q.mu.Unlock()

		q.run(guildID, task)
	}
}

func (q *GuildQueue) run(guildID int64, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"guild_id": guildID,
				"panic":    r,
			}).Error("Guild queue task panicked")
		}
	}()
	task()
}
