package application

import (
	"sync"

	"chisato/domain/entities"
)

// RoomLocks hands out one mutex per live room. Entries are dropped once no
// caller holds or waits for them.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[entities.RoomKey]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewRoomLocks creates an empty lock table
func NewRoomLocks() *RoomLocks {
	return &RoomLocks{
		locks: make(map[entities.RoomKey]*roomLock),
	}
}

// Lock blocks until the room is free and returns its unlock function
func (l *RoomLocks) Lock(key entities.RoomKey) func() {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &roomLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Held returns how many rooms currently have a lock entry
func (l *RoomLocks) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
