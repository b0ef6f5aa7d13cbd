package service

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// tripLocks serializes mutations per trip id. The stores give us no
// optimistic locking, so every read-modify-write on a trip runs under its
// mutex to prevent lost updates between concurrent payment, deduction and
// close calls.
type tripLocks struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*sync.Mutex
}

func newTripLocks() *tripLocks {
	return &tripLocks{locks: make(map[snowflake.ID]*sync.Mutex)}
}

func (l *tripLocks) forTrip(id snowflake.ID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.locks[id]; !exists {
		l.locks[id] = &sync.Mutex{}
	}
	return l.locks[id]
}
