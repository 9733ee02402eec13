package signal

import (
	"sync"

	"roomcast/internal/core/domain"
)

// roomLocks serializes room-state transitions per room id. Operations on
// distinct rooms proceed independently. Entries live for the process
// lifetime; the room-id space of a single relay bounds the table.
type roomLocks struct {
	mu    sync.Mutex
	locks map[domain.RoomID]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{
		locks: make(map[domain.RoomID]*sync.Mutex),
	}
}

// lock acquires the mutex for roomID and returns the unlock function.
func (r *roomLocks) lock(roomID domain.RoomID) func() {
	r.mu.Lock()
	m, exists := r.locks[roomID]
	if !exists {
		m = &sync.Mutex{}
		r.locks[roomID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
