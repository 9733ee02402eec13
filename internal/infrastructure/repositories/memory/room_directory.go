package memory

import (
	"context"
	"sync"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
)

type roomState struct {
	room         *domain.Room
	participants map[domain.UserID]struct{}
	producers    map[domain.ProducerID]struct{}
	connections  map[domain.ConnectionID]struct{}
}

// MemoryRoomDirectory holds all live room state for the process. Router info
// is kept in its own map because a router can be created lazily for a room id
// that has no Room yet.
type MemoryRoomDirectory struct {
	rooms   map[domain.RoomID]*roomState
	routers map[domain.RoomID]*domain.RouterInfo
	mu      sync.RWMutex
}

func NewMemoryRoomDirectory() ports.RoomDirectory {
	return &MemoryRoomDirectory{
		rooms:   make(map[domain.RoomID]*roomState),
		routers: make(map[domain.RoomID]*domain.RouterInfo),
	}
}

func (d *MemoryRoomDirectory) CreateRoom(ctx context.Context, roomID domain.RoomID, hostID domain.UserID, name string) (*domain.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.rooms[roomID]; exists {
		return nil, domain.ErrRoomExists
	}

	room := &domain.Room{
		ID:        roomID,
		Name:      name,
		HostID:    hostID,
		CreatedAt: time.Now(),
	}
	d.rooms[roomID] = &roomState{
		room:         room,
		participants: make(map[domain.UserID]struct{}),
		producers:    make(map[domain.ProducerID]struct{}),
		connections:  make(map[domain.ConnectionID]struct{}),
	}
	return room, nil
}

func (d *MemoryRoomDirectory) GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	return state.room, nil
}

func (d *MemoryRoomDirectory) RoomExists(ctx context.Context, roomID domain.RoomID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.rooms[roomID]
	return exists
}

func (d *MemoryRoomDirectory) ListRooms(ctx context.Context) []*domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]*domain.Room, 0, len(d.rooms))
	for _, state := range d.rooms {
		rooms = append(rooms, state.room)
	}
	return rooms
}

// DeleteRoom removes the room and everything attached to it, including the
// cached router info.
func (d *MemoryRoomDirectory) DeleteRoom(ctx context.Context, roomID domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.rooms, roomID)
	delete(d.routers, roomID)
}

func (d *MemoryRoomDirectory) AddParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	state.participants[userID] = struct{}{}
	return nil
}

func (d *MemoryRoomDirectory) RemoveParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if state, exists := d.rooms[roomID]; exists {
		delete(state.participants, userID)
	}
}

func (d *MemoryRoomDirectory) Participants(ctx context.Context, roomID domain.RoomID) []domain.UserID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return nil
	}
	users := make([]domain.UserID, 0, len(state.participants))
	for id := range state.participants {
		users = append(users, id)
	}
	return users
}

// IsEmpty is the sole trigger for room teardown.
func (d *MemoryRoomDirectory) IsEmpty(ctx context.Context, roomID domain.RoomID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return true
	}
	return len(state.participants) == 0
}

func (d *MemoryRoomDirectory) AddConnection(ctx context.Context, roomID domain.RoomID, connID domain.ConnectionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	state.connections[connID] = struct{}{}
	return nil
}

func (d *MemoryRoomDirectory) RemoveConnection(ctx context.Context, roomID domain.RoomID, connID domain.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if state, exists := d.rooms[roomID]; exists {
		delete(state.connections, connID)
	}
}

func (d *MemoryRoomDirectory) Connections(ctx context.Context, roomID domain.RoomID) []domain.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return nil
	}
	conns := make([]domain.ConnectionID, 0, len(state.connections))
	for id := range state.connections {
		conns = append(conns, id)
	}
	return conns
}

func (d *MemoryRoomDirectory) AddProducer(ctx context.Context, roomID domain.RoomID, producerID domain.ProducerID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	state.producers[producerID] = struct{}{}
	return nil
}

func (d *MemoryRoomDirectory) RemoveProducer(ctx context.Context, roomID domain.RoomID, producerID domain.ProducerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if state, exists := d.rooms[roomID]; exists {
		delete(state.producers, producerID)
	}
}

func (d *MemoryRoomDirectory) Producers(ctx context.Context, roomID domain.RoomID) []domain.ProducerID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, exists := d.rooms[roomID]
	if !exists {
		return nil
	}
	producers := make([]domain.ProducerID, 0, len(state.producers))
	for id := range state.producers {
		producers = append(producers, id)
	}
	return producers
}

// SaveRouterInfo caches the router created for a room. The routerId is
// assigned exactly once onto the Room when the room exists.
func (d *MemoryRoomDirectory) SaveRouterInfo(ctx context.Context, roomID domain.RoomID, info *domain.RouterInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routers[roomID] = info
	if state, exists := d.rooms[roomID]; exists && state.room.RouterID == "" {
		state.room.RouterID = info.RouterID
	}
}

func (d *MemoryRoomDirectory) GetRouterInfo(ctx context.Context, roomID domain.RoomID) (*domain.RouterInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	info, exists := d.routers[roomID]
	if !exists {
		return nil, domain.ErrRouterNotFound
	}
	return info, nil
}
