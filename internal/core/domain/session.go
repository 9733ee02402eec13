package domain

import "sync"

// SessionContext tracks which room, user and producers a signaling
// connection is currently bound to. It is owned by exactly one connection;
// the mutex only covers the disconnect-vs-leave race on the same connection.
type SessionContext struct {
	ConnectionID ConnectionID

	mu          sync.Mutex
	userID      UserID
	roomID      RoomID
	role        Role
	producerIDs map[ProducerID]struct{}
}

func NewSessionContext(connID ConnectionID) *SessionContext {
	return &SessionContext{
		ConnectionID: connID,
		producerIDs:  make(map[ProducerID]struct{}),
	}
}

// Bind attaches the session to a room.
func (s *SessionContext) Bind(roomID RoomID, userID UserID, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.userID = userID
	s.role = role
}

// Bound reports the current room/user binding. ok is false when the session
// is not attached to any room.
func (s *SessionContext) Bound() (RoomID, UserID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == "" || s.userID == "" {
		return "", "", false
	}
	return s.roomID, s.userID, true
}

func (s *SessionContext) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *SessionContext) AddProducer(id ProducerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.producerIDs[id] = struct{}{}
}

// Producers returns the owned producer ids.
func (s *SessionContext) Producers() []ProducerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]ProducerID, 0, len(s.producerIDs))
	for id := range s.producerIDs {
		ids = append(ids, id)
	}
	return ids
}

// Clear resets the binding and owned producers without destroying the
// connection, so it can join another room later.
func (s *SessionContext) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.userID = ""
	s.role = ""
	s.producerIDs = make(map[ProducerID]struct{})
}
