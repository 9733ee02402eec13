package signal

import (
	"sync"

	"roomcast/internal/core/domain"
	"roomcast/pkg/utils"

	"go.uber.org/zap"
)

// Conn is the transport handle stored per connection. *websocket.Conn
// satisfies it; tests substitute a capture fake.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Connection pairs a transport handle with its session state. Writes are
// serialized through writeMu so concurrent broadcasts to the same target
// never interleave partial frames.
type Connection struct {
	ID      domain.ConnectionID
	Session *domain.SessionContext

	conn    Conn
	writeMu sync.Mutex
}

// Send writes one JSON message to the connection.
func (c *Connection) Send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// ConnectionRegistry maps live connection ids to their transport handle and
// session context. Created on connect, destroyed on disconnect.
type ConnectionRegistry struct {
	connections map[domain.ConnectionID]*Connection
	mu          sync.RWMutex

	logger *zap.SugaredLogger
}

func NewConnectionRegistry(logger *zap.SugaredLogger) *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[domain.ConnectionID]*Connection),
		logger:      logger,
	}
}

// Connect allocates a connection id and an empty session context for the
// given transport.
func (r *ConnectionRegistry) Connect(conn Conn) *Connection {
	id := domain.ConnectionID(utils.GenerateConnectionID())
	c := &Connection{
		ID:      id,
		Session: domain.NewSessionContext(id),
		conn:    conn,
	}

	r.mu.Lock()
	r.connections[id] = c
	r.mu.Unlock()

	r.logger.Debugw("connection registered", "connection_id", id)
	return c
}

func (r *ConnectionRegistry) Lookup(id domain.ConnectionID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.connections[id]
	return c, exists
}

// Disconnect removes the connection and returns it so the caller can run
// cleanup. The second call for the same id returns nil.
func (r *ConnectionRegistry) Disconnect(id domain.ConnectionID) *Connection {
	r.mu.Lock()
	c, exists := r.connections[id]
	if exists {
		delete(r.connections, id)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}
	r.logger.Debugw("connection removed", "connection_id", id)
	return c
}

// Send writes a message to one connection by id.
func (r *ConnectionRegistry) Send(id domain.ConnectionID, v interface{}) error {
	c, exists := r.Lookup(id)
	if !exists {
		return domain.ErrConnectionNotFound
	}
	return c.Send(v)
}

func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
