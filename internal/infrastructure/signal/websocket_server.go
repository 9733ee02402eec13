package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"roomcast/internal/core/ports"
	"roomcast/internal/infrastructure/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RateLimit is the optional per-connection inbound message limit. Disabled
// when MessagesPerSecond is zero.
type RateLimit struct {
	MessagesPerSecond float64
	Burst             int
}

// WebSocketServer owns the signaling endpoint: it upgrades connections,
// pumps inbound messages to the dispatcher in arrival order and runs
// disconnect cleanup exactly once per connection.
type WebSocketServer struct {
	registry   *ConnectionRegistry
	dispatcher *SignalingDispatcher
	directory  ports.RoomDirectory
	metrics    *monitoring.PrometheusCollector

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
	rateLimit    RateLimit

	logger *zap.SugaredLogger
}

func NewWebSocketServer(
	registry *ConnectionRegistry,
	dispatcher *SignalingDispatcher,
	directory ports.RoomDirectory,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	return &WebSocketServer{
		registry:     registry,
		dispatcher:   dispatcher,
		directory:    directory,
		metrics:      metrics,
		pingInterval: 30 * time.Second, // Default ping interval
		pongTimeout:  60 * time.Second, // Default pong timeout
		writeTimeout: 10 * time.Second, // Default write timeout
		logger:       logger,
	}
}

// SetPingInterval sets ping interval for WebSocket connections
func (s *WebSocketServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

// SetPongTimeout sets pong timeout for WebSocket connections
func (s *WebSocketServer) SetPongTimeout(timeout time.Duration) {
	s.pongTimeout = timeout
}

// SetWriteTimeout sets the deadline for outbound control frames
func (s *WebSocketServer) SetWriteTimeout(timeout time.Duration) {
	s.writeTimeout = timeout
}

// SetRateLimit enables per-connection inbound message rate limiting.
func (s *WebSocketServer) SetRateLimit(limit RateLimit) {
	s.rateLimit = limit
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer wsConn.Close()

	conn := s.registry.Connect(wsConn)
	if s.metrics != nil {
		s.metrics.RecordConnectionOpened()
	}
	s.logger.Infow("client connected", "connection_id", conn.ID, "remote_addr", r.RemoteAddr)

	wsConn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	var limiter *rate.Limiter
	if s.rateLimit.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.rateLimit.MessagesPerSecond), s.rateLimit.Burst)
	}

	messageChan := make(chan []byte, 10)
	errorChan := make(chan error, 1)
	stopReader := make(chan struct{})
	defer close(stopReader)

	// Reader goroutine: one connection's messages are processed strictly in
	// arrival order by the select loop below. stopReader unblocks a pending
	// send once the loop below stops consuming, so the goroutine cannot
	// outlive the handler.
	go func() {
		for {
			_, data, err := wsConn.ReadMessage()
			if err != nil {
				select {
				case errorChan <- err:
				case <-stopReader:
				}
				return
			}
			wsConn.SetReadDeadline(time.Now().Add(s.pongTimeout))
			select {
			case messageChan <- data:
			case <-stopReader:
				return
			}
		}
	}()

	for {
		select {
		case data := <-messageChan:
			if limiter != nil && !limiter.Allow() {
				s.logger.Warnw("message rate limit exceeded", "connection_id", conn.ID)
				conn.Send(errorReply{Type: "error", Action: "unknown", Message: "message rate limit exceeded"})
				continue
			}
			s.dispatcher.Dispatch(r.Context(), conn, data)

		case <-pingTicker.C:
			// WriteControl is safe to call concurrently with broadcast writes.
			if err := wsConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				s.logger.Infow("error sending ping", "connection_id", conn.ID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("error reading message", "connection_id", conn.ID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	// Disconnect runs the same cleanup path as an explicit leaveRoom. The
	// registry hands the connection out exactly once, so cleanup cannot run
	// twice for one disconnect.
	if removed := s.registry.Disconnect(conn.ID); removed != nil {
		s.dispatcher.Cleanup(context.Background(), removed)
	}
	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
	}
	s.logger.Infow("client disconnected", "connection_id", conn.ID)
}

func (s *WebSocketServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"connections": s.registry.Count(),
		"rooms":       len(s.directory.ListRooms(r.Context())),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
