package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
	"roomcast/internal/infrastructure/monitoring"
	"roomcast/pkg/apperrors"

	"go.uber.org/zap"
)

// SignalingDispatcher parses inbound protocol messages, executes the
// matching action against the room directory and SFU, and emits direct
// replies plus room broadcasts.
type SignalingDispatcher struct {
	directory ports.RoomDirectory
	registry  *ConnectionRegistry
	sfu       ports.SfuClient
	events    ports.RoomEventPublisher
	metrics   *monitoring.PrometheusCollector
	locks     *roomLocks
	logger    *zap.SugaredLogger
}

func NewSignalingDispatcher(
	directory ports.RoomDirectory,
	registry *ConnectionRegistry,
	sfuClient ports.SfuClient,
	events ports.RoomEventPublisher,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *SignalingDispatcher {
	return &SignalingDispatcher{
		directory: directory,
		registry:  registry,
		sfu:       sfuClient,
		events:    events,
		metrics:   metrics,
		locks:     newRoomLocks(),
		logger:    logger,
	}
}

// Dispatch routes one inbound message. Handler errors are mapped to a single
// error reply here; no handled error closes the connection.
func (d *SignalingDispatcher) Dispatch(ctx context.Context, conn *Connection, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.replyError(conn, "unknown", apperrors.NewProtocolError("message is not a valid JSON object"))
		return
	}
	if env.Action == "" {
		d.replyError(conn, "unknown", apperrors.NewProtocolError("action is required"))
		return
	}

	d.logger.Debugw("incoming action", "action", env.Action, "connection_id", conn.ID)

	var err error
	switch env.Action {
	case "createRoom":
		err = d.handleCreateRoom(ctx, conn, raw)
	case "joinRoom":
		err = d.handleJoinRoom(ctx, conn, raw)
	case "leaveRoom":
		err = d.handleLeaveRoom(ctx, conn, raw)
	case "getRouterRtpCapabilities":
		err = d.handleRouterCapabilities(ctx, conn, raw)
	case "createTransport":
		err = d.handleCreateTransport(ctx, conn, raw)
	case "connectTransport":
		err = d.handleConnectTransport(ctx, conn, raw)
	case "produce":
		err = d.handleProduce(ctx, conn, raw)
	case "consume":
		err = d.handleConsume(ctx, conn, raw)
	case "resumeConsumer":
		err = d.handleResumeConsumer(ctx, conn, raw)
	default:
		err = apperrors.NewProtocolError(fmt.Sprintf("unknown action: %s", env.Action))
	}

	if err != nil {
		d.logger.Warnw("action failed", "action", env.Action, "connection_id", conn.ID, "error", err)
		d.replyError(conn, env.Action, err)
		if d.metrics != nil {
			d.metrics.RecordAction(env.Action, "error")
		}
		return
	}
	if d.metrics != nil {
		d.metrics.RecordAction(env.Action, "ok")
	}
}

func (d *SignalingDispatcher) handleCreateRoom(ctx context.Context, conn *Connection, raw []byte) error {
	var req createRoomRequest
	if err := decodeInto(raw, "createRoom", &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}
	roomID := domain.RoomID(req.RoomID)
	hostID := domain.UserID(req.HostID)

	unlock := d.locks.lock(roomID)
	defer unlock()

	room, err := d.directory.CreateRoom(ctx, roomID, hostID, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrRoomExists) {
			return apperrors.NewConflictError(fmt.Sprintf("room already exists: %s", roomID))
		}
		return err
	}

	routerInfo, err := d.sfu.CreateRouter(ctx, roomID)
	if err != nil {
		// A room with no router cannot be joined; do not leave it behind.
		d.directory.DeleteRoom(ctx, roomID)
		return err
	}
	d.directory.SaveRouterInfo(ctx, roomID, routerInfo)

	if err := d.directory.AddParticipant(ctx, roomID, hostID); err != nil {
		return err
	}
	conn.Session.Bind(roomID, hostID, domain.RoleBroadcaster)
	if err := d.directory.AddConnection(ctx, roomID, conn.ID); err != nil {
		return err
	}

	if d.metrics != nil {
		d.metrics.RecordRoomCreated()
		d.metrics.RecordParticipantJoined()
	}
	d.publishEvent(ctx, domain.EventRoomCreated, roomID, map[string]any{"hostId": hostID, "name": req.Name})
	d.publishEvent(ctx, domain.EventParticipantJoined, roomID, map[string]any{"userId": hostID, "role": domain.RoleBroadcaster})

	room, _ = d.directory.GetRoom(ctx, roomID)
	return conn.Send(roomCreatedReply{
		Type:         "roomCreated",
		RoomID:       roomID,
		Room:         toRoomView(room),
		Router:       toRouterView(routerInfo),
		Participants: d.directory.Participants(ctx, roomID),
		Producers:    d.directory.Producers(ctx, roomID),
	})
}

func (d *SignalingDispatcher) handleJoinRoom(ctx context.Context, conn *Connection, raw []byte) error {
	var req joinRoomRequest
	if err := decodeInto(raw, "joinRoom", &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}
	roomID := domain.RoomID(req.RoomID)
	userID := domain.UserID(req.UserID)
	role, _ := domain.RoleFromValue(req.Role)

	unlock := d.locks.lock(roomID)
	defer unlock()

	if _, err := d.directory.GetRoom(ctx, roomID); err != nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("room %s", roomID))
	}
	routerInfo, err := d.directory.GetRouterInfo(ctx, roomID)
	if err != nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("router info for room %s", roomID))
	}

	if err := d.directory.AddParticipant(ctx, roomID, userID); err != nil {
		return err
	}
	conn.Session.Bind(roomID, userID, role)
	if err := d.directory.AddConnection(ctx, roomID, conn.ID); err != nil {
		return err
	}

	if d.metrics != nil {
		d.metrics.RecordParticipantJoined()
	}
	d.publishEvent(ctx, domain.EventParticipantJoined, roomID, map[string]any{"userId": userID, "role": role})

	return conn.Send(roomJoinedReply{
		Type:         "roomJoined",
		RoomID:       roomID,
		UserID:       userID,
		Role:         role,
		Router:       toRouterView(routerInfo),
		Participants: d.directory.Participants(ctx, roomID),
		Producers:    d.directory.Producers(ctx, roomID),
	})
}

func (d *SignalingDispatcher) handleLeaveRoom(ctx context.Context, conn *Connection, raw []byte) error {
	var req leaveRoomRequest
	if err := decodeInto(raw, "leaveRoom", &req); err != nil {
		return err
	}

	boundRoom, boundUser, bound := conn.Session.Bound()
	roomID := domain.RoomID(req.RoomID)
	userID := domain.UserID(req.UserID)
	if roomID == "" && bound {
		roomID = boundRoom
	}
	if userID == "" && bound {
		userID = boundUser
	}
	if roomID == "" || userID == "" {
		return apperrors.NewValidationError("missing roomId or userId for leaveRoom")
	}

	d.Cleanup(ctx, conn)
	conn.Session.Clear()

	return conn.Send(roomLeftReply{
		Type:   "roomLeft",
		RoomID: roomID,
		UserID: userID,
	})
}

// handleRouterCapabilities returns the cached router info, lazily creating
// one when absent. It never fails room-not-found; callers should have
// created the room first.
func (d *SignalingDispatcher) handleRouterCapabilities(ctx context.Context, conn *Connection, raw []byte) error {
	var req routerCapabilitiesRequest
	if err := decodeInto(raw, "getRouterRtpCapabilities", &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}
	roomID := domain.RoomID(req.RoomID)

	unlock := d.locks.lock(roomID)
	routerInfo, err := d.directory.GetRouterInfo(ctx, roomID)
	if err != nil {
		routerInfo, err = d.sfu.CreateRouter(ctx, roomID)
		if err != nil {
			unlock()
			return err
		}
		d.directory.SaveRouterInfo(ctx, roomID, routerInfo)
	}
	unlock()

	return conn.Send(routerCapabilitiesReply{
		Type:   "routerRtpCapabilities",
		RoomID: roomID,
		Router: toRouterView(routerInfo),
	})
}

func (d *SignalingDispatcher) handleCreateTransport(ctx context.Context, conn *Connection, raw []byte) error {
	var req createTransportRequest
	if err := decodeInto(raw, "createTransport", &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	transport, err := d.sfu.CreateTransport(ctx, domain.RoomID(req.RoomID), req.Direction)
	if err != nil {
		return err
	}

	return conn.Send(transportCreatedReply{
		Type:      "transportCreated",
		RoomID:    domain.RoomID(req.RoomID),
		Direction: req.Direction,
		Transport: transport,
	})
}

func (d *SignalingDispatcher) handleConnectTransport(ctx context.Context, conn *Connection, raw []byte) error {
	var req connectTransportRequest
	if err := decodeInto(raw, "connectTransport", &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := d.sfu.ConnectTransport(ctx, domain.RoomID(req.RoomID), req.TransportID, req.DtlsParameters)
	if err != nil {
		return err
	}

	return conn.Send(transportConnectedReply{
		Type:        "transportConnected",
		RoomID:      domain.RoomID(req.RoomID),
		TransportID: req.TransportID,
		Result:      result,
	})
}

func (d *SignalingDispatcher) handleProduce(ctx context.Context, conn *Connection, raw []byte) error {
	var req produceRequest
	if err := decodeInto(raw, "produce", &req); err != nil {
		return err
	}
	if req.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	roomID := domain.RoomID(req.RoomID)

	// Forward the full inbound payload; its media parameters stay opaque.
	result, err := d.sfu.CreateProducer(ctx, roomID, raw)
	if err != nil {
		return err
	}

	reply := producedReply{
		Type:     "produced",
		RoomID:   roomID,
		Producer: result,
	}

	var decoded struct {
		ProducerID string `json:"producerId"`
	}
	if len(result) > 0 {
		_ = json.Unmarshal(result, &decoded)
	}

	if decoded.ProducerID != "" {
		producerID := domain.ProducerID(decoded.ProducerID)
		reply.ProducerID = producerID

		unlock := d.locks.lock(roomID)
		conn.Session.AddProducer(producerID)
		if err := d.directory.AddProducer(ctx, roomID, producerID); err != nil {
			d.logger.Warnw("produced for unknown room", "room_id", roomID, "producer_id", producerID)
		}
		d.broadcastToRoom(ctx, roomID, conn.ID, newProducerNotification{
			Type:       "newProducer",
			RoomID:     roomID,
			ProducerID: producerID,
		})
		unlock()

		d.publishEvent(ctx, domain.EventProducerCreated, roomID, map[string]any{"producerId": producerID})
	}

	return conn.Send(reply)
}

func (d *SignalingDispatcher) handleConsume(ctx context.Context, conn *Connection, raw []byte) error {
	var req consumeRequest
	if err := decodeInto(raw, "consume", &req); err != nil {
		return err
	}
	if req.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}

	result, err := d.sfu.CreateConsumer(ctx, domain.RoomID(req.RoomID), raw)
	if err != nil {
		return err
	}

	return conn.Send(consumedReply{
		Type:     "consumed",
		RoomID:   domain.RoomID(req.RoomID),
		Consumer: result,
	})
}

func (d *SignalingDispatcher) handleResumeConsumer(ctx context.Context, conn *Connection, raw []byte) error {
	var req resumeConsumerRequest
	if err := decodeInto(raw, "resumeConsumer", &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := d.sfu.ResumeConsumer(ctx, domain.RoomID(req.RoomID), req.ConsumerID)
	if err != nil {
		return err
	}

	return conn.Send(consumerResumedReply{
		Type:       "consumerResumed",
		RoomID:     domain.RoomID(req.RoomID),
		ConsumerID: req.ConsumerID,
		Result:     result,
	})
}

// Cleanup removes the connection's participant and producers from its bound
// room and tears the room down when the last participant is gone. It is
// invoked by leaveRoom and by disconnect and is safe to invoke twice for the
// same connection: the second call finds no bound room and no-ops.
func (d *SignalingDispatcher) Cleanup(ctx context.Context, conn *Connection) {
	roomID, _, bound := conn.Session.Bound()
	if !bound {
		return
	}

	unlock := d.locks.lock(roomID)
	defer unlock()

	// Re-check under the room lock; a concurrent leaveRoom may have already
	// cleaned up this connection.
	roomID, userID, bound := conn.Session.Bound()
	if !bound {
		return
	}

	d.directory.RemoveParticipant(ctx, roomID, userID)
	d.directory.RemoveConnection(ctx, roomID, conn.ID)
	if d.metrics != nil {
		d.metrics.RecordParticipantLeft()
	}
	d.publishEvent(ctx, domain.EventParticipantLeft, roomID, map[string]any{"userId": userID})

	for _, producerID := range conn.Session.Producers() {
		d.directory.RemoveProducer(ctx, roomID, producerID)
		d.broadcastToRoom(ctx, roomID, conn.ID, producerClosedNotification{
			Type:       "producerClosed",
			RoomID:     roomID,
			ProducerID: producerID,
		})
		d.publishEvent(ctx, domain.EventProducerClosed, roomID, map[string]any{"producerId": producerID})
	}
	conn.Session.Clear()

	if d.directory.IsEmpty(ctx, roomID) && d.directory.RoomExists(ctx, roomID) {
		// Best-effort: local state is torn down even when the SFU call fails.
		if err := d.sfu.CloseRoom(ctx, roomID); err != nil {
			d.logger.Debugw("ignored sfu close error", "room_id", roomID, "error", err)
		}
		d.directory.DeleteRoom(ctx, roomID)
		if d.metrics != nil {
			d.metrics.RecordRoomClosed()
		}
		d.publishEvent(ctx, domain.EventRoomClosed, roomID, nil)
		d.logger.Infow("room closed due to no participants", "room_id", roomID)
	}
}

// broadcastToRoom sends a notification to every other connection bound to
// the room. Send failures to individual targets are logged and skipped.
func (d *SignalingDispatcher) broadcastToRoom(ctx context.Context, roomID domain.RoomID, exclude domain.ConnectionID, message interface{}) {
	for _, connID := range d.directory.Connections(ctx, roomID) {
		if connID == exclude {
			continue
		}
		if err := d.registry.Send(connID, message); err != nil {
			d.logger.Debugw("broadcast send failed", "room_id", roomID, "connection_id", connID, "error", err)
			continue
		}
		if d.metrics != nil {
			d.metrics.RecordBroadcast()
		}
	}
}

func (d *SignalingDispatcher) publishEvent(ctx context.Context, eventType domain.RoomEventType, roomID domain.RoomID, payload map[string]any) {
	if d.events == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	d.events.Publish(ctx, &domain.RoomEvent{
		EventType: eventType,
		RoomID:    roomID,
		Payload:   raw,
	})
}

// replyError maps any handler error to the single error reply shape.
func (d *SignalingDispatcher) replyError(conn *Connection, action string, err error) {
	message := err.Error()
	if appErr := apperrors.GetAppError(err); appErr != nil {
		message = appErr.Message
	}
	if sendErr := conn.Send(errorReply{Type: "error", Action: action, Message: message}); sendErr != nil {
		d.logger.Debugw("failed to send error reply", "connection_id", conn.ID, "error", sendErr)
	}
}
