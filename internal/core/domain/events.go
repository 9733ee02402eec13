package domain

import (
	"encoding/json"
	"time"
)

// RoomEventType identifies a room lifecycle event.
type RoomEventType string

const (
	EventRoomCreated       RoomEventType = "ROOM_CREATED"
	EventRoomClosed        RoomEventType = "ROOM_CLOSED"
	EventParticipantJoined RoomEventType = "PARTICIPANT_JOINED"
	EventParticipantLeft   RoomEventType = "PARTICIPANT_LEFT"
	EventProducerCreated   RoomEventType = "PRODUCER_CREATED"
	EventProducerClosed    RoomEventType = "PRODUCER_CLOSED"
)

// RoomEvent is published best-effort to an external event sink; delivery
// never affects signaling.
type RoomEvent struct {
	EventID    string          `json:"eventId"`
	EventType  RoomEventType   `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	RoomID     RoomID          `json:"roomId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
