package signal

import (
	"encoding/json"
	"fmt"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/pkg/apperrors"
)

// envelope carries the action selector; the rest of the message is decoded
// into the per-action request type below so missing or malformed fields are
// rejected before any handler logic runs.
type envelope struct {
	Action string `json:"action"`
}

type createRoomRequest struct {
	RoomID string `json:"roomId"`
	HostID string `json:"hostId"`
	Name   string `json:"name"`
}

func (r *createRoomRequest) validate() error {
	if r.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	if r.HostID == "" {
		return apperrors.NewValidationError("hostId is required")
	}
	return nil
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (r *joinRoomRequest) validate() error {
	if r.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	if r.UserID == "" {
		return apperrors.NewValidationError("userId is required")
	}
	if r.Role == "" {
		return apperrors.NewValidationError("role is required")
	}
	if _, err := domain.RoleFromValue(r.Role); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// leaveRoomRequest fields fall back to the session's current bindings when
// omitted, so nothing is required at decode time.
type leaveRoomRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type routerCapabilitiesRequest struct {
	RoomID string `json:"roomId"`
}

func (r *routerCapabilitiesRequest) validate() error {
	if r.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	return nil
}

type createTransportRequest struct {
	RoomID    string `json:"roomId"`
	Direction string `json:"direction"`
}

func (r *createTransportRequest) validate() error {
	if r.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	if r.Direction == "" {
		return apperrors.NewValidationError("direction is required")
	}
	return nil
}

type connectTransportRequest struct {
	RoomID         string          `json:"roomId"`
	TransportID    string          `json:"transportId"`
	DtlsParameters json.RawMessage `json:"dtlsParameters"`
}

func (r *connectTransportRequest) validate() error {
	if r.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	if r.TransportID == "" {
		return apperrors.NewValidationError("transportId is required")
	}
	if len(r.DtlsParameters) == 0 || string(r.DtlsParameters) == "null" {
		return apperrors.NewValidationError("dtlsParameters is required")
	}
	return nil
}

// produceRequest and consumeRequest keep the full inbound payload; it is
// forwarded to the SFU verbatim.
type produceRequest struct {
	RoomID string `json:"roomId"`
}

type consumeRequest struct {
	RoomID string `json:"roomId"`
}

type resumeConsumerRequest struct {
	RoomID     string `json:"roomId"`
	ConsumerID string `json:"consumerId"`
}

func (r *resumeConsumerRequest) validate() error {
	if r.RoomID == "" {
		return apperrors.NewValidationError("roomId is required")
	}
	if r.ConsumerID == "" {
		return apperrors.NewValidationError("consumerId is required")
	}
	return nil
}

// Outbound message shapes.

type roomView struct {
	ID        domain.RoomID `json:"id"`
	Name      string        `json:"name"`
	HostID    domain.UserID `json:"hostId"`
	RouterID  string        `json:"routerId"`
	CreatedAt time.Time     `json:"createdAt"`
}

type routerView struct {
	RoomID          domain.RoomID   `json:"roomId"`
	RouterID        string          `json:"routerId"`
	RtpCapabilities json.RawMessage `json:"rtpCapabilities"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func toRoomView(room *domain.Room) roomView {
	return roomView{
		ID:        room.ID,
		Name:      room.Name,
		HostID:    room.HostID,
		RouterID:  room.RouterID,
		CreatedAt: room.CreatedAt,
	}
}

func toRouterView(info *domain.RouterInfo) routerView {
	return routerView{
		RoomID:          info.RoomID,
		RouterID:        info.RouterID,
		RtpCapabilities: info.RtpCapabilities,
		CreatedAt:       info.CreatedAt,
	}
}

type roomCreatedReply struct {
	Type         string              `json:"type"`
	RoomID       domain.RoomID       `json:"roomId"`
	Room         roomView            `json:"room"`
	Router       routerView          `json:"router"`
	Participants []domain.UserID     `json:"participants"`
	Producers    []domain.ProducerID `json:"producers"`
}

type roomJoinedReply struct {
	Type         string              `json:"type"`
	RoomID       domain.RoomID       `json:"roomId"`
	UserID       domain.UserID       `json:"userId"`
	Role         domain.Role         `json:"role"`
	Router       routerView          `json:"router"`
	Participants []domain.UserID     `json:"participants"`
	Producers    []domain.ProducerID `json:"producers"`
}

type roomLeftReply struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
}

type routerCapabilitiesReply struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	Router routerView    `json:"router"`
}

type transportCreatedReply struct {
	Type      string          `json:"type"`
	RoomID    domain.RoomID   `json:"roomId"`
	Direction string          `json:"direction"`
	Transport json.RawMessage `json:"transport"`
}

type transportConnectedReply struct {
	Type        string          `json:"type"`
	RoomID      domain.RoomID   `json:"roomId"`
	TransportID string          `json:"transportId"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type producedReply struct {
	Type       string            `json:"type"`
	RoomID     domain.RoomID     `json:"roomId"`
	Producer   json.RawMessage   `json:"producer,omitempty"`
	ProducerID domain.ProducerID `json:"producerId,omitempty"`
}

type consumedReply struct {
	Type     string          `json:"type"`
	RoomID   domain.RoomID   `json:"roomId"`
	Consumer json.RawMessage `json:"consumer,omitempty"`
}

type consumerResumedReply struct {
	Type       string          `json:"type"`
	RoomID     domain.RoomID   `json:"roomId"`
	ConsumerID string          `json:"consumerId"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type newProducerNotification struct {
	Type       string            `json:"type"`
	RoomID     domain.RoomID     `json:"roomId"`
	ProducerID domain.ProducerID `json:"producerId"`
}

type producerClosedNotification struct {
	Type       string            `json:"type"`
	RoomID     domain.RoomID     `json:"roomId"`
	ProducerID domain.ProducerID `json:"producerId"`
}

type errorReply struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// decodeInto unmarshals the raw message into the typed request, mapping
// malformed payloads to a validation error.
func decodeInto(raw []byte, action string, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid %s payload: %v", action, err))
	}
	return nil
}
