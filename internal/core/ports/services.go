package ports

import (
	"context"
	"encoding/json"

	"roomcast/internal/core/domain"
)

// SfuClient is the synchronous RPC facade over the external SFU. All bodies
// are opaque JSON except router creation, from which routerId and
// rtpCapabilities are extracted. Calls are never retried.
type SfuClient interface {
	CreateRouter(ctx context.Context, roomID domain.RoomID) (*domain.RouterInfo, error)
	GetRouterRtpCapabilities(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error)
	CreateTransport(ctx context.Context, roomID domain.RoomID, direction string) (json.RawMessage, error)
	ConnectTransport(ctx context.Context, roomID domain.RoomID, transportID string, dtlsParameters json.RawMessage) (json.RawMessage, error)
	CreateProducer(ctx context.Context, roomID domain.RoomID, payload json.RawMessage) (json.RawMessage, error)
	CreateConsumer(ctx context.Context, roomID domain.RoomID, payload json.RawMessage) (json.RawMessage, error)
	ResumeConsumer(ctx context.Context, roomID domain.RoomID, consumerID string) (json.RawMessage, error)
	CloseRoom(ctx context.Context, roomID domain.RoomID) error
}

// RoomEventPublisher delivers room lifecycle events to an external sink.
// Publishing is fire-and-forget from the caller's point of view.
type RoomEventPublisher interface {
	Publish(ctx context.Context, event *domain.RoomEvent)
	Close() error
}
