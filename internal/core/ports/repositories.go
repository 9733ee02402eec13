package ports

import (
	"context"

	"roomcast/internal/core/domain"
)

// RoomDirectory is the single source of truth for rooms: metadata, the
// participant/producer sets, the connections bound to each room and the
// cached RouterInfo.
type RoomDirectory interface {
	CreateRoom(ctx context.Context, roomID domain.RoomID, hostID domain.UserID, name string) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error)
	RoomExists(ctx context.Context, roomID domain.RoomID) bool
	ListRooms(ctx context.Context) []*domain.Room
	DeleteRoom(ctx context.Context, roomID domain.RoomID)

	AddParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	RemoveParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID)
	Participants(ctx context.Context, roomID domain.RoomID) []domain.UserID
	IsEmpty(ctx context.Context, roomID domain.RoomID) bool

	AddConnection(ctx context.Context, roomID domain.RoomID, connID domain.ConnectionID) error
	RemoveConnection(ctx context.Context, roomID domain.RoomID, connID domain.ConnectionID)
	Connections(ctx context.Context, roomID domain.RoomID) []domain.ConnectionID

	AddProducer(ctx context.Context, roomID domain.RoomID, producerID domain.ProducerID) error
	RemoveProducer(ctx context.Context, roomID domain.RoomID, producerID domain.ProducerID)
	Producers(ctx context.Context, roomID domain.RoomID) []domain.ProducerID

	SaveRouterInfo(ctx context.Context, roomID domain.RoomID, info *domain.RouterInfo)
	GetRouterInfo(ctx context.Context, roomID domain.RoomID) (*domain.RouterInfo, error)
}
