package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type RoomID string
type UserID string
type ConnectionID string
type ProducerID string

// Room is broadcast-room metadata. The id is client-supplied and unique;
// RouterID is assigned exactly once from the SFU's router-creation response.
type Room struct {
	ID        RoomID
	Name      string
	HostID    UserID
	RouterID  string
	CreatedAt time.Time
}

// RouterInfo caches the SFU router created for a room so repeated
// capability requests do not hit the SFU again.
type RouterInfo struct {
	RoomID          RoomID
	RouterID        string
	RtpCapabilities json.RawMessage
	CreatedAt       time.Time
}

type Role string

const (
	RoleBroadcaster Role = "BROADCASTER"
	RoleViewer      Role = "VIEWER"
)

// RoleFromValue parses a wire role value.
func RoleFromValue(value string) (Role, error) {
	switch Role(value) {
	case RoleBroadcaster, RoleViewer:
		return Role(value), nil
	default:
		return "", fmt.Errorf("unknown role: %s", value)
	}
}

// User is a room-scoped participant. It lives exactly as long as the
// participant is joined to the room.
type User struct {
	ID       UserID
	RoomID   RoomID
	Role     Role
	JoinedAt time.Time
}
