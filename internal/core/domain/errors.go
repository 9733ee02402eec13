package domain

import "errors"

var (
	ErrRoomExists         = errors.New("room already exists")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRouterNotFound     = errors.New("router info not found")
	ErrConnectionNotFound = errors.New("connection not found")
)
