package http

import (
	"net/http"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// RoomHandler exposes a read-only view over the live room directory. All
// mutation goes through the signaling endpoint.
type RoomHandler struct {
	directory ports.RoomDirectory
}

func NewRoomHandler(directory ports.RoomDirectory) *RoomHandler {
	return &RoomHandler{directory: directory}
}

func (h *RoomHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id", h.GetRoom)
	}
}

type roomSummary struct {
	ID           domain.RoomID `json:"id"`
	Name         string        `json:"name"`
	HostID       domain.UserID `json:"hostId"`
	RouterID     string        `json:"routerId"`
	CreatedAt    time.Time     `json:"createdAt"`
	Participants int           `json:"participantCount"`
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms := h.directory.ListRooms(c.Request.Context())

	summaries := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, roomSummary{
			ID:           room.ID,
			Name:         room.Name,
			HostID:       room.HostID,
			RouterID:     room.RouterID,
			CreatedAt:    room.CreatedAt,
			Participants: len(h.directory.Participants(c.Request.Context(), room.ID)),
		})
	}

	c.JSON(http.StatusOK, gin.H{"rooms": summaries})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := h.directory.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": roomSummary{
			ID:           room.ID,
			Name:         room.Name,
			HostID:       room.HostID,
			RouterID:     room.RouterID,
			CreatedAt:    room.CreatedAt,
			Participants: len(h.directory.Participants(c.Request.Context(), room.ID)),
		},
		"participants": h.directory.Participants(c.Request.Context(), roomID),
		"producers":    h.directory.Producers(c.Request.Context(), roomID),
	})
}
