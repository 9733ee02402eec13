package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roomcast/internal/core/ports"
	"roomcast/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, ports.RoomDirectory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	directory := memory.NewMemoryRoomDirectory()
	router := gin.New()
	NewRoomHandler(directory).SetupRoutes(router)
	return router, directory
}

func TestListRooms_Empty(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Rooms []json.RawMessage `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Rooms)
}

func TestListRooms(t *testing.T) {
	router, directory := setupRouter(t)
	ctx := context.Background()
	_, err := directory.CreateRoom(ctx, "r1", "h1", "Morning Show")
	require.NoError(t, err)
	require.NoError(t, directory.AddParticipant(ctx, "r1", "h1"))
	require.NoError(t, directory.AddParticipant(ctx, "r1", "v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Rooms []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			HostID       string `json:"hostId"`
			Participants int    `json:"participantCount"`
		} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, "r1", body.Rooms[0].ID)
	assert.Equal(t, "Morning Show", body.Rooms[0].Name)
	assert.Equal(t, "h1", body.Rooms[0].HostID)
	assert.Equal(t, 2, body.Rooms[0].Participants)
}

func TestGetRoom(t *testing.T) {
	router, directory := setupRouter(t)
	ctx := context.Background()
	_, err := directory.CreateRoom(ctx, "r1", "h1", "Morning Show")
	require.NoError(t, err)
	require.NoError(t, directory.AddParticipant(ctx, "r1", "h1"))
	require.NoError(t, directory.AddProducer(ctx, "r1", "p1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/r1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
		Participants []string `json:"participants"`
		Producers    []string `json:"producers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "r1", body.Room.ID)
	assert.Equal(t, []string{"h1"}, body.Participants)
	assert.Equal(t, []string{"p1"}, body.Producers)
}

func TestGetRoom_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
