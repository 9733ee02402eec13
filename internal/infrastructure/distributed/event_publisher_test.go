package distributed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastRetry(maxAttempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestHTTPPublisher_DeliversEvent(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var bodies []domain.RoomEvent

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event domain.RoomEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, event)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPPublisherConfig{
		Endpoint: server.URL,
		Retry:    fastRetry(1),
	}, zaptest.NewLogger(t).Sugar())

	p.Publish(context.Background(), &domain.RoomEvent{
		EventType: domain.EventRoomCreated,
		RoomID:    "r1",
	})
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "/api/rooms/r1/events", paths[0])
	assert.Equal(t, domain.EventRoomCreated, bodies[0].EventType)
	assert.NotEmpty(t, bodies[0].EventID, "event id must be stamped before delivery")
	assert.False(t, bodies[0].OccurredAt.IsZero())
}

func TestHTTPPublisher_RetriesTransientFailure(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPPublisherConfig{
		Endpoint: server.URL,
		Retry:    fastRetry(5),
	}, zaptest.NewLogger(t).Sugar())

	p.Publish(context.Background(), &domain.RoomEvent{
		EventType: domain.EventParticipantJoined,
		RoomID:    "r1",
	})
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestHTTPPublisher_ExhaustedRetriesGoToDLQ(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dlqPath := filepath.Join(t.TempDir(), "dlq.log")
	p := NewHTTPPublisher(HTTPPublisherConfig{
		Endpoint: server.URL,
		DLQPath:  dlqPath,
		Retry:    fastRetry(2),
	}, zaptest.NewLogger(t).Sugar())

	p.Publish(context.Background(), &domain.RoomEvent{
		EventType: domain.EventRoomClosed,
		RoomID:    "r1",
	})
	require.NoError(t, p.Close())

	data, err := os.ReadFile(dlqPath)
	require.NoError(t, err)

	var record struct {
		Payload domain.RoomEvent `json:"payload"`
		Error   string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, domain.EventRoomClosed, record.Payload.EventType)
	assert.Equal(t, domain.RoomID("r1"), record.Payload.RoomID)
	assert.NotEmpty(t, record.Error)
}

func TestHTTPPublisher_DropsInvalidEvents(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPPublisherConfig{
		Endpoint: server.URL,
		Retry:    fastRetry(1),
	}, zaptest.NewLogger(t).Sugar())

	p.Publish(context.Background(), nil)
	p.Publish(context.Background(), &domain.RoomEvent{EventType: domain.EventRoomCreated})
	p.Publish(context.Background(), &domain.RoomEvent{RoomID: "r1"})
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestHTTPPublisher_PublishAfterCloseDropsEvent(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPPublisherConfig{
		Endpoint: server.URL,
		Retry:    fastRetry(1),
	}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, p.Close())

	// Disconnect cleanup can still publish during the shutdown window; the
	// event is dropped instead of panicking.
	p.Publish(context.Background(), &domain.RoomEvent{
		EventType: domain.EventParticipantLeft,
		RoomID:    "r1",
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestHTTPPublisher_CloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPPublisherConfig{
		Endpoint: server.URL,
		Retry:    fastRetry(1),
	}, zaptest.NewLogger(t).Sugar())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher()
	p.Publish(context.Background(), &domain.RoomEvent{EventType: domain.EventRoomCreated, RoomID: "r1"})
	assert.NoError(t, p.Close())
}
