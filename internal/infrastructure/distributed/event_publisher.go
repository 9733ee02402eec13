package distributed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
	"roomcast/pkg/retry"
	"roomcast/pkg/utils"

	"go.uber.org/zap"
)

// NoopPublisher drops all events. Used when event publishing is not
// configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) Publish(ctx context.Context, event *domain.RoomEvent) {}
func (p *NoopPublisher) Close() error                                         { return nil }

var _ ports.RoomEventPublisher = (*NoopPublisher)(nil)

// HTTPPublisher posts room lifecycle events to an external endpoint. A
// single worker drains the queue so delivery never blocks signaling; each
// event is retried with bounded exponential backoff and appended to a DLQ
// file when attempts are exhausted.
type HTTPPublisher struct {
	endpoint string
	dlqPath  string
	retryCfg retry.Config
	client   *http.Client

	queue     chan *domain.RoomEvent
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.SugaredLogger
}

type HTTPPublisherConfig struct {
	Endpoint string
	DLQPath  string
	Retry    retry.Config
	Timeout  time.Duration
}

func NewHTTPPublisher(cfg HTTPPublisherConfig, logger *zap.SugaredLogger) *HTTPPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &HTTPPublisher{
		endpoint: cfg.Endpoint,
		dlqPath:  cfg.DLQPath,
		retryCfg: cfg.Retry,
		client:   &http.Client{Timeout: timeout},
		queue:    make(chan *domain.RoomEvent, 256),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go p.worker()
	return p
}

var _ ports.RoomEventPublisher = (*HTTPPublisher)(nil)

// Publish enqueues the event. A full queue drops the event with a warning;
// events are best-effort by contract. Publishing on a closed publisher drops
// the event: disconnect cleanup can still fire during shutdown, after the
// publisher has stopped.
func (p *HTTPPublisher) Publish(ctx context.Context, event *domain.RoomEvent) {
	if event == nil || event.RoomID == "" || event.EventType == "" {
		return
	}
	stamp(event)

	select {
	case <-p.closing:
		p.logger.Debugw("publisher closing, dropping event", "event_type", event.EventType, "room_id", event.RoomID)
		return
	default:
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warnw("event queue full, dropping event", "event_type", event.EventType, "room_id", event.RoomID)
	}
}

// Close stops the worker after it drains the already-queued events. Safe to
// call more than once.
func (p *HTTPPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
	})
	<-p.done
	return nil
}

func (p *HTTPPublisher) worker() {
	defer close(p.done)
	for {
		select {
		case <-p.closing:
			for {
				select {
				case event := <-p.queue:
					p.deliver(event)
				default:
					return
				}
			}
		case event := <-p.queue:
			p.deliver(event)
		}
	}
}

func (p *HTTPPublisher) deliver(event *domain.RoomEvent) {
	err := retry.Do(context.Background(), p.retryCfg, func() error {
		return p.post(event)
	})
	if err != nil {
		p.logger.Errorw("event post failed, giving up",
			"event_type", event.EventType, "room_id", event.RoomID, "error", err)
		p.writeToDLQ(event, err)
	}
}

func (p *HTTPPublisher) post(event *domain.RoomEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	url := fmt.Sprintf("%s/api/rooms/%s/events", p.endpoint, event.RoomID)
	resp, err := p.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("event endpoint returned status %d", resp.StatusCode)
	}

	p.logger.Debugw("event acknowledged", "event_type", event.EventType, "status", resp.StatusCode)
	return nil
}

// writeToDLQ appends the failed event to the dead-letter file.
func (p *HTTPPublisher) writeToDLQ(event *domain.RoomEvent, cause error) {
	if p.dlqPath == "" {
		return
	}
	record := map[string]interface{}{
		"failedAt": time.Now().UTC(),
		"payload":  event,
		"error":    cause.Error(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}

	f, err := os.OpenFile(p.dlqPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		p.logger.Errorw("failed to open dlq file", "path", p.dlqPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		p.logger.Errorw("failed to write dlq record", "path", p.dlqPath, "error", err)
	}
}

func stamp(event *domain.RoomEvent) {
	if event.EventID == "" {
		event.EventID = utils.GenerateEventID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
}
