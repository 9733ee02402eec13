package sfu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
	"roomcast/internal/infrastructure/monitoring"
	"roomcast/pkg/apperrors"
	"roomcast/pkg/circuitbreaker"
	"roomcast/pkg/tracing"

	"go.uber.org/zap"
)

// Config holds the SFU endpoint and timeout settings. Timeouts are short and
// fixed; a stalled call only occupies its own connection's processing slot.
type Config struct {
	BaseURL         string
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
	Breaker         *circuitbreaker.CircuitBreaker
	Metrics         *monitoring.PrometheusCollector
}

// HTTPClient talks to the external SFU over its REST surface. Calls are
// never retried; a create retried after an ambiguous failure could leave a
// duplicate router or producer on the SFU side.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	metrics *monitoring.PrometheusCollector
	logger  *zap.SugaredLogger
}

func NewHTTPClient(cfg Config, logger *zap.SugaredLogger) (*HTTPClient, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid sfu base url %q: %w", cfg.BaseURL, err)
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 3 * time.Second
	}
	responseTimeout := cfg.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = 5 * time.Second
	}

	return &HTTPClient{
		baseURL: base,
		client: &http.Client{
			Timeout: responseTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
		breaker: cfg.Breaker,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

var _ ports.SfuClient = (*HTTPClient)(nil)

func (c *HTTPClient) CreateRouter(ctx context.Context, roomID domain.RoomID) (*domain.RouterInfo, error) {
	body, err := c.call(ctx, "createRouter", http.MethodPost, "/rooms", map[string]any{"roomId": roomID})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("empty response when creating router for room %s", roomID), nil)
	}

	var decoded struct {
		RouterID        string          `json:"routerId"`
		RtpCapabilities json.RawMessage `json:"rtpCapabilities"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apperrors.NewUpstreamError("malformed router creation response", err)
	}

	c.logger.Debugw("sfu router created", "room_id", roomID, "router_id", decoded.RouterID)

	return &domain.RouterInfo{
		RoomID:          roomID,
		RouterID:        decoded.RouterID,
		RtpCapabilities: decoded.RtpCapabilities,
		CreatedAt:       time.Now(),
	}, nil
}

func (c *HTTPClient) GetRouterRtpCapabilities(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error) {
	return c.call(ctx, "getRouterRtpCapabilities", http.MethodGet,
		fmt.Sprintf("/rooms/%s/rtp-capabilities", url.PathEscape(string(roomID))), nil)
}

func (c *HTTPClient) CreateTransport(ctx context.Context, roomID domain.RoomID, direction string) (json.RawMessage, error) {
	return c.call(ctx, "createTransport", http.MethodPost,
		fmt.Sprintf("/rooms/%s/transports", url.PathEscape(string(roomID))),
		map[string]any{"direction": direction})
}

func (c *HTTPClient) ConnectTransport(ctx context.Context, roomID domain.RoomID, transportID string, dtlsParameters json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, "connectTransport", http.MethodPost,
		fmt.Sprintf("/rooms/%s/transports/%s/connect", url.PathEscape(string(roomID)), url.PathEscape(transportID)),
		map[string]any{"dtlsParameters": dtlsParameters})
}

func (c *HTTPClient) CreateProducer(ctx context.Context, roomID domain.RoomID, payload json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, "createProducer", http.MethodPost,
		fmt.Sprintf("/rooms/%s/producers", url.PathEscape(string(roomID))), payload)
}

func (c *HTTPClient) CreateConsumer(ctx context.Context, roomID domain.RoomID, payload json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, "createConsumer", http.MethodPost,
		fmt.Sprintf("/rooms/%s/consumers", url.PathEscape(string(roomID))), payload)
}

func (c *HTTPClient) ResumeConsumer(ctx context.Context, roomID domain.RoomID, consumerID string) (json.RawMessage, error) {
	return c.call(ctx, "resumeConsumer", http.MethodPost,
		fmt.Sprintf("/rooms/%s/consumers/%s/resume", url.PathEscape(string(roomID)), url.PathEscape(consumerID)),
		map[string]any{})
}

func (c *HTTPClient) CloseRoom(ctx context.Context, roomID domain.RoomID) error {
	_, err := c.call(ctx, "closeRoom", http.MethodDelete,
		fmt.Sprintf("/rooms/%s", url.PathEscape(string(roomID))), nil)
	return err
}

// call performs one request against the SFU, optionally through the circuit
// breaker, and returns the raw response body.
func (c *HTTPClient) call(ctx context.Context, name, method, path string, body any) (json.RawMessage, error) {
	ctx, span := tracing.TraceSfuCall(ctx, name, extractRoomID(path))
	defer span.End()

	var result json.RawMessage
	do := func() error {
		var err error
		result, err = c.doRequest(ctx, method, path, body)
		return err
	}

	start := time.Now()
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, do)
	} else {
		err = do()
	}
	if c.metrics != nil {
		c.metrics.ObserveSfuCall(name, time.Since(start), err)
	}

	if err != nil {
		tracing.RecordError(ctx, err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("sfu call %s failed", name), err)
	}
	return result, nil
}

func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sfu request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build sfu request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugw("calling sfu", "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("sfu request %s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to read sfu response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("sfu returned status %d for %s %s", resp.StatusCode, method, path), nil)
	}

	if len(data) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// extractRoomID pulls the room id segment out of an SFU path for span
// attributes.
func extractRoomID(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "rooms" {
		if id, err := url.PathUnescape(parts[1]); err == nil {
			return id
		}
	}
	return ""
}
