// Package careapi is the JSON-over-HTTP client of the remote care API that
// fronts the monitoring deployment. The token, when set, is sent both as a
// bearer Authorization header and as X-API-Key, matching what the server
// accepts.
package careapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carewatch.dev/carewatch/internal/model"
)

// ErrUnsupported marks an optional endpoint the server does not implement.
// Callers treat it as a soft failure, never a crash.
var ErrUnsupported = errors.New("endpoint not supported by server")

// DefaultAlertLimit is requested when a query does not set its own limit.
const DefaultAlertLimit = 1000

// StatusError is a non-2xx response from the care API.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("care api: %s", e.Status)
	}
	return fmt.Sprintf("care api: %s — %s", e.Status, e.Body)
}

// Config holds the configuration for the Client.
type Config struct {
	Logger *slog.Logger

	// BaseURL is the root of the care API, e.g. "http://localhost:5000".
	BaseURL string
	// Token is the optional bearer token / API key.
	Token string
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
}

// Client is the HTTP implementation of API.
type Client struct {
	logger  *slog.Logger
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates a care API client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:  cfg.Logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

// AlertQuery selects alerts server-side. Zero values are omitted from the
// request.
type AlertQuery struct {
	Status      string
	Type        string
	Room        string
	LastMinutes int
	Limit       int
}

// BulkCloseParams selects the alerts a close-bulk call targets.
type BulkCloseParams struct {
	Status           string
	Type             string
	OlderThanMinutes int
}

// BulkCloseResult is the server's summary of a close-bulk call.
type BulkCloseResult struct {
	Closed int `json:"closed"`
}

// PurgeResult is the server's summary of a purge call.
type PurgeResult struct {
	Purged int `json:"purged"`
}

// Alerts fetches the alert collection matching q.
func (c *Client) Alerts(ctx context.Context, q AlertQuery) ([]model.Alert, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Room != "" {
		params.Set("room", q.Room)
	}
	if q.LastMinutes > 0 {
		params.Set("last_minutes", strconv.Itoa(q.LastMinutes))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	params.Set("limit", strconv.Itoa(limit))

	var alerts []model.Alert
	if err := c.do(ctx, http.MethodGet, "/api/alerts", params, nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// AckAlert acknowledges an open alert on behalf of by.
func (c *Client) AckAlert(ctx context.Context, id int64, by string) (model.Alert, error) {
	var alert model.Alert
	path := fmt.Sprintf("/api/alerts/%d/ack", id)
	err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"by": by}, &alert)
	return alert, err
}

// CloseAlert closes an alert.
func (c *Client) CloseAlert(ctx context.Context, id int64) (model.Alert, error) {
	var alert model.Alert
	path := fmt.Sprintf("/api/alerts/%d/close", id)
	err := c.do(ctx, http.MethodPost, path, nil, nil, &alert)
	return alert, err
}

// CloseBulk closes every alert matching p server-side.
func (c *Client) CloseBulk(ctx context.Context, p BulkCloseParams) (BulkCloseResult, error) {
	params := url.Values{}
	if p.Status != "" {
		params.Set("status", p.Status)
	}
	if p.Type != "" {
		params.Set("type", p.Type)
	}
	if p.OlderThanMinutes > 0 {
		params.Set("older_than_minutes", strconv.Itoa(p.OlderThanMinutes))
	}
	var res BulkCloseResult
	err := c.do(ctx, http.MethodPost, "/api/alerts/close-bulk", params, nil, &res)
	return res, err
}

// PurgeAlerts deletes closed alerts older than the given number of days.
// Servers without the endpoint yield ErrUnsupported.
func (c *Client) PurgeAlerts(ctx context.Context, olderThanDays int) (PurgeResult, error) {
	params := url.Values{}
	params.Set("older_than_days", strconv.Itoa(olderThanDays))
	var res PurgeResult
	err := c.do(ctx, http.MethodPost, "/api/alerts/purge", params, nil, &res)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
			return PurgeResult{}, fmt.Errorf("%w: purge", ErrUnsupported)
		}
	}
	return res, err
}

// Devices fetches the registered device collection.
func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// RegisterDevice registers a device, optionally assigned to a room.
func (c *Client) RegisterDevice(ctx context.Context, deviceID, room string) error {
	body := map[string]string{"device_id": deviceID, "room": room}
	return c.do(ctx, http.MethodPost, "/api/devices/register", nil, body, nil)
}

// UnregisterDevice removes a device from the system.
func (c *Client) UnregisterDevice(ctx context.Context, deviceID string) error {
	path := "/api/devices/" + url.PathEscape(deviceID) + "/unregister"
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// Messages fetches the most recent raw messages, newest first.
func (c *Client) Messages(ctx context.Context, limit int) ([]model.Message, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var messages []model.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages", params, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Rooms fetches the room list with activity counts.
func (c *Client) Rooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// RuleSettings fetches the rules engine configuration.
func (c *Client) RuleSettings(ctx context.Context) (model.RuleSettings, error) {
	var settings model.RuleSettings
	if err := c.do(ctx, http.MethodGet, "/api/rule-settings", nil, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveRuleSettings replaces the rules engine configuration.
func (c *Client) SaveRuleSettings(ctx context.Context, s model.RuleSettings) error {
	return c.do(ctx, http.MethodPut, "/api/rule-settings", nil, s, nil)
}

// RoomSettings fetches the per-room pre-alert configuration.
func (c *Client) RoomSettings(ctx context.Context, room string) (model.RoomSettings, error) {
	var settings model.RoomSettings
	path := "/api/rooms/" + url.PathEscape(room) + "/settings"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveRoomSettings replaces the per-room pre-alert configuration.
func (c *Client) SaveRoomSettings(ctx context.Context, room string, s model.RoomSettings) error {
	path := "/api/rooms/" + url.PathEscape(room) + "/settings"
	return c.do(ctx, http.MethodPost, path, nil, s, nil)
}

// SetRoomLED switches the indicator LED of a room.
func (c *Client) SetRoomLED(ctx context.Context, room string, on bool) error {
	path := "/api/rooms/" + url.PathEscape(room) + "/led"
	return c.do(ctx, http.MethodPost, path, nil, map[string]bool{"on": on}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("X-API-Key", c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("care api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("care api returned error status",
			"method", method,
			"path", path,
			"status", resp.Status,
		)
		return &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
