package careapi

import (
	"context"

	"carewatch.dev/carewatch/internal/model"
)

// API defines the care API surface the dashboard consumes.
// This interface enables easier testing through mocking and dependency injection.
type API interface {
	// Alerts fetches the alert collection matching q.
	Alerts(ctx context.Context, q AlertQuery) ([]model.Alert, error)
	// AckAlert marks an open alert as seen by an operator without closing it.
	AckAlert(ctx context.Context, id int64, by string) (model.Alert, error)
	// CloseAlert closes an alert. Closed is terminal.
	CloseAlert(ctx context.Context, id int64) (model.Alert, error)
	// CloseBulk closes every alert matching p server-side.
	CloseBulk(ctx context.Context, p BulkCloseParams) (BulkCloseResult, error)
	// PurgeAlerts deletes old closed alerts; optional, may be ErrUnsupported.
	PurgeAlerts(ctx context.Context, olderThanDays int) (PurgeResult, error)

	// Devices fetches the registered device collection.
	Devices(ctx context.Context) ([]model.Device, error)
	// RegisterDevice registers a device, optionally assigned to a room.
	RegisterDevice(ctx context.Context, deviceID, room string) error
	// UnregisterDevice removes a device from the system.
	UnregisterDevice(ctx context.Context, deviceID string) error

	// Messages fetches the most recent raw messages, newest first.
	Messages(ctx context.Context, limit int) ([]model.Message, error)
	// Rooms fetches the room list with activity counts.
	Rooms(ctx context.Context) ([]model.Room, error)

	// RuleSettings fetches the rules engine configuration.
	RuleSettings(ctx context.Context) (model.RuleSettings, error)
	// SaveRuleSettings replaces the rules engine configuration.
	SaveRuleSettings(ctx context.Context, s model.RuleSettings) error
	// RoomSettings fetches the per-room pre-alert configuration.
	RoomSettings(ctx context.Context, room string) (model.RoomSettings, error)
	// SaveRoomSettings replaces the per-room pre-alert configuration.
	SaveRoomSettings(ctx context.Context, room string, s model.RoomSettings) error
	// SetRoomLED switches the indicator LED of a room.
	SetRoomLED(ctx context.Context, room string, on bool) error
}

// Ensure Client implements API.
var _ API = (*Client)(nil)
