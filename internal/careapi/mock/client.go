// Package mock provides a mock implementation of the careapi.API interface
// for testing. Each method delegates to an optional Func field, falling back
// to the configured result/error pair, and counts its calls.
package mock

import (
	"context"
	"sync"

	"carewatch.dev/carewatch/internal/careapi"
	"carewatch.dev/carewatch/internal/model"
)

// Client is a mock careapi.API.
type Client struct {
	mu sync.Mutex

	AlertsFunc   func(ctx context.Context, q careapi.AlertQuery) ([]model.Alert, error)
	AlertsResult []model.Alert
	AlertsErr    error
	AlertsCalls  []careapi.AlertQuery

	AckAlertFunc   func(ctx context.Context, id int64, by string) (model.Alert, error)
	AckAlertResult model.Alert
	AckAlertErr    error
	AckAlertCalls  []AckCall

	CloseAlertFunc   func(ctx context.Context, id int64) (model.Alert, error)
	CloseAlertResult model.Alert
	CloseAlertErr    error
	CloseAlertCalls  []int64

	CloseBulkFunc   func(ctx context.Context, p careapi.BulkCloseParams) (careapi.BulkCloseResult, error)
	CloseBulkResult careapi.BulkCloseResult
	CloseBulkErr    error
	CloseBulkCalls  []careapi.BulkCloseParams

	PurgeAlertsFunc   func(ctx context.Context, olderThanDays int) (careapi.PurgeResult, error)
	PurgeAlertsResult careapi.PurgeResult
	PurgeAlertsErr    error
	PurgeAlertsCalls  []int

	DevicesFunc   func(ctx context.Context) ([]model.Device, error)
	DevicesResult []model.Device
	DevicesErr    error
	DevicesCalls  int

	RegisterDeviceFunc  func(ctx context.Context, deviceID, room string) error
	RegisterDeviceErr   error
	RegisterDeviceCalls []RegisterCall

	UnregisterDeviceFunc  func(ctx context.Context, deviceID string) error
	UnregisterDeviceErr   error
	UnregisterDeviceCalls []string

	MessagesFunc   func(ctx context.Context, limit int) ([]model.Message, error)
	MessagesResult []model.Message
	MessagesErr    error
	MessagesCalls  []int

	RoomsFunc   func(ctx context.Context) ([]model.Room, error)
	RoomsResult []model.Room
	RoomsErr    error
	RoomsCalls  int

	RuleSettingsFunc   func(ctx context.Context) (model.RuleSettings, error)
	RuleSettingsResult model.RuleSettings
	RuleSettingsErr    error
	RuleSettingsCalls  int

	SaveRuleSettingsFunc  func(ctx context.Context, s model.RuleSettings) error
	SaveRuleSettingsErr   error
	SaveRuleSettingsCalls []model.RuleSettings

	RoomSettingsFunc   func(ctx context.Context, room string) (model.RoomSettings, error)
	RoomSettingsResult model.RoomSettings
	RoomSettingsErr    error
	RoomSettingsCalls  []string

	SaveRoomSettingsFunc  func(ctx context.Context, room string, s model.RoomSettings) error
	SaveRoomSettingsErr   error
	SaveRoomSettingsCalls []string

	SetRoomLEDFunc  func(ctx context.Context, room string, on bool) error
	SetRoomLEDErr   error
	SetRoomLEDCalls []LEDCall
}

// AckCall records the arguments to an AckAlert call.
type AckCall struct {
	ID int64
	By string
}

// RegisterCall records the arguments to a RegisterDevice call.
type RegisterCall struct {
	DeviceID string
	Room     string
}

// LEDCall records the arguments to a SetRoomLED call.
type LEDCall struct {
	Room string
	On   bool
}

// Ensure Client implements careapi.API.
var _ careapi.API = (*Client)(nil)

func (c *Client) Alerts(ctx context.Context, q careapi.AlertQuery) ([]model.Alert, error) {
	c.mu.Lock()
	c.AlertsCalls = append(c.AlertsCalls, q)
	fn := c.AlertsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return c.AlertsResult, c.AlertsErr
}

func (c *Client) AckAlert(ctx context.Context, id int64, by string) (model.Alert, error) {
	c.mu.Lock()
	c.AckAlertCalls = append(c.AckAlertCalls, AckCall{ID: id, By: by})
	fn := c.AckAlertFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, by)
	}
	return c.AckAlertResult, c.AckAlertErr
}

func (c *Client) CloseAlert(ctx context.Context, id int64) (model.Alert, error) {
	c.mu.Lock()
	c.CloseAlertCalls = append(c.CloseAlertCalls, id)
	fn := c.CloseAlertFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	return c.CloseAlertResult, c.CloseAlertErr
}

func (c *Client) CloseBulk(ctx context.Context, p careapi.BulkCloseParams) (careapi.BulkCloseResult, error) {
	c.mu.Lock()
	c.CloseBulkCalls = append(c.CloseBulkCalls, p)
	fn := c.CloseBulkFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, p)
	}
	return c.CloseBulkResult, c.CloseBulkErr
}

func (c *Client) PurgeAlerts(ctx context.Context, olderThanDays int) (careapi.PurgeResult, error) {
	c.mu.Lock()
	c.PurgeAlertsCalls = append(c.PurgeAlertsCalls, olderThanDays)
	fn := c.PurgeAlertsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, olderThanDays)
	}
	return c.PurgeAlertsResult, c.PurgeAlertsErr
}

func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	c.mu.Lock()
	c.DevicesCalls++
	fn := c.DevicesFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return c.DevicesResult, c.DevicesErr
}

func (c *Client) RegisterDevice(ctx context.Context, deviceID, room string) error {
	c.mu.Lock()
	c.RegisterDeviceCalls = append(c.RegisterDeviceCalls, RegisterCall{DeviceID: deviceID, Room: room})
	fn := c.RegisterDeviceFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, deviceID, room)
	}
	return c.RegisterDeviceErr
}

func (c *Client) UnregisterDevice(ctx context.Context, deviceID string) error {
	c.mu.Lock()
	c.UnregisterDeviceCalls = append(c.UnregisterDeviceCalls, deviceID)
	fn := c.UnregisterDeviceFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, deviceID)
	}
	return c.UnregisterDeviceErr
}

func (c *Client) Messages(ctx context.Context, limit int) ([]model.Message, error) {
	c.mu.Lock()
	c.MessagesCalls = append(c.MessagesCalls, limit)
	fn := c.MessagesFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, limit)
	}
	return c.MessagesResult, c.MessagesErr
}

func (c *Client) Rooms(ctx context.Context) ([]model.Room, error) {
	c.mu.Lock()
	c.RoomsCalls++
	fn := c.RoomsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return c.RoomsResult, c.RoomsErr
}

func (c *Client) RuleSettings(ctx context.Context) (model.RuleSettings, error) {
	c.mu.Lock()
	c.RuleSettingsCalls++
	fn := c.RuleSettingsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return c.RuleSettingsResult, c.RuleSettingsErr
}

func (c *Client) SaveRuleSettings(ctx context.Context, s model.RuleSettings) error {
	c.mu.Lock()
	c.SaveRuleSettingsCalls = append(c.SaveRuleSettingsCalls, s)
	fn := c.SaveRuleSettingsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, s)
	}
	return c.SaveRuleSettingsErr
}

func (c *Client) RoomSettings(ctx context.Context, room string) (model.RoomSettings, error) {
	c.mu.Lock()
	c.RoomSettingsCalls = append(c.RoomSettingsCalls, room)
	fn := c.RoomSettingsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, room)
	}
	return c.RoomSettingsResult, c.RoomSettingsErr
}

func (c *Client) SaveRoomSettings(ctx context.Context, room string, s model.RoomSettings) error {
	c.mu.Lock()
	c.SaveRoomSettingsCalls = append(c.SaveRoomSettingsCalls, room)
	fn := c.SaveRoomSettingsFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, room, s)
	}
	return c.SaveRoomSettingsErr
}

func (c *Client) SetRoomLED(ctx context.Context, room string, on bool) error {
	c.mu.Lock()
	c.SetRoomLEDCalls = append(c.SetRoomLEDCalls, LEDCall{Room: room, On: on})
	fn := c.SetRoomLEDFunc
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, room, on)
	}
	return c.SetRoomLEDErr
}
