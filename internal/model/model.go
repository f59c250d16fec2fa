// Package model defines the entities served by the care API: alerts raised by
// the rules engine, registered sensor devices, raw MQTT messages and rooms.
// Everything here is read from the server; the dashboard never fabricates or
// mutates these locally.
package model

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Alert statuses. Closed is terminal; the server never reopens an alert.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Known alert types. The server may send others; unknown types are displayed
// with default styling rather than dropped.
const (
	TypeInactivity    = "INACTIVITY"
	TypeDwellCritical = "DWELL_CRITICAL"
	TypeNoHeartbeat   = "NO_HEARTBEAT"
	TypeTestAlert     = "TEST_ALERT"
)

// Severities the rules engine assigns.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Alert is a server-detected condition requiring operator attention.
// Timestamp fields are kept as raw strings: the server mixes ISO-8601 and
// space-separated forms, and nulls arrive as empty strings after decoding.
type Alert struct {
	ID         int64  `json:"id"`
	TsUTC      string `json:"ts_utc"`
	Room       string `json:"room"`
	DeviceID   string `json:"device_id"`
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Status     string `json:"status"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
	NotifiedAt string `json:"notified_at"`
	ClosedAt   string `json:"closed_at"`
	AckAt      string `json:"ack_at"`
	AckBy      string `json:"ack_by"`
}

// Key returns the stable identity used to track an alert across snapshots.
func (a Alert) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// CanAck reports whether the acknowledge action is valid: only open alerts
// that have not already been acknowledged.
func (a Alert) CanAck() bool {
	return a.Status == StatusOpen && a.AckAt == ""
}

// CanClose reports whether the close action is valid. Closed is terminal.
func (a Alert) CanClose() bool {
	return a.Status != StatusClosed
}

var detailMinutesRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*min`)

// DetailMinutes extracts a duration in minutes from free-text details such as
// "No motion for 327.3 min". The second return is false when no duration is
// present or it does not parse.
func (a Alert) DetailMinutes() (int, bool) {
	m := detailMinutesRe.FindStringSubmatch(a.Details)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return int(math.Round(v)), true
}

// Device is a registered sensor. LastHB advances only via server-reported
// heartbeats.
type Device struct {
	DeviceID string `json:"device_id"`
	Room     string `json:"room"`
	LastHB   string `json:"last_hb"`
}

// Key returns the stable identity of a device.
func (d Device) Key() string {
	return d.DeviceID
}

// Message is a raw ingested MQTT event. Read-only, ordered by recency.
type Message struct {
	TsUTC   string `json:"ts_utc"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Key identifies a message within a snapshot. Messages carry no server id, so
// identity is the (timestamp, topic) pair.
func (m Message) Key() string {
	return m.TsUTC + "|" + m.Topic
}

// PayloadFields decodes the payload as a JSON object. Malformed payloads
// return nil rather than an error; callers fall back to the raw string.
func (m Message) PayloadFields() map[string]any {
	var fields map[string]any
	if err := json.Unmarshal([]byte(m.Payload), &fields); err != nil {
		return nil
	}
	return fields
}

// Device returns the device id embedded in the payload, if any.
func (m Message) Device() string {
	if v, ok := m.PayloadFields()["device"].(string); ok {
		return v
	}
	return ""
}

// Motion returns the motion flag from the payload. The second return is false
// when the payload carries no boolean motion field.
func (m Message) Motion() (bool, bool) {
	if v, ok := m.PayloadFields()["motion"].(bool); ok {
		return v, true
	}
	return false, false
}

// TopicInfo is the decomposition of a topic of the form
// iot/eldercare/<room>/<channel>/<subtype>.
type TopicInfo struct {
	Room    string
	Channel string
	Subtype string
}

// ParseTopic splits a message topic into its positional parts. Missing parts
// come back empty.
func ParseTopic(topic string) TopicInfo {
	parts := strings.Split(topic, "/")
	var info TopicInfo
	if len(parts) > 2 {
		info.Room = parts[2]
	}
	if len(parts) > 3 {
		info.Channel = parts[3]
	}
	if len(parts) > 4 {
		info.Subtype = parts[4]
	}
	return info
}

// Room is a named physical location with a derived activity count.
type Room struct {
	Name    string `json:"room"`
	Motions int    `json:"motions"`
}

// Key returns the stable identity of a room.
func (r Room) Key() string {
	return r.Name
}

// RuleSettings is the flat key/value configuration of the server-side rules
// engine. Keys are dotted paths such as "inactive.threshold_day_min".
type RuleSettings map[string]string

// RuleSettingKeys lists the settings the dashboard edits, in display order.
var RuleSettingKeys = []string{
	"inactive.threshold_day_min",
	"inactive.threshold_night_min",
	"night.window",
	"dwell.critical_rooms",
	"dwell.bathroom_min",
	"dwell.kitchen_min",
	"dwell.gap_min",
	"pattern.window_days",
	"pattern.z_threshold",
}

// Complete reports whether every known setting has a non-empty value. Saving
// is blocked until the form is complete.
func (s RuleSettings) Complete() bool {
	for _, k := range RuleSettingKeys {
		if strings.TrimSpace(s[k]) == "" {
			return false
		}
	}
	return true
}

// RoomSettings is the per-room pre-alert configuration.
type RoomSettings map[string]string
