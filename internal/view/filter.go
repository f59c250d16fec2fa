// Package view computes derived views over snapshots: filtering, aggregation,
// pagination and CSV serialization. Every function here is pure; the caller
// supplies "now" so results are reproducible.
package view

import (
	"sort"
	"strings"
	"time"

	"carewatch.dev/carewatch/internal/health"
	"carewatch.dev/carewatch/internal/model"
)

// AlertFilter is the conjunctive filter configuration of the alerts view.
// Zero values mean "no constraint".
type AlertFilter struct {
	Status      string
	Type        string
	RoomLike    string
	LastMinutes int
}

// Match applies every configured predicate. Alerts with unparsable timestamps
// pass the age cutoff: malformed-but-real data must stay visible.
func (f AlertFilter) Match(a model.Alert, now time.Time) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.RoomLike != "" && !containsFold(a.Room, f.RoomLike) {
		return false
	}
	if f.LastMinutes > 0 {
		if t, ok := health.ParseTimestamp(a.TsUTC); ok {
			if now.Sub(t) > time.Duration(f.LastMinutes)*time.Minute {
				return false
			}
		}
	}
	return true
}

// FilterAlerts returns the alerts matching f, preserving snapshot order.
func FilterAlerts(items []model.Alert, f AlertFilter, now time.Time) []model.Alert {
	out := make([]model.Alert, 0, len(items))
	for _, a := range items {
		if f.Match(a, now) {
			out = append(out, a)
		}
	}
	return out
}

// DeviceFilter is the devices view search box: a single term matched against
// device id or room.
type DeviceFilter struct {
	Search string
}

// Match reports whether the device matches the search term.
func (f DeviceFilter) Match(d model.Device) bool {
	if f.Search == "" {
		return true
	}
	return containsFold(d.DeviceID, f.Search) || containsFold(d.Room, f.Search)
}

// FilterDevices returns the devices matching f, preserving snapshot order.
func FilterDevices(items []model.Device, f DeviceFilter) []model.Device {
	out := make([]model.Device, 0, len(items))
	for _, d := range items {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// MotionAny and friends are the values of MessageFilter.Motion. MotionNone
// selects messages whose payload carries no motion flag at all.
const (
	MotionAny   = ""
	MotionTrue  = "true"
	MotionFalse = "false"
	MotionNone  = "—"
)

// MessageFilter is the history view filter: exact device and room matches, a
// motion state, and a free-text term searched across payload, topic and
// timestamp.
type MessageFilter struct {
	Search string
	Device string
	Room   string
	Motion string
}

// Match applies every configured predicate conjunctively.
func (f MessageFilter) Match(m model.Message) bool {
	if f.Device != "" && m.Device() != f.Device {
		return false
	}
	if f.Room != "" && model.ParseTopic(m.Topic).Room != f.Room {
		return false
	}
	if f.Motion != MotionAny {
		motion := MotionNone
		if v, ok := m.Motion(); ok {
			motion = MotionFalse
			if v {
				motion = MotionTrue
			}
		}
		if motion != f.Motion {
			return false
		}
	}
	if t := strings.TrimSpace(f.Search); t != "" {
		hay := strings.ToLower(m.Payload + " " + m.Topic + " " + m.TsUTC)
		if !strings.Contains(hay, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// FilterMessages returns the messages matching f, preserving snapshot order.
func FilterMessages(items []model.Message, f MessageFilter) []model.Message {
	out := make([]model.Message, 0, len(items))
	for _, m := range items {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// MessageDevices returns the sorted distinct device ids found in message
// payloads, for populating the device filter dropdown.
func MessageDevices(items []model.Message) []string {
	return distinct(items, func(m model.Message) string { return m.Device() })
}

// MessageRooms returns the sorted distinct rooms found in message topics.
func MessageRooms(items []model.Message) []string {
	return distinct(items, func(m model.Message) string { return model.ParseTopic(m.Topic).Room })
}

func distinct(items []model.Message, key func(model.Message) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range items {
		k := key(m)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
