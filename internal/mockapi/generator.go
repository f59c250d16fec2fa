package mockapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"carewatch.dev/carewatch/internal/model"
)

var seedRooms = []string{"Kitchen", "Bathroom", "Bedroom", "Living Room", "Hallway"}

// The server-side timestamp format: space-separated, no zone. Kept here on
// purpose so consumers exercise their separator normalization.
const wireTime = "2006-01-02 15:04:05"

type generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

func newGenerator(seed uint64) *generator {
	return &generator{
		faker: gofakeit.New(seed),
		now:   time.Now().UTC(),
	}
}

func (g *generator) devices(n int) []model.Device {
	devices := make([]model.Device, 0, n)
	for i := 0; i < n; i++ {
		room := seedRooms[i%len(seedRooms)]
		// Roughly one device in four has gone quiet.
		age := time.Duration(g.faker.Number(0, 20)) * time.Minute
		if i%4 == 3 {
			age = time.Duration(g.faker.Number(45, 300)) * time.Minute
		}
		devices = append(devices, model.Device{
			DeviceID: fmt.Sprintf("esp8266-%s", g.faker.DigitN(4)),
			Room:     room,
			LastHB:   g.now.Add(-age).Format(wireTime),
		})
	}
	return devices
}

func (g *generator) alerts(n int, devices []model.Device) []model.Alert {
	types := []string{
		model.TypeInactivity,
		model.TypeDwellCritical,
		model.TypeNoHeartbeat,
		model.TypeTestAlert,
	}
	alerts := make([]model.Alert, 0, n)
	for i := 0; i < n; i++ {
		d := devices[g.faker.Number(0, len(devices)-1)]
		t := types[g.faker.Number(0, len(types)-1)]
		age := time.Duration(g.faker.Number(1, 60*48)) * time.Minute
		ts := g.now.Add(-age)

		a := model.Alert{
			ID:        int64(i + 1),
			TsUTC:     ts.Format(wireTime),
			Room:      d.Room,
			DeviceID:  d.DeviceID,
			Type:      t,
			Status:    model.StatusOpen,
			CreatedAt: ts.Format(wireTime),
		}
		minutes := float64(g.faker.Number(310, 6000)) / 10
		switch t {
		case model.TypeInactivity:
			a.Severity = model.SeverityMedium
			a.Details = fmt.Sprintf("No motion for %.1f min", minutes)
		case model.TypeDwellCritical:
			a.Severity = model.SeverityHigh
			a.Details = fmt.Sprintf("Dwell in %s for %.1f min", d.Room, minutes)
		case model.TypeNoHeartbeat:
			a.Severity = model.SeverityHigh
			a.Details = fmt.Sprintf("No heartbeat for %.1f min", minutes)
		case model.TypeTestAlert:
			a.Severity = model.SeverityLow
			a.Details = "Test alert"
		}
		// Older alerts tend to be handled already.
		if age > 12*time.Hour && g.faker.Number(0, 2) > 0 {
			closedAt := ts.Add(time.Duration(g.faker.Number(5, 120)) * time.Minute)
			a.Status = model.StatusClosed
			a.ClosedAt = closedAt.Format(wireTime)
		} else if g.faker.Bool() {
			a.AckAt = ts.Add(time.Duration(g.faker.Number(1, 30)) * time.Minute).Format(wireTime)
			a.AckBy = "web"
		}
		alerts = append(alerts, a)
	}
	return alerts
}

func (g *generator) messages(n int, devices []model.Device) []model.Message {
	messages := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		d := devices[g.faker.Number(0, len(devices)-1)]
		ts := g.now.Add(-time.Duration(i) * time.Minute)

		var topic string
		var payload []byte
		if g.faker.Number(0, 3) == 0 {
			topic = fmt.Sprintf("iot/eldercare/%s/motion/health", d.Room)
			payload, _ = json.Marshal(map[string]any{
				"device":    d.DeviceID,
				"uptime_ms": g.faker.Number(60_000, 86_400_000),
			})
		} else {
			topic = fmt.Sprintf("iot/eldercare/%s/motion/state", d.Room)
			payload, _ = json.Marshal(map[string]any{
				"device": d.DeviceID,
				"motion": g.faker.Bool(),
			})
		}
		messages = append(messages, model.Message{
			TsUTC:   ts.Format(wireTime),
			Topic:   topic,
			Payload: string(payload),
		})
	}
	return messages
}

func (g *generator) rooms() []model.Room {
	rooms := make([]model.Room, 0, len(seedRooms))
	for _, name := range seedRooms {
		rooms = append(rooms, model.Room{
			Name:    name,
			Motions: g.faker.Number(0, 120),
		})
	}
	return rooms
}

func defaultRuleSettings() model.RuleSettings {
	return model.RuleSettings{
		"inactive.threshold_day_min":   "240",
		"inactive.threshold_night_min": "480",
		"night.window":                 "22:00-07:00",
		"dwell.critical_rooms":         "Bathroom",
		"dwell.bathroom_min":           "30",
		"dwell.kitchen_min":            "90",
		"dwell.gap_min":                "5",
		"pattern.window_days":          "14",
		"pattern.z_threshold":          "2.5",
	}
}
