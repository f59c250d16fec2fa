package view

import (
	"time"

	"carewatch.dev/carewatch/internal/health"
	"carewatch.dev/carewatch/internal/model"
)

// AlertSummary holds the header counts of the alerts view. It is always
// computed over the filtered set so the numbers agree with the visible rows.
type AlertSummary struct {
	Total    int
	Open     int
	ByType   map[string]int
	ByStatus map[string]int
}

// SummarizeAlerts counts alerts per status and per type.
func SummarizeAlerts(items []model.Alert) AlertSummary {
	s := AlertSummary{
		Total:    len(items),
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	for _, a := range items {
		s.ByType[a.Type]++
		s.ByStatus[a.Status]++
		if a.Status == model.StatusOpen {
			s.Open++
		}
	}
	return s
}

// DeviceSummary holds the fleet counts of the devices view.
type DeviceSummary struct {
	Total int
	Up    int
}

// SummarizeDevices counts devices and how many are up at now.
func SummarizeDevices(items []model.Device, now time.Time) DeviceSummary {
	s := DeviceSummary{Total: len(items)}
	for _, d := range items {
		if health.IsUp(d.LastHB, now, health.DefaultThreshold) {
			s.Up++
		}
	}
	return s
}
