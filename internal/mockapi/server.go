// Package mockapi is an in-memory stand-in for the care API, seeded with
// synthetic data. It backs demos and integration tests so the dashboard can
// run without the real deployment. It fabricates already-evaluated alerts
// only; no rule evaluation happens here.
package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"carewatch.dev/carewatch/internal/health"
	"carewatch.dev/carewatch/internal/model"
)

// Config holds the configuration for the mock server.
type Config struct {
	Logger *slog.Logger

	// Devices and Alerts set the seeded collection sizes.
	Devices  int
	Alerts   int
	Messages int
	// Seed makes the synthetic data reproducible.
	Seed uint64
}

// Server is the mock care API.
type Server struct {
	logger *slog.Logger

	mu           sync.Mutex
	alerts       []model.Alert
	devices      []model.Device
	messages     []model.Message
	rooms        []model.Room
	ruleSettings model.RuleSettings
	roomSettings map[string]model.RoomSettings
	leds         map[string]bool
	nextAlertID  int64
}

// NewServer creates a seeded mock care API.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	devices := cfg.Devices
	if devices <= 0 {
		devices = 6
	}
	alerts := cfg.Alerts
	if alerts <= 0 {
		alerts = 40
	}
	messages := cfg.Messages
	if messages <= 0 {
		messages = 200
	}

	g := newGenerator(cfg.Seed)
	s := &Server{
		logger:       cfg.Logger,
		devices:      g.devices(devices),
		rooms:        g.rooms(),
		ruleSettings: defaultRuleSettings(),
		roomSettings: make(map[string]model.RoomSettings),
		leds:         make(map[string]bool),
	}
	s.alerts = g.alerts(alerts, s.devices)
	s.messages = g.messages(messages, s.devices)
	s.nextAlertID = int64(alerts + 1)
	return s, nil
}

// Handler returns the HTTP handler serving the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/ack", s.handleAck)
	mux.HandleFunc("POST /api/alerts/{id}/close", s.handleClose)
	mux.HandleFunc("POST /api/alerts/close-bulk", s.handleCloseBulk)
	mux.HandleFunc("POST /api/alerts/purge", s.handlePurge)

	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("POST /api/devices/register", s.handleRegister)
	mux.HandleFunc("POST /api/devices/{id}/unregister", s.handleUnregister)

	mux.HandleFunc("GET /api/messages", s.handleMessages)
	mux.HandleFunc("GET /api/rooms", s.handleRooms)

	mux.HandleFunc("GET /api/rule-settings", s.handleRuleSettings)
	mux.HandleFunc("PUT /api/rule-settings", s.handleSaveRuleSettings)
	mux.HandleFunc("GET /api/rooms/{room}/settings", s.handleRoomSettings)
	mux.HandleFunc("POST /api/rooms/{room}/settings", s.handleSaveRoomSettings)
	mux.HandleFunc("POST /api/rooms/{room}/led", s.handleLED)

	return mux
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	alertType := q.Get("type")
	room := strings.ToLower(q.Get("room"))
	lastMinutes, _ := strconv.Atoi(q.Get("last_minutes"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	now := time.Now().UTC()
	s.mu.Lock()
	out := make([]model.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if status != "" && a.Status != status {
			continue
		}
		if alertType != "" && a.Type != alertType {
			continue
		}
		if room != "" && !strings.Contains(strings.ToLower(a.Room), room) {
			continue
		}
		if lastMinutes > 0 {
			if t, ok := health.ParseTimestamp(a.TsUTC); ok {
				if now.Sub(t) > time.Duration(lastMinutes)*time.Minute {
					continue
				}
			}
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	s.mu.Unlock()

	writeJSON(w, out)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad alert id", http.StatusBadRequest)
		return
	}
	var body struct {
		By string `json:"by"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if !s.alerts[i].CanAck() {
			http.Error(w, "alert not open or already acknowledged", http.StatusConflict)
			return
		}
		s.alerts[i].AckAt = time.Now().UTC().Format(wireTime)
		s.alerts[i].AckBy = body.By
		writeJSON(w, s.alerts[i])
		return
	}
	http.Error(w, "alert not found", http.StatusNotFound)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad alert id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if !s.alerts[i].CanClose() {
			http.Error(w, "alert already closed", http.StatusConflict)
			return
		}
		s.alerts[i].Status = model.StatusClosed
		s.alerts[i].ClosedAt = time.Now().UTC().Format(wireTime)
		writeJSON(w, s.alerts[i])
		return
	}
	http.Error(w, "alert not found", http.StatusNotFound)
}

func (s *Server) handleCloseBulk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	alertType := q.Get("type")
	olderThan, _ := strconv.Atoi(q.Get("older_than_minutes"))

	now := time.Now().UTC()
	closed := 0
	s.mu.Lock()
	for i := range s.alerts {
		a := &s.alerts[i]
		if a.Status == model.StatusClosed {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if alertType != "" && a.Type != alertType {
			continue
		}
		if olderThan > 0 {
			t, ok := health.ParseTimestamp(a.TsUTC)
			if !ok || now.Sub(t) < time.Duration(olderThan)*time.Minute {
				continue
			}
		}
		a.Status = model.StatusClosed
		a.ClosedAt = now.Format(wireTime)
		closed++
	}
	s.mu.Unlock()

	writeJSON(w, map[string]int{"closed": closed})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("older_than_days"))
	if days <= 0 {
		http.Error(w, "older_than_days must be positive", http.StatusBadRequest)
		return
	}

	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	purged := 0
	s.mu.Lock()
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		t, ok := health.ParseTimestamp(a.TsUTC)
		if a.Status == model.StatusClosed && ok && t.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept
	s.mu.Unlock()

	writeJSON(w, map[string]int{"purged": purged})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]model.Device(nil), s.devices...)
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID string `json:"device_id"`
		Room     string `json:"room"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.DeviceID == body.DeviceID {
			http.Error(w, "device already registered", http.StatusConflict)
			return
		}
	}
	d := model.Device{DeviceID: body.DeviceID, Room: body.Room}
	s.devices = append(s.devices, d)
	writeJSON(w, d)
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.devices {
		if d.DeviceID == id {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			writeJSON(w, map[string]string{"removed": id})
			return
		}
	}
	http.Error(w, "device not found", http.StatusNotFound)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	s.mu.Lock()
	out := append([]model.Message(nil), s.messages...)
	s.mu.Unlock()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, out)
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]model.Room(nil), s.rooms...)
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleRuleSettings(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make(model.RuleSettings, len(s.ruleSettings))
	for k, v := range s.ruleSettings {
		out[k] = v
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleSaveRuleSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.RuleSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.ruleSettings = settings
	s.mu.Unlock()
	writeJSON(w, settings)
}

func (s *Server) handleRoomSettings(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	s.mu.Lock()
	settings, ok := s.roomSettings[room]
	s.mu.Unlock()
	if !ok {
		settings = model.RoomSettings{}
	}
	writeJSON(w, settings)
}

func (s *Server) handleSaveRoomSettings(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	var settings model.RoomSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.roomSettings[room] = settings
	s.mu.Unlock()
	writeJSON(w, settings)
}

func (s *Server) handleLED(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	var body struct {
		On bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid led payload", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.leds[room] = body.On
	s.mu.Unlock()
	writeJSON(w, map[string]bool{"on": body.On})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
