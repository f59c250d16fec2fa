package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"carewatch.dev/carewatch/internal/careapi"
	"carewatch.dev/carewatch/internal/model"
	"carewatch.dev/carewatch/internal/view"
	"carewatch.dev/carewatch/pkg/metrics"
)

// Handler builds the dashboard route table. All derivation happens here
// per-request over the in-memory snapshots; only mutations and exports talk to
// the care API or its cached data directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /static/app.css", handleStylesheet)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /alerts", s.handleAlertsPage)
	mux.HandleFunc("GET /alerts/{id}", s.handleAlertSelect)
	mux.HandleFunc("GET /devices", s.handleDevicesPage)
	mux.HandleFunc("GET /history", s.handleHistoryPage)
	mux.HandleFunc("GET /settings", s.handleSettingsPage)

	mux.HandleFunc("GET /fragments/alerts", s.handleAlertsFragment)
	mux.HandleFunc("GET /fragments/devices", s.handleDevicesFragment)
	mux.HandleFunc("GET /fragments/messages", s.handleMessagesFragment)

	mux.HandleFunc("POST /alerts/{id}/ack", s.handleAck)
	mux.HandleFunc("POST /alerts/{id}/close", s.handleCloseAlert)
	mux.HandleFunc("POST /alerts/close-bulk", s.handleCloseBulk)
	mux.HandleFunc("POST /alerts/purge", s.handlePurge)
	mux.HandleFunc("POST /devices/register", s.handleRegisterDevice)
	mux.HandleFunc("POST /devices/{id}/unregister", s.handleUnregisterDevice)
	mux.HandleFunc("POST /settings", s.handleSaveSettings)
	mux.HandleFunc("POST /rooms/{room}/led", s.handleRoomLED)

	mux.HandleFunc("GET /export/alerts.csv", s.handleExportAlerts)
	mux.HandleFunc("GET /export/messages.csv", s.handleExportMessages)

	mux.HandleFunc("POST /live", s.handleLive)
	mux.HandleFunc("POST /refresh", s.handleRefresh)

	return s.instrument(mux)
}

// instrument wraps the mux with request counting and latency tracking.
func (s *Server) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The websocket upgrade needs the raw ResponseWriter for hijacking.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		timer := prometheus.NewTimer(s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path))
		defer timer.ObserveDuration()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// trackAPICall times a care API mutation and counts its outcome.
func (s *Server) trackAPICall(operation string, fn func() error) error {
	if s.metrics == nil {
		return fn()
	}
	timer := prometheus.NewTimer(s.metrics.APICallDuration.WithLabelValues(operation))
	defer timer.ObserveDuration()
	err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.APICalls.WithLabelValues(operation, status).Inc()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	alerts := s.alerts.Items()
	msgs := s.messages.Items()

	open := 0
	for _, a := range alerts {
		if a.Status == model.StatusOpen {
			open++
		}
	}
	last := "—"
	if len(msgs) > 0 {
		last = msgs[0].TsUTC
	}
	latest := msgs
	if len(latest) > 10 {
		latest = latest[:10]
	}
	s.render(r.Context(), w, "index", indexPage(indexView{
		OpenAlerts:  open,
		DeviceCount: len(s.devices.Items()),
		LastMessage: last,
		Messages:    latest,
		Rooms:       s.rooms.Items(),
		Now:         now,
	}))
}

// buildAlertsView derives the alerts page model from the current snapshot and
// the request's filter and page parameters.
func (s *Server) buildAlertsView(r *http.Request) alertsView {
	now := time.Now().UTC()
	f := parseAlertFilter(r.URL.Query())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	filtered := view.FilterAlerts(s.alerts.Items(), f, now)
	p := view.Paginate(len(filtered), page, view.DefaultPageSize)

	v := alertsView{
		Filter:  f,
		Summary: view.SummarizeAlerts(filtered),
		Page:    p,
		Links:   view.PageLinks(p.Number, p.Pages),
		Rows:    view.Slice(filtered, p),
		Loading: s.alerts.Loading(),
		Live:    s.Live(),
		Now:     now,
	}
	if sel, ok := s.alerts.Selected(); ok {
		v.Selected = &sel
	}
	return v
}

func (s *Server) handleAlertsPage(w http.ResponseWriter, r *http.Request) {
	s.alerts.Deselect()
	s.render(r.Context(), w, "alerts", alertsPage(s.buildAlertsView(r)))
}

func (s *Server) handleAlertSelect(w http.ResponseWriter, r *http.Request) {
	s.alerts.Select(r.PathValue("id"))
	s.render(r.Context(), w, "alerts", alertsPage(s.buildAlertsView(r)))
}

func (s *Server) handleAlertsFragment(w http.ResponseWriter, r *http.Request) {
	s.render(r.Context(), w, "alerts_table", alertsTable(s.buildAlertsView(r)))
}

func (s *Server) buildDevicesView(r *http.Request) devicesView {
	now := time.Now().UTC()
	f := view.DeviceFilter{Search: r.URL.Query().Get("q")}
	filtered := view.FilterDevices(s.devices.Items(), f)
	return devicesView{
		Filter:  f,
		Summary: view.SummarizeDevices(filtered, now),
		Rows:    filtered,
		Loading: s.devices.Loading(),
		Now:     now,
	}
}

func (s *Server) handleDevicesPage(w http.ResponseWriter, r *http.Request) {
	s.render(r.Context(), w, "devices", devicesPage(s.buildDevicesView(r)))
}

func (s *Server) handleDevicesFragment(w http.ResponseWriter, r *http.Request) {
	s.render(r.Context(), w, "devices_table", devicesTable(s.buildDevicesView(r)))
}

func (s *Server) buildHistoryView(r *http.Request) historyView {
	items := s.messages.Items()
	f := parseMessageFilter(r.URL.Query())
	return historyView{
		Filter:  f,
		Rows:    view.FilterMessages(items, f),
		Total:   len(items),
		Devices: view.MessageDevices(items),
		Rooms:   view.MessageRooms(items),
		Now:     time.Now().UTC(),
	}
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	s.render(r.Context(), w, "history", historyPage(s.buildHistoryView(r)))
}

func (s *Server) handleMessagesFragment(w http.ResponseWriter, r *http.Request) {
	s.render(r.Context(), w, "messages_table", messagesTable(s.buildHistoryView(r)))
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	v := settingsView{Saved: r.URL.Query().Get("saved") == "1"}
	settings, err := s.api.RuleSettings(r.Context())
	if err != nil {
		v.Error = "failed to load settings"
		s.logger.Warn("rule settings load failed", "error", err)
		settings = model.RuleSettings{}
	}
	v.Settings = settings
	s.render(r.Context(), w, "settings", settingsPage(v))
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	settings := make(model.RuleSettings, len(model.RuleSettingKeys))
	for _, k := range model.RuleSettingKeys {
		settings[k] = strings.TrimSpace(r.PostFormValue(k))
	}
	if !settings.Complete() {
		s.render(r.Context(), w, "settings", settingsPage(settingsView{
			Settings: settings,
			Error:    "all settings must be filled in",
		}))
		return
	}
	err := s.trackAPICall("save_rule_settings", func() error {
		return s.api.SaveRuleSettings(r.Context(), settings)
	})
	if err != nil {
		s.logger.Error("rule settings save failed", "error", err)
		s.render(r.Context(), w, "settings", settingsPage(settingsView{
			Settings: settings,
			Error:    "failed to save settings",
		}))
		return
	}
	s.notify("ok", "settings saved")
	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad alert id", http.StatusBadRequest)
		return
	}
	by := r.PostFormValue("by")
	if by == "" {
		by = "dashboard"
	}
	err = s.trackAPICall("ack_alert", func() error {
		_, err := s.api.AckAlert(r.Context(), id, by)
		return err
	})
	if err != nil {
		s.mutationFailed(w, r, "acknowledge", err)
		return
	}
	s.notify("ok", fmt.Sprintf("alert %d acknowledged", id))
	s.reloadAndRedirect(w, r, s.alerts.Load, "/alerts")
}

func (s *Server) handleCloseAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad alert id", http.StatusBadRequest)
		return
	}
	err = s.trackAPICall("close_alert", func() error {
		_, err := s.api.CloseAlert(r.Context(), id)
		return err
	})
	if err != nil {
		s.mutationFailed(w, r, "close", err)
		return
	}
	s.notify("ok", fmt.Sprintf("alert %d closed", id))
	s.reloadAndRedirect(w, r, s.alerts.Load, "/alerts")
}

func (s *Server) handleCloseBulk(w http.ResponseWriter, r *http.Request) {
	var res careapi.BulkCloseResult
	err := s.trackAPICall("close_bulk", func() error {
		var err error
		res, err = s.api.CloseBulk(r.Context(), careapi.BulkCloseParams{
			Status:           model.StatusOpen,
			Type:             model.TypeNoHeartbeat,
			OlderThanMinutes: 60,
		})
		return err
	})
	if err != nil {
		s.mutationFailed(w, r, "bulk close", err)
		return
	}
	s.notify("ok", fmt.Sprintf("closed %d alerts", res.Closed))
	s.reloadAndRedirect(w, r, s.alerts.Load, "/alerts")
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.PostFormValue("older_than_days"))
	if days <= 0 {
		days = 30
	}
	var res careapi.PurgeResult
	err := s.trackAPICall("purge_alerts", func() error {
		var err error
		res, err = s.api.PurgeAlerts(r.Context(), days)
		return err
	})
	if err != nil {
		// An older server without the purge endpoint is not an outage.
		if errors.Is(err, careapi.ErrUnsupported) {
			s.notify("info", "purge is not supported by this server")
			http.Redirect(w, r, "/alerts", http.StatusSeeOther)
			return
		}
		s.mutationFailed(w, r, "purge", err)
		return
	}
	s.notify("ok", fmt.Sprintf("purged %d alerts", res.Purged))
	s.reloadAndRedirect(w, r, s.alerts.Load, "/alerts")
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.PostFormValue("device_id"))
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}
	err := s.trackAPICall("register_device", func() error {
		return s.api.RegisterDevice(r.Context(), deviceID, strings.TrimSpace(r.PostFormValue("room")))
	})
	if err != nil {
		s.mutationFailed(w, r, "register", err)
		return
	}
	s.notify("ok", fmt.Sprintf("device %s registered", deviceID))
	s.reloadAndRedirect(w, r, s.devices.Load, "/devices")
}

func (s *Server) handleUnregisterDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("id")
	err := s.trackAPICall("unregister_device", func() error {
		return s.api.UnregisterDevice(r.Context(), deviceID)
	})
	if err != nil {
		s.mutationFailed(w, r, "unregister", err)
		return
	}
	s.notify("ok", fmt.Sprintf("device %s removed", deviceID))
	s.reloadAndRedirect(w, r, s.devices.Load, "/devices")
}

func (s *Server) handleRoomLED(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	on := r.PostFormValue("on") == "1"
	if err := s.api.SetRoomLED(r.Context(), room, on); err != nil {
		s.mutationFailed(w, r, "led", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleExportAlerts(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	rows := view.FilterAlerts(s.alerts.Items(), parseAlertFilter(r.URL.Query()), now)

	w.Header().Set("Content-Type", view.CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", view.CSVFilename("alerts", now)))
	if err := view.WriteCSV(w, view.AlertColumns, rows); err != nil {
		s.logger.Warn("alerts export aborted", "error", err)
	}
}

func (s *Server) handleExportMessages(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	rows := view.FilterMessages(s.messages.Items(), parseMessageFilter(r.URL.Query()))

	w.Header().Set("Content-Type", view.CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", view.CSVFilename("messages", now)))
	if err := view.WriteCSV(w, view.MessageColumns, rows); err != nil {
		s.logger.Warn("messages export aborted", "error", err)
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	on := r.PostFormValue("on") == "1"
	s.SetLive(on)
	if on {
		s.notify("info", "live updates resumed")
	} else {
		s.notify("info", "live updates paused")
	}
	s.redirectBack(w, r)
}

// handleRefresh forces a visible reload of one feed (or all of them).
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	resource := r.PostFormValue("resource")
	ctx := r.Context()
	switch resource {
	case "alerts":
		_ = s.alerts.Load(ctx, false)
	case "devices":
		_ = s.devices.Load(ctx, false)
	case "messages":
		_ = s.messages.Load(ctx, false)
	case "rooms":
		_ = s.rooms.Load(ctx, false)
	default:
		s.initialLoad(ctx)
	}
	s.redirectBack(w, r)
}

// mutationFailed reports a failed care API mutation and sends the operator
// back. The snapshot is left alone; the next poll reflects reality.
func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, action string, err error) {
	s.logger.Error("mutation failed", "action", action, "error", err)
	s.notify("err", fmt.Sprintf("%s failed", action))

	var statusErr *careapi.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict {
		// State changed under us; refresh so the buttons match the server.
		_ = s.alerts.Load(r.Context(), true)
	}
	s.redirectBack(w, r)
}

// reloadAndRedirect silently refreshes the mutated feed so the page the
// operator lands on already shows the new state.
func (s *Server) reloadAndRedirect(w http.ResponseWriter, r *http.Request, load func(ctx context.Context, silent bool) error, fallback string) {
	_ = load(r.Context(), true)
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Host == r.Host {
			http.Redirect(w, r, u.RequestURI(), http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

func (s *Server) redirectBack(w http.ResponseWriter, r *http.Request) {
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Host == r.Host {
			http.Redirect(w, r, u.RequestURI(), http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func parseAlertFilter(q url.Values) view.AlertFilter {
	last, _ := strconv.Atoi(q.Get("last_minutes"))
	if last < 0 {
		last = 0
	}
	return view.AlertFilter{
		Status:      q.Get("status"),
		Type:        q.Get("type"),
		RoomLike:    q.Get("room"),
		LastMinutes: last,
	}
}

func parseMessageFilter(q url.Values) view.MessageFilter {
	return view.MessageFilter{
		Search: q.Get("q"),
		Device: q.Get("device"),
		Room:   q.Get("room"),
		Motion: q.Get("motion"),
	}
}

// alertFilterQuery rebuilds the query string of an alert filter, for links
// that must preserve it. Empty filter yields an empty string.
func alertFilterQuery(f view.AlertFilter) string {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.RoomLike != "" {
		q.Set("room", f.RoomLike)
	}
	if f.LastMinutes > 0 {
		q.Set("last_minutes", strconv.Itoa(f.LastMinutes))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func messageFilterQuery(f view.MessageFilter) string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Device != "" {
		q.Set("device", f.Device)
	}
	if f.Room != "" {
		q.Set("room", f.Room)
	}
	if f.Motion != view.MotionAny {
		q.Set("motion", f.Motion)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
