package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"carewatch.dev/carewatch/internal/health"
	"carewatch.dev/carewatch/internal/model"
	"carewatch.dev/carewatch/internal/view"
)

// Hand-written templ components. The markup is deliberately plain; the data
// flowing through it comes from the derived-view engine, which is where the
// behavior lives.

type alertsView struct {
	Filter   view.AlertFilter
	Summary  view.AlertSummary
	Page     view.Page
	Links    []int
	Rows     []model.Alert
	Selected *model.Alert
	Loading  bool
	Live     bool
	Now      time.Time
}

type devicesView struct {
	Filter  view.DeviceFilter
	Summary view.DeviceSummary
	Rows    []model.Device
	Loading bool
	Now     time.Time
}

type historyView struct {
	Filter  view.MessageFilter
	Rows    []model.Message
	Total   int
	Devices []string
	Rooms   []string
	Now     time.Time
}

type indexView struct {
	OpenAlerts  int
	DeviceCount int
	LastMessage string
	Messages    []model.Message
	Rooms       []model.Room
	Now         time.Time
}

type settingsView struct {
	Settings model.RuleSettings
	Error    string
	Saved    bool
}

func esc(s string) string { return templ.EscapeString(s) }

// dash renders "—" for empty values.
func dash(s string) string {
	if s == "" {
		return health.Unknown
	}
	return esc(s)
}

func layout(title, active string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		nav := []struct{ Path, Name string }{
			{"/", "dashboard"},
			{"/alerts", "alerts"},
			{"/devices", "devices"},
			{"/history", "history"},
			{"/settings", "settings"},
		}
		var links strings.Builder
		for _, n := range nav {
			cls := ""
			if n.Name == active {
				cls = ` class="active"`
			}
			fmt.Fprintf(&links, `<a href="%s"%s>%s</a>`, n.Path, cls, esc(n.Name))
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>%s — carewatch</title>
<link rel="stylesheet" href="/static/app.css">
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
</head><body>
<nav>%s</nav>
<main>`, esc(title), links.String()); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main>
<script>
(function () {
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var ws = new WebSocket(proto + "//" + location.host + "/ws");
  ws.onmessage = function (e) {
    var ev = JSON.parse(e.data);
    if (ev.type === "snapshot") {
      document.body.dispatchEvent(new CustomEvent("feed:" + ev.resource));
    }
  };
})();
</script>
</body></html>`)
		return err
	})
}

func indexPage(v indexView) templ.Component {
	return layout("Dashboard", "dashboard", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section class="kpis">
<div class="kpi kpi-bad"><div class="label">Open alerts</div><div class="value">%d</div></div>
<div class="kpi kpi-good"><div class="label">Devices</div><div class="value">%d</div></div>
<div class="kpi kpi-info"><div class="label">Last message</div><div class="value">%s</div></div>
</section>`, v.OpenAlerts, v.DeviceCount, esc(v.LastMessage)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<h2>Latest messages</h2><table><thead><tr><th>time</th><th>topic</th><th>payload</th></tr></thead><tbody>`); err != nil {
			return err
		}
		if len(v.Messages) == 0 {
			if _, err := io.WriteString(w, `<tr><td colspan="3" class="empty">No messages yet</td></tr>`); err != nil {
				return err
			}
		}
		for _, m := range v.Messages {
			if _, err := fmt.Fprintf(w, `<tr><td class="mono">%s</td><td>%s</td><td class="mono">%s</td></tr>`,
				esc(m.TsUTC), esc(m.Topic), esc(m.Payload)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tbody></table><h2>Room activity</h2><ul class="rooms">`); err != nil {
			return err
		}
		for _, r := range v.Rooms {
			if _, err := fmt.Fprintf(w, `<li>%s <span class="count">%d</span></li>`, esc(r.Name), r.Motions); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	}))
}

func alertsPage(v alertsView) templ.Component {
	return layout("Alerts", "alerts", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>Alerts</h1>
<form method="get" action="/alerts" class="filters">
<label>Status %s</label>
<label>Type %s</label>
<label>Room contains <input name="room" value="%s"></label>
<label>Last minutes <input name="last_minutes" type="number" min="0" value="%s"></label>
<button type="submit">Apply</button>
</form>
<form method="post" action="/live" class="inline"><input type="hidden" name="on" value="%s"><button type="submit">%s</button></form>
<form method="post" action="/refresh" class="inline"><input type="hidden" name="resource" value="alerts"><button type="submit">Refresh</button></form>
<a class="btn" href="/export/alerts.csv%s">Export CSV</a>`,
			selectControl("status", []string{"", model.StatusOpen, model.StatusClosed}, v.Filter.Status),
			selectControl("type", []string{"", model.TypeInactivity, model.TypeDwellCritical, model.TypeNoHeartbeat, model.TypeTestAlert}, v.Filter.Type),
			esc(v.Filter.RoomLike),
			numberValue(v.Filter.LastMinutes),
			liveToggleValue(v.Live), liveToggleLabel(v.Live),
			esc(alertFilterQuery(v.Filter)),
		); err != nil {
			return err
		}
		if v.Filter.Type == model.TypeNoHeartbeat && v.Filter.Status != model.StatusClosed {
			if _, err := io.WriteString(w, `<form method="post" action="/alerts/close-bulk" class="inline"><button type="submit" class="danger">Close stale NO_HEARTBEAT</button></form>`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<form method="post" action="/alerts/purge" class="inline"><input name="older_than_days" type="number" min="1" value="30" title="days"><button type="submit" class="danger">Purge old closed</button></form>`); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<div id="alerts" hx-get="/fragments/alerts%s" hx-trigger="feed:alerts from:body">`, esc(alertFilterQuery(v.Filter))); err != nil {
			return err
		}
		if err := alertsTable(v).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	}))
}

func alertsTable(v alertsView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<p class="summary">Open: <b>%d</b> / Total: <b>%d</b> · INACTIVITY: <b>%d</b> · DWELL_CRITICAL: <b>%d</b> · NO_HEARTBEAT: <b>%d</b></p>`,
			v.Summary.Open, v.Summary.Total,
			v.Summary.ByType[model.TypeInactivity],
			v.Summary.ByType[model.TypeDwellCritical],
			v.Summary.ByType[model.TypeNoHeartbeat]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<table><thead><tr><th>time</th><th>room</th><th>type</th><th>status</th><th>details</th><th>actions</th></tr></thead><tbody>`); err != nil {
			return err
		}
		switch {
		case v.Loading && v.Summary.Total == 0:
			if _, err := io.WriteString(w, `<tr><td colspan="6" class="empty">Loading…</td></tr>`); err != nil {
				return err
			}
		case len(v.Rows) == 0:
			if _, err := io.WriteString(w, `<tr><td colspan="6" class="empty">No alerts found</td></tr>`); err != nil {
				return err
			}
		}
		for _, a := range v.Rows {
			if err := alertRow(w, a, v.Now); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tbody></table>`); err != nil {
			return err
		}
		if err := pagination(w, v.Page, v.Links, alertFilterQuery(v.Filter)); err != nil {
			return err
		}
		if v.Selected != nil {
			return alertDetail(*v.Selected, v.Now).Render(ctx, w)
		}
		return nil
	})
}

func alertRow(w io.Writer, a model.Alert, now time.Time) error {
	details := esc(a.Details)
	if minutes, ok := a.DetailMinutes(); ok {
		details = fmt.Sprintf(`<span class="chip tone-%s">%dm</span> %s`, view.TypeTone(a.Type), minutes, details)
	}
	_, err := fmt.Fprintf(w, `<tr>
<td><a href="/alerts/%d"><span class="mono">%s</span> <span class="ago">%s</span></a></td>
<td>%s</td>
<td><span class="chip tone-%s">%s</span></td>
<td><span class="pill tone-%s">%s</span></td>
<td>%s</td>
<td>
<form method="post" action="/alerts/%d/ack" class="inline"><button type="submit"%s>Ack</button></form>
<form method="post" action="/alerts/%d/close" class="inline"><button type="submit"%s>Close</button></form>
</td>
</tr>`,
		a.ID, esc(a.TsUTC), esc(health.TimeAgo(a.TsUTC, now)),
		dash(a.Room),
		view.TypeTone(a.Type), esc(a.Type),
		view.StatusTone(a.Status), esc(a.Status),
		details,
		a.ID, disabledUnless(a.CanAck()),
		a.ID, disabledUnless(a.CanClose()),
	)
	return err
}

func alertDetail(a model.Alert, now time.Time) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<aside class="drawer">
<h2>Alert #%d</h2>
<p><span class="pill tone-%s">%s</span> <span class="chip tone-%s">%s</span> <span class="chip tone-%s">sev: %s</span></p>
<dl>
<dt>Time</dt><dd>%s (%s)</dd>
<dt>Room</dt><dd>%s</dd>
<dt>Device</dt><dd>%s</dd>
<dt>Details</dt><dd>%s</dd>
<dt>Created</dt><dd>%s</dd>
<dt>Notified</dt><dd>%s</dd>
<dt>Closed</dt><dd>%s</dd>
<dt>Ack at</dt><dd>%s</dd>
<dt>Ack by</dt><dd>%s</dd>
</dl>
<form method="post" action="/alerts/%d/ack" class="inline"><button type="submit"%s>Ack</button></form>
<form method="post" action="/alerts/%d/close" class="inline"><button type="submit"%s>Close</button></form>
<a class="btn" href="/alerts">Close panel</a>
</aside>`,
			a.ID,
			view.StatusTone(a.Status), esc(a.Status),
			view.TypeTone(a.Type), esc(a.Type),
			view.SeverityTone(a.Severity), dash(a.Severity),
			esc(a.TsUTC), esc(health.TimeAgo(a.TsUTC, now)),
			dash(a.Room), dash(a.DeviceID), dash(a.Details),
			dash(a.CreatedAt), dash(a.NotifiedAt), dash(a.ClosedAt), dash(a.AckAt), dash(a.AckBy),
			a.ID, disabledUnless(a.CanAck()),
			a.ID, disabledUnless(a.CanClose()),
		)
		return err
	})
}

func devicesPage(v devicesView) templ.Component {
	return layout("Devices", "devices", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>Devices</h1>
<form method="get" action="/devices" class="filters"><label>Search <input name="q" value="%s" placeholder="device or room"></label><button type="submit">Apply</button></form>
<form method="post" action="/devices/register" class="filters">
<label>Device ID <input name="device_id" placeholder="esp8266-xxx"></label>
<label>Room <input name="room"></label>
<button type="submit">Register device</button>
</form>
<div id="devices" hx-get="/fragments/devices?q=%s" hx-trigger="feed:devices from:body">`,
			esc(v.Filter.Search), esc(v.Filter.Search)); err != nil {
			return err
		}
		if err := devicesTable(v).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>
<p class="hint">Devices must heartbeat within the last 30 minutes to show as UP.</p>`)
		return err
	}))
}

func devicesTable(v devicesView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<p class="summary">Up: <b>%d</b> / Total: <b>%d</b></p>
<table><thead><tr><th>Device ID</th><th>Room</th><th>Last heartbeat</th><th>Status</th><th></th></tr></thead><tbody>`,
			v.Summary.Up, v.Summary.Total); err != nil {
			return err
		}
		if len(v.Rows) == 0 {
			msg := "No devices found"
			if v.Loading {
				msg = "Loading…"
			}
			if _, err := fmt.Fprintf(w, `<tr><td colspan="5" class="empty">%s</td></tr>`, msg); err != nil {
				return err
			}
		}
		for _, d := range v.Rows {
			status := `<span class="pill tone-bad">DOWN</span>`
			if health.IsUp(d.LastHB, v.Now, health.DefaultThreshold) {
				status = `<span class="pill tone-good">UP</span>`
			}
			hb := health.Unknown
			if d.LastHB != "" {
				hb = fmt.Sprintf("%s (%s)", esc(d.LastHB), esc(health.TimeAgo(d.LastHB, v.Now)))
			}
			if _, err := fmt.Fprintf(w, `<tr><td class="mono">%s</td><td>%s</td><td class="mono">%s</td><td>%s</td>
<td><form method="post" action="/devices/%s/unregister" class="inline"><button type="submit" class="danger">Remove</button></form></td></tr>`,
				esc(d.DeviceID), dash(d.Room), hb, status, esc(d.DeviceID)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

func historyPage(v historyView) templ.Component {
	return layout("History", "history", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>History</h1>
<form method="get" action="/history" class="filters">
<label>Search <input name="q" value="%s" placeholder="text, device, topic…"></label>
<label>Device %s</label>
<label>Room %s</label>
<label>Motion %s</label>
<button type="submit">Apply</button>
</form>
<a class="btn" href="/export/messages.csv%s">Export CSV</a>
<span class="hint">%d of %d records</span>
<div id="messages" hx-get="/fragments/messages%s" hx-trigger="feed:messages from:body">`,
			esc(v.Filter.Search),
			selectControl("device", append([]string{""}, v.Devices...), v.Filter.Device),
			selectControl("room", append([]string{""}, v.Rooms...), v.Filter.Room),
			selectControl("motion", []string{view.MotionAny, view.MotionTrue, view.MotionFalse, view.MotionNone}, v.Filter.Motion),
			esc(messageFilterQuery(v.Filter)), len(v.Rows), v.Total, esc(messageFilterQuery(v.Filter))); err != nil {
			return err
		}
		if err := messagesTable(v).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	}))
}

func messagesTable(v historyView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<table><thead><tr><th>time</th><th>room</th><th>device</th><th>motion</th><th>type</th><th>payload</th></tr></thead><tbody>`); err != nil {
			return err
		}
		if len(v.Rows) == 0 {
			if _, err := io.WriteString(w, `<tr><td colspan="6" class="empty">Nothing here.</td></tr>`); err != nil {
				return err
			}
		}
		for _, m := range v.Rows {
			topic := model.ParseTopic(m.Topic)
			motion := health.Unknown
			if mv, ok := m.Motion(); ok {
				motion = `<span class="pill tone-bad">false</span>`
				if mv {
					motion = `<span class="pill tone-good">true</span>`
				}
			}
			if _, err := fmt.Fprintf(w, `<tr><td><span class="mono">%s</span> <span class="ago">%s</span></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td class="mono">%s</td></tr>`,
				esc(m.TsUTC), esc(health.TimeAgo(m.TsUTC, v.Now)),
				dash(topic.Room), dash(m.Device()), motion, dash(topic.Subtype), esc(m.Payload)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

func settingsPage(v settingsView) templ.Component {
	return layout("Settings", "settings", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Rule settings</h1><form method="post" action="/settings" class="settings">`); err != nil {
			return err
		}
		for _, key := range model.RuleSettingKeys {
			if _, err := fmt.Fprintf(w, `<label>%s <input name="%s" value="%s"></label>`,
				esc(key), esc(key), esc(v.Settings[key])); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<button type="submit">Save</button> <a class="btn" href="/settings">Reload</a></form>`); err != nil {
			return err
		}
		if v.Saved {
			if _, err := io.WriteString(w, `<p class="notice tone-good">Settings saved</p>`); err != nil {
				return err
			}
		}
		if v.Error != "" {
			if _, err := fmt.Fprintf(w, `<p class="notice tone-bad">%s</p>`, esc(v.Error)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func pagination(w io.Writer, p view.Page, links []int, query string) error {
	if _, err := io.WriteString(w, `<nav class="pagination">`); err != nil {
		return err
	}
	for _, l := range links {
		if l == view.Ellipsis {
			if _, err := io.WriteString(w, `<span class="gap">…</span>`); err != nil {
				return err
			}
			continue
		}
		cls := ""
		if l == p.Number {
			cls = ` class="current"`
		}
		if _, err := fmt.Fprintf(w, `<a href="/alerts%spage=%d"%s>%d</a>`, esc(queryOrEmpty(query)), l, cls, l); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</nav>`)
	return err
}

// queryOrEmpty prepares a filter query for appending one more parameter.
func queryOrEmpty(query string) string {
	if query == "" {
		return "?"
	}
	return query + "&"
}

func selectControl(name string, options []string, selected string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<select name="%s">`, esc(name))
	for _, o := range options {
		label := o
		if label == "" {
			label = "All"
		}
		sel := ""
		if o == selected {
			sel = ` selected`
		}
		fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, esc(o), sel, esc(label))
	}
	b.WriteString(`</select>`)
	return b.String()
}

func disabledUnless(enabled bool) string {
	if enabled {
		return ""
	}
	return ` disabled`
}

func numberValue(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

func liveToggleValue(live bool) string {
	if live {
		return "0"
	}
	return "1"
}

func liveToggleLabel(live bool) string {
	if live {
		return "Pause live"
	}
	return "Resume live"
}
