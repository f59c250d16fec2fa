package dashboard

import "net/http"

// The dashboard carries its stylesheet inline; there is no asset pipeline.
const stylesheet = `:root { --bg: #101418; --fg: #e6e9ec; --muted: #8a939c; --line: #242b33; }
* { box-sizing: border-box; }
body { margin: 0; background: var(--bg); color: var(--fg); font: 14px/1.5 system-ui, sans-serif; }
nav { display: flex; gap: 1rem; padding: .75rem 1.25rem; border-bottom: 1px solid var(--line); }
nav a { color: var(--muted); text-decoration: none; text-transform: capitalize; }
nav a.active, nav a:hover { color: var(--fg); }
main { padding: 1.25rem; max-width: 72rem; margin: 0 auto; }
table { width: 100%; border-collapse: collapse; margin: .75rem 0; }
th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid var(--line); vertical-align: top; }
th { color: var(--muted); font-weight: 500; }
.mono { font-family: ui-monospace, monospace; font-size: .85rem; }
.ago { color: var(--muted); font-size: .8rem; }
.empty { color: var(--muted); text-align: center; padding: 1.5rem; }
.filters { display: flex; flex-wrap: wrap; gap: .75rem; align-items: end; margin: .5rem 0; }
.filters label { display: flex; flex-direction: column; gap: .2rem; color: var(--muted); font-size: .8rem; }
input, select, button, .btn { background: #1a2027; color: var(--fg); border: 1px solid var(--line); border-radius: 4px; padding: .35rem .6rem; font: inherit; }
button:hover, .btn:hover { border-color: var(--muted); cursor: pointer; }
button:disabled { opacity: .4; cursor: default; }
button.danger { border-color: #7a2e2e; }
.btn { text-decoration: none; display: inline-block; }
.inline { display: inline; }
.pill, .chip { display: inline-block; padding: .1rem .5rem; border-radius: 999px; font-size: .75rem; }
.chip { border-radius: 4px; }
.tone-good { background: #143d24; color: #7ee2a8; }
.tone-bad { background: #46191c; color: #f2a0a6; }
.tone-warn { background: #4a3a12; color: #f0cf7e; }
.tone-info { background: #15324a; color: #8fc7f2; }
.tone-muted, .tone-neutral { background: #242b33; color: var(--muted); }
.kpis { display: flex; gap: 1rem; margin-bottom: 1rem; }
.kpi { flex: 1; padding: .9rem 1.1rem; border: 1px solid var(--line); border-radius: 6px; }
.kpi .label { color: var(--muted); font-size: .8rem; }
.kpi .value { font-size: 1.6rem; }
.summary b { font-weight: 600; }
.pagination { display: flex; gap: .35rem; margin: .75rem 0; }
.pagination a { color: var(--muted); text-decoration: none; padding: .2rem .55rem; border: 1px solid var(--line); border-radius: 4px; }
.pagination a.current { color: var(--fg); border-color: var(--muted); }
.pagination .gap { color: var(--muted); padding: .2rem .2rem; }
.drawer { position: fixed; top: 0; right: 0; bottom: 0; width: 24rem; background: #161b21; border-left: 1px solid var(--line); padding: 1.25rem; overflow-y: auto; }
.drawer dl { display: grid; grid-template-columns: auto 1fr; gap: .25rem .75rem; }
.drawer dt { color: var(--muted); }
.rooms { list-style: none; padding: 0; display: flex; gap: 1rem; flex-wrap: wrap; }
.rooms li { border: 1px solid var(--line); border-radius: 6px; padding: .5rem .9rem; }
.rooms .count { color: var(--muted); }
.settings { display: grid; grid-template-columns: repeat(3, 1fr); gap: .75rem; align-items: end; max-width: 56rem; }
.settings label { display: flex; flex-direction: column; gap: .2rem; color: var(--muted); font-size: .8rem; }
.notice { padding: .5rem .9rem; border-radius: 4px; display: inline-block; }
.hint { color: var(--muted); font-size: .85rem; }
`

func handleStylesheet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write([]byte(stylesheet))
}
