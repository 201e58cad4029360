package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/burst-fire/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"age": func(d time.Duration) string {
		if d < time.Second {
			return fmt.Sprintf("%dms", d.Milliseconds())
		}
		return d.Truncate(100 * time.Millisecond).String()
	},
	"duty": func(p float64) string {
		return fmt.Sprintf("%.1f%%", p)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Burst Fire</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.idle { color: green; font-weight: bold; }
.receiving { color: orange; }
.stopped { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Burst Fire</h1>

<h2>State</h2>
<table>
<tr><th>Engine</th><td id="state" class="{{if eq .State "IDLE"}}idle{{else if eq .State "RECEIVING"}}receiving{{else}}stopped{{end}}">{{.State}}</td></tr>
<tr><th>Semicycle</th><td>{{.Engine.Counter}} / 120</td></tr>
<tr><th>Last contact</th><td>{{age .ContactAge}} ago</td></tr>
</table>

<h2>Heaters</h2>
<table>
<tr><th>Channel</th><td>Threshold</td><td>Duty</td></tr>
{{range .Channels}}<tr><th>{{.Channel}}</th><td>{{.Threshold}}</td><td>{{duty .DutyPercent}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>Command link</th><td>{{.Config.LinkPort}} @ {{.Config.BaudRate}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Dropped messages</th><td>{{.MQTTDropped}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Edges</th><td>{{.Engine.Counts.Edges}}</td></tr>
<tr><th>Dropped edges</th><td>{{.DroppedEdges}}</td></tr>
<tr><th>Frames</th><td>{{.Engine.Counts.Frames}}</td></tr>
<tr><th>Transactions</th><td>{{.Engine.Counts.Transactions}}</td></tr>
<tr><th>Aborted</th><td>{{.Engine.Counts.Aborted}}</td></tr>
<tr><th>Clamped</th><td>{{.Engine.Counts.Clamped}}</td></tr>
<tr><th>Ignored bytes</th><td>{{.Engine.Counts.Ignored}}</td></tr>
<tr><th>Failsafe stops</th><td>{{.Engine.Counts.Stops}}</td></tr>
<tr><th>Resumes</th><td>{{.Engine.Counts.Resumes}}</td></tr>
<tr><th>Output errors</th><td>{{.Engine.Counts.OutputErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Zero-cross edge</th><td>{{.Config.ZeroCrossEdge}}</td></tr>
<tr><th>Watchdog</th><td>{{if .Config.WatchdogDev}}{{.Config.WatchdogDev}} ({{.Config.WatchdogMs}}ms){{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has methods but the template needs plain fields.
	data := struct {
		status.Snapshot
		State      string
		Uptime     time.Duration
		ContactAge time.Duration
		Channels   []status.ChannelJSON
	}{
		Snapshot:   snap,
		State:      snap.Engine.State.String(),
		Uptime:     snap.Uptime(),
		ContactAge: snap.ContactAge(),
		Channels:   status.Channels(snap.Engine.Thresholds),
	}
	indexTmpl.Execute(w, data)
}
