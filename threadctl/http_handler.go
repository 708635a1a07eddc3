package threadctl

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTPHandler returns a debug page for the threads tracked by m. GET renders
// the threads and the stacks of suspended ones; a POST with a "suspend" or
// "resume" form value naming a thread id drives that thread.
func HTTPHandler(m *Manager, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpHandler{m: m, logger: logger.Named("threadctl.http")}
}

// DebugMux serves HTTPHandler at /threads and the metrics in reg at /metrics.
// The suspend protocol's collectors are registered with reg.
func DebugMux(m *Manager, reg *prometheus.Registry, logger *zap.Logger) *http.ServeMux {
	RegisterMetrics(reg)
	mux := http.NewServeMux()
	mux.Handle("/threads", HTTPHandler(m, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

type httpHandler struct {
	m      *Manager
	logger *zap.Logger
}

func (h httpHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// GETs render the current state of the threads.
	if req.Method == http.MethodGet {
		h.handleGet(w, "")
		return
	}

	if err := req.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", zap.Error(err))
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var action, rawID string
	if v := req.Form.Get("suspend"); v != "" {
		action, rawID = "suspend", v
	} else if v := req.Form.Get("resume"); v != "" {
		action, rawID = "resume", v
	} else {
		http.Error(w, "invalid POST: missing suspend/resume", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid thread id %q", rawID), http.StatusBadRequest)
		return
	}
	t, ok := h.m.Lookup(id)
	if !ok {
		http.Error(w, fmt.Sprintf("thread %s not found", id), http.StatusNotFound)
		return
	}

	var msg string
	switch action {
	case "suspend":
		_, err = t.Suspend(context.Background())
	case "resume":
		err = t.Resume()
	}
	if err != nil {
		h.logger.Warn("debug page action failed",
			zap.String("action", action), zap.Stringer("thread", id), zap.Error(err))
		msg = err.Error()
	}

	// Generate the page after the update.
	h.handleGet(w, msg)
}

func (h httpHandler) handleGet(w http.ResponseWriter, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	sb := strings.Builder{}
	sb.WriteString(`<html>
<head>
	<title>Managed threads</title>
	<style>
	.circle {
		height: 14px;
		width: 14px;
		border-radius: 50%;
		display: inline-block;
	}
	td, th { padding: 2px 8px; text-align: left; }
	</style>
</head>
<body>
<h1>Managed threads</h1>
`)
	if errMsg != "" {
		sb.WriteString(fmt.Sprintf(`<p style="color:red">%s</p>`, html.EscapeString(errMsg)))
	}
	sb.WriteString(`<form action="" method="POST">
<table>
<tr><th></th><th>Name</th><th>ID</th><th>TID</th><th>Goroutine</th><th>State</th><th></th></tr>
`)
	threads := h.m.List()
	for _, t := range threads {
		state := t.State()
		var color, button string
		switch state {
		case Running:
			color = "green"
			button = fmt.Sprintf(`<button type="submit" name="suspend" value="%s">Suspend</button>`, t.ID())
		case Suspended:
			color = "orange"
			button = fmt.Sprintf(`<button type="submit" name="resume" value="%s">Resume</button>`, t.ID())
		default:
			color = "red"
		}
		sb.WriteString(fmt.Sprintf(
			`<tr><td><div class="circle" style="background-color:%s;"></div></td>`+
				`<td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%s</td><td>%s</td></tr>
`,
			color, html.EscapeString(t.Name()), t.ID(), t.Handle(), t.GoroutineID(), state, button))
	}
	sb.WriteString("</table>\n</form>\n")

	for _, t := range threads {
		c, ok := t.Context()
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("<h2>%s</h2>\n<pre>", html.EscapeString(t.Name())))
		for _, f := range c.Frames() {
			sb.WriteString(html.EscapeString(f.String()))
			sb.WriteString("\n")
		}
		sb.WriteString("</pre>\n")
	}
	if len(threads) == 0 {
		sb.WriteString("<p>No managed threads.</p>\n")
	}
	sb.WriteString("</body>\n</html>")

	if _, err := w.Write([]byte(sb.String())); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}
