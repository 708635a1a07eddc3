package agent

import (
	"fmt"
	"html"
	"net/http"
	"strings"
)

// HTTPHandler returns a page showing the agent's state. POSTing the form
// restarts the agent on the given address or stops it.
func HTTPHandler() http.Handler {
	return httpHandler{}
}

type httpHandler struct{}

func (h httpHandler) errorLogger() func(error) {
	if f := singletonConn.ActiveConfig().ErrorLogger; f != nil {
		return f
	}
	return func(error) {}
}

func (h httpHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// GETs render the current state of the agent.
	if req.Method == http.MethodGet {
		h.handleGet(w)
		return
	}

	if err := req.ParseForm(); err != nil {
		h.errorLogger()(fmt.Errorf("failed to parse form: %w", err))
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if _, ok := req.Form["stop"]; ok {
		Stop()
		h.handleGet(w)
		return
	}

	if _, ok := req.Form["start"]; !ok {
		h.errorLogger()(fmt.Errorf("invalid POST: missing start/stop"))
		http.Error(w, "invalid POST: missing start/stop", http.StatusBadRequest)
		return
	}

	addr, ok := req.Form["addr"]
	if !ok {
		h.errorLogger()(fmt.Errorf("invalid POST: missing addr"))
		http.Error(w, "invalid POST: missing addr", http.StatusBadRequest)
		return
	}

	// Keep the rest of the active configuration.
	prev := singletonConn.ActiveConfig()
	opts := []Option{
		WithLogger(prev.Logger),
		WithErrorLogger(prev.ErrorLogger),
	}
	if prev.Manager != nil {
		opts = append(opts, WithManager(prev.Manager))
	}
	if addr[0] != "" {
		opts = append(opts, WithListenAddr(addr[0]))
	}
	if err := Init(req.Context(), opts...); err != nil {
		h.errorLogger()(fmt.Errorf("failed to restart agent: %w", err))
	}

	// Generate the page after the update.
	h.handleGet(w)
}

func (h httpHandler) handleGet(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	status := CurrentStatus()
	color := "red"
	if status == Serving {
		color = "green"
	}
	var addr string
	if a := Addr(); a != nil {
		addr = a.String()
	}

	sb := strings.Builder{}
	sb.WriteString(`<html>
<head>
	<title>Thread control agent</title>
	<style>
	.circle {
		height: 21px;
		width: 21px;
		border-radius: 50%;
		display: inline-block;
	}
	</style>
</head>
<body>
<h1>Thread control agent</h1>
<form action="" method="POST">
<div style="
	display:grid;
	gap:3px;
	grid-template-columns: 9em 20em;
	margin-bottom: 10px;"
	>
`)
	sb.WriteString(fmt.Sprintf(`
<div>Status:</div>
<div style="display:flex; flex-direction:row; align-items:center; gap:3px">
	<div class="circle" style="background-color:%s;"></div>
	<span>%s</span>
</div>`, color, status))
	sb.WriteString("<div>Listen address:</div>")
	sb.WriteString(fmt.Sprintf(`<input type="text" name="addr" value="%s"/>`,
		html.EscapeString(addr)))
	sb.WriteString("<div>Fingerprint:</div>")
	sb.WriteString(fmt.Sprintf("<div>%s</div>",
		html.EscapeString(singletonConn.ProcessFingerprint())))

	stopAttribute := ""
	if status == Uninitialized {
		stopAttribute = "disabled"
	}

	sb.WriteString(fmt.Sprintf(`
</div>
<input type="submit" value="Restart" name="start"/>
<input type="submit" value="Stop" name="stop" %s/>
</form>
</body>
</html>`, stopAttribute))

	if _, err := w.Write([]byte(sb.String())); err != nil {
		h.errorLogger()(fmt.Errorf("failed to write response: %w", err))
	}
}
