package linkmux

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"tailscale.com/tsweb"
)

//go:embed templates/*
var adminTemplateFS embed.FS

var injectLineTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/inject-line.html.tmpl"))

// AttachAdminRoutes attaches debugging endpoints to the given HTTP mux served
// at /debug/. inject receives a line as if it had arrived on the transport,
// letting an operator drive the head without the vision host attached. These
// routes are accessible only over localhost/via Tailscale and are not
// publicly accessible.
func (m *LinkMux[T]) AttachAdminRoutes(mux *http.ServeMux, inject func(line string)) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("inject-line", "inject a protocol line into the head link", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := injectLineTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("inject-line-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		line := strings.TrimSpace(r.FormValue("line"))
		if line == "" {
			http.Error(w, "Missing line", http.StatusBadRequest)
			return
		}
		inject(line)
		io.WriteString(w, fmt.Sprintf("Injected line %q", line))
	})

	// SSE stream of completed inbound lines.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
