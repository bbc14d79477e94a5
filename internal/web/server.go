package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/store"
)

// History is the slice of the telemetry store the web API needs.
type History interface {
	Recent(n int) ([]store.Entry, error)
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>lora-telemetry</title></head>
<body>
<h1>lora-telemetry</h1>
<ul>
<li><a href="/api/status">/api/status</a></li>
<li><a href="/api/logs">/api/logs</a></li>
<li><a href="/api/recent">/api/recent</a> (station with sqlite history)</li>
<li><code>/api/live</code> (websocket record feed)</li>
</ul>
</body>
</html>
`

// Handler assembles the API surface. history may be nil (tracker, or
// station without sqlite); /api/recent then reports 404.
func Handler(status *Status, logs *LogBuffer, live *LiveFeed, history History) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}
	if live != nil {
		mux.Handle("/api/live", live.Handler())
	}

	mux.HandleFunc("/api/recent", func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			http.Error(w, "no history store configured", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		n := 100
		if s := strings.TrimSpace(r.URL.Query().Get("n")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 10000 {
				http.Error(w, "n must be an integer in [1,10000]", http.StatusBadRequest)
				return
			}
			n = v
		}
		entries, err := history.Recent(n)
		if err != nil {
			http.Error(w, "history query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})

	return mux
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, listen string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         listen,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
