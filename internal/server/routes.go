package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/peerlink/internal/relay"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// Relay clients are CLIs and browsers on arbitrary origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewMux registers the relay's routes.
func NewMux(hub *relay.Hub, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthCheck(hub))
	mux.HandleFunc("/ws", ServeWs(hub, logger))
	mux.Handle("/metrics", MetricsHandler(hub))
	return mux
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *relay.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade the HTTP connection to a WebSocket
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "err", err)
			return
		}

		conn := relay.NewConn(hub, ws, uuid.NewString())

		// Register the connection with the hub
		if err := conn.Join(); err != nil {
			ws.Close()
			return
		}
		logger.Debug("relay client connected", "conn", conn.ID, "remote", r.RemoteAddr)

		// The pumps own the connection from here on.
		go conn.WritePump()
		go conn.ReadPump()
	}
}

// HealthCheck reports liveness plus the hub's current load.
func HealthCheck(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		select {
		case <-hub.Done():
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Relay hub is stopped.\n"))
			return
		default:
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Relay is healthy. connections=%d values=%d\n", hub.Active(), hub.Leaves())
	}
}

// MetricsHandler exposes the hub's counters in Prometheus' text exposition
// format: one counter family with an `event` label plus two gauges.
func MetricsHandler(hub *relay.Hub) http.Handler {
	escape := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := hub.Stats().Snapshot()
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = fmt.Fprintln(w, "# HELP peerlink_relay_events_total Relay event counters.")
		_, _ = fmt.Fprintln(w, "# TYPE peerlink_relay_events_total counter")
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "peerlink_relay_events_total{event=\"%s\"} %d\n", escape.Replace(k), snap[k])
		}
		_, _ = fmt.Fprintln(w, "# HELP peerlink_relay_connections Connected relay clients.")
		_, _ = fmt.Fprintln(w, "# TYPE peerlink_relay_connections gauge")
		_, _ = fmt.Fprintf(w, "peerlink_relay_connections %d\n", hub.Active())
		_, _ = fmt.Fprintln(w, "# HELP peerlink_relay_values Values stored in the relay tree.")
		_, _ = fmt.Fprintln(w, "# TYPE peerlink_relay_values gauge")
		_, _ = fmt.Fprintf(w, "peerlink_relay_values %d\n", hub.Leaves())
	})
}
