package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ahmedasif11/let-meet-sub000/internal/protocol"
	"github.com/ahmedasif11/let-meet-sub000/internal/relay"
)

// Configure the websocket upgrader. Buffers are sized for SDP payloads.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Origin checking is left to a fronting proxy; the relay accepts
	// any origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades the request to a
// websocket, assigns the connection id and attaches it to the hub.
func ServeWs(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := &relay.Client{
			ID:   uuid.NewString(),
			Hub:  hub,
			Conn: conn,
			Send: make(chan *protocol.Message, 256),
		}
		hub.Attach(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

// Health reports liveness for load balancers and uptime checks.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}
