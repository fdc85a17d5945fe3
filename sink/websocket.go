package sink

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hyprice/models"
	"hyprice/utils"
)

const writeTimeout = 10 * time.Second

// WSHub broadcasts delivered views to connected websocket clients, so
// updated watchlists can be observed live without a chat transport.
type WSHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// Serializes broadcasts; gorilla connections support only one
	// concurrent writer.
	writeMu sync.Mutex
}

type wsPayload struct {
	SubscriberID int64           `json:"subscriber_id"`
	Text         string          `json:"text"`
	Actions      []models.Action `json:"actions"`
	At           time.Time       `json:"at"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler upgrades requests to websocket connections and registers them
// for broadcasts.
func (h *WSHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			utils.Error(err, "Websocket upgrade failed", "remote_addr", r.RemoteAddr)
			return
		}

		h.mu.Lock()
		h.clients[conn] = struct{}{}
		h.mu.Unlock()

		utils.Logger.Infow("View feed client connected", "remote_addr", r.RemoteAddr)

		// Drain control frames; a read error means the client is gone.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					h.drop(conn)
					return
				}
			}
		}()
	}
}

func (h *WSHub) Deliver(subscriberID int64, view models.RenderedView) error {
	payload := wsPayload{
		SubscriberID: subscriberID,
		Text:         view.Text,
		Actions:      view.Actions,
		At:           time.Now(),
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			utils.Logger.Warnw("View feed write failed, dropping client", "error", err)
			h.drop(conn)
		}
	}
	return nil
}

func (h *WSHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Close disconnects every client.
func (h *WSHub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		conn.Close()
	}
}
