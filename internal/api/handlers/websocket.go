package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	ws "github.com/event-catalog/backend/internal/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketUpgrade upgrades HTTP connections and attaches them to the hub
// so they receive ingest lifecycle broadcasts.
func WebSocketUpgrade(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade error: %v", err)
			return
		}

		client := ws.NewClient(hub)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub)
	}
}

// writePump drains the client's outbound channel onto the connection and
// keeps it alive with periodic pings.
func writePump(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub dropped this client.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away.
func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}
		handleClientMessage(client, frame)
	}
}

// handleClientMessage answers application-level pings; anything else is
// unsupported and reported back to the sender.
func handleClientMessage(client *ws.Client, frame []byte) {
	var msg ws.Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		reply(client, ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:    "invalid_message",
			Message: "messages must be JSON with a type field",
		}))
		return
	}

	switch msg.Type {
	case ws.TypePing:
		reply(client, ws.NewMessage(ws.TypePong, nil))
	default:
		reply(client, ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:    "unsupported_type",
			Message: "unsupported message type: " + string(msg.Type),
		}))
	}
}

func reply(client *ws.Client, msg ws.Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("encoding websocket reply: %v", err)
		return
	}
	select {
	case client.Send() <- data:
	default:
	}
}
