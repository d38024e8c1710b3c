package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// Clients ping at least every minute while the exam page is open.
	readWait = 2 * time.Minute
)

// WriteJSON sends an event with data over the WebSocket.
func WriteJSON(conn *websocket.Conn, event Event, data interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ResponsePayload{Event: event, Data: data})
}

// WriteError sends an error event over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ResponsePayload{Event: EventError, Error: errMsg})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
