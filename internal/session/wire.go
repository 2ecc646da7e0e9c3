package session

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Signaler is the transport the session talks through. The production
// implementation is Wire; tests substitute an in-memory pair.
type Signaler interface {
	Send(*protocol.Message)
	Incoming() <-chan *protocol.Message
	Close()
}

// Wire manages the WebSocket connection to the coordination server.
type Wire struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *protocol.Message
	outgoing  chan *protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewWire creates a signaling connection for the given server URL.
func NewWire(serverURL string) *Wire {
	return &Wire{
		serverURL: serverURL,
		incoming:  make(chan *protocol.Message, 32),
		outgoing:  make(chan *protocol.Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
// Failure here is fatal for joining the room; the caller stays pre-join.
func (w *Wire) Connect() error {
	u, err := url.Parse(w.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	w.conn = conn
	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readPump()
	go w.writePump()

	return nil
}

// readPump reads messages from the WebSocket connection. The incoming
// channel closes when the connection drops, which ends the session loop.
func (w *Wire) readPump() {
	defer func() {
		w.conn.Close()
		close(w.incoming)
	}()

	w.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := w.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case w.incoming <- &msg:
		case <-w.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic
// pings.
func (w *Wire) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case message := <-w.outgoing:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-w.done:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a message for the server. Messages queued after Close are
// dropped.
func (w *Wire) Send(msg *protocol.Message) {
	select {
	case w.outgoing <- msg:
	case <-w.done:
	}
}

// Incoming returns the channel of server messages. It closes when the
// connection drops.
func (w *Wire) Incoming() <-chan *protocol.Message {
	return w.incoming
}

// Close tears the connection down. Safe to call more than once.
func (w *Wire) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}
