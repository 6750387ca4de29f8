package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans score and lifecycle events out to every connected
// frontend client. It implements session.Notifier.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]bool),
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

// session.Notifier implementation.

func (b *Broadcaster) ScoreUpdate(score int) {
	b.broadcast(WSMessage{Type: MsgScoreUpdate, Payload: ScorePayload{Score: score}})
}

func (b *Broadcaster) RecordingStarted(durationSeconds int) {
	b.broadcast(WSMessage{Type: MsgRecordingStarted, Payload: RecordingStartedPayload{Duration: durationSeconds}})
}

func (b *Broadcaster) RecordingEnded(averageScore int) {
	b.broadcast(WSMessage{Type: MsgRecordingEnded, Payload: RecordingEndedPayload{AverageScore: averageScore}})
}

func (b *Broadcaster) RecordingCancelled() {
	b.broadcast(WSMessage{Type: MsgRecordingCancelled})
}

func (b *Broadcaster) DisconnectedUnexpectedly(message string) {
	b.broadcast(WSMessage{Type: MsgDisconnected, Payload: DisconnectedPayload{Message: message}})
}
