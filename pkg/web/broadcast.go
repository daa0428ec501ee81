package web

import (
	"encoding/json"
	"log"
	"sync"

	"sub_trigger_bot/pkg/control"
	"sub_trigger_bot/pkg/notify"

	"github.com/gorilla/websocket"
)

const (
	clientSendBuf = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientSendBuf),
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

// Streams loop notifications to websocket clients.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]bool),
	}
}

// Registers a connection and greets it with the current status.
func (b *Broadcaster) AddClient(conn *websocket.Conn, status control.Status) *client {
	c := newClient(conn)

	data, err := json.Marshal(struct {
		Type   string         `json:"type"`
		Status control.Status `json:"status"`
	}{"status", status})
	if err != nil {
		log.Printf("failed to marshal status, error %v\n", err)
		data = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.clients[c] = true
	if data != nil {
		select {
		case c.send <- data:
		default:
			// client too slow, drop the status
		}
	}

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

// Implements notify.Observer.
func (b *Broadcaster) Notify(e notify.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("failed to marshal event, error %v\n", err)
		return
	}

	b.broadcast(data)
}

// Sends happen under the read lock so RemoveClient and Close, which close
// c.send under the write lock, never race a send.
func (b *Broadcaster) broadcast(data []byte) {
	var slow []*client

	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		// client can't keep up, disconnect it
		log.Printf("ws client too slow, disconnecting\n")
		b.RemoveClient(c)
	}
}

// Disconnects all clients.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
