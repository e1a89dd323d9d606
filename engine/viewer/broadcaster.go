package viewer

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Broadcaster fans Overlay snapshots out to connected websocket viewers.
// Publish never blocks the synchronization thread: slow clients have their
// oldest pending snapshot dropped.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan Overlay
}

// NewBroadcaster creates a broadcaster that accepts connections from any origin.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the viewer until it disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("viewer: websocket upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan Overlay, 8)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(c)

	// read loop exists only to observe the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.drop(c)
}

func (b *Broadcaster) writeLoop(c *client) {
	for ov := range c.send {
		if err := c.conn.WriteJSON(ov); err != nil {
			b.drop(c)
			c.conn.Close()
			return
		}
	}
	c.conn.Close()
}

// Publish queues a snapshot to every connected viewer.
func (b *Broadcaster) Publish(ov Overlay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- ov:
		default:
			// client is behind; drop the oldest snapshot to make room
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- ov:
			default:
			}
		}
	}
}

// ClientCount returns the number of connected viewers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects all viewers and refuses new connections.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for c := range b.clients {
		close(c.send)
		delete(b.clients, c)
	}
}

func (b *Broadcaster) drop(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}
