package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LookupEvent describes websocket payloads emitted as lookups progress.
type LookupEvent struct {
	Type      string    `json:"type"`
	LookupID  string    `json:"lookup_id"`
	Country   string    `json:"country"`
	Cards     int       `json:"cards,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// LookupNotifier keeps track of active websocket clients and broadcasts lookup events.
type LookupNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *LookupEvent
}

// NewLookupNotifier constructs a notifier instance.
func NewLookupNotifier() *LookupNotifier {
	return &LookupNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the latest event to it.
func (n *LookupNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *LookupNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the event to every registered client. The latest event wins
// the replay slot regardless of which lookup produced it.
func (n *LookupNotifier) Broadcast(event LookupEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	snapshot := event
	n.lastStatus = &snapshot

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

// LastStatus returns a copy of the most recent event, if any.
func (n *LookupNotifier) LastStatus() *LookupEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}
