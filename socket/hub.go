package socket

import (
	"context"
	"encoding/json"
	"sync"

	"portfoliocms/pkg/logger"
	"portfoliocms/store"
)

const (
	SnapshotType       = "CONTENT_SNAPSHOT" // Full document, sent on connect and after a restore
	SectionUpdatedType = "SECTION_UPDATED"  // One section changed
)

type WSMessage struct {
	Type    string          `json:"type"`
	Section string          `json:"section,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans content-change events out to every connected client. The feed is
// read-only; clients never write through it.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	store      store.Store
	done       chan struct{}

	mu    sync.Mutex
	count int
}

func NewHub(st store.Store) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		store:      st,
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client's send queue.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.setCount(len(h.clients))

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.setCount(len(h.clients))
			}

		case payload := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Client %s send buffer is full, disconnecting", client.ID)
					delete(h.clients, client)
					close(client.Send)
				}
			}
			h.setCount(len(h.clients))

		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.setCount(0)
			close(h.done)
			return
		}
	}
}

// BroadcastSection announces a changed section.
func (h *Hub) BroadcastSection(section string, data any) {
	h.publish(SectionUpdatedType, section, data)
}

// BroadcastSnapshot announces a full document replacement.
func (h *Hub) BroadcastSnapshot(doc store.Document) {
	h.publish(SnapshotType, "", doc)
}

func (h *Hub) publish(msgType, section string, data any) {
	payload, err := encodeMessage(msgType, section, data)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s broadcast: %v", msgType, err)
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
		logger.Sugar.Warnf("Broadcast queue full, dropping %s event for %q", msgType, section)
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func encodeMessage(msgType, section string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: msgType, Section: section, Payload: raw})
}
