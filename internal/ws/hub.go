package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// locationEvent is an internal struct for routing events to specific locations
type locationEvent struct {
	LocationID uuid.UUID
	Event      Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by location ID
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *locationEvent

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *locationEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client connection.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for locationID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, locationID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.locationID] == nil {
				h.rooms[client.locationID] = make(map[*Client]bool)
			}
			h.rooms[client.locationID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.locationID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.locationID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.LocationID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				if !client.wants(event.Event.Type) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop the connection rather than stall the room.
					close(client.send)
					delete(h.rooms[event.LocationID], client)
					if len(h.rooms[event.LocationID]) == 0 {
						delete(h.rooms, event.LocationID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// add registers c. It reports false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters c; after the hub has stopped it is a no-op.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToLocation queues an event for every client subscribed to a
// location. When the queue is full the event is dropped rather than blocking
// the caller.
func (h *Hub) BroadcastToLocation(locationID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &locationEvent{LocationID: locationID, Event: event}:
	default:
		log.WithFields(log.Fields{
			"location_id": locationID,
			"event":       event.Type,
		}).Warn("websocket broadcast queue full, dropping event")
	}
}

// Publish marshals payload and broadcasts it as an event of eventType.
// It lets the hub serve as the services' event publisher.
func (h *Hub) Publish(locationID uuid.UUID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("event", eventType).Error("failed to marshal websocket payload")
		return
	}
	h.BroadcastToLocation(locationID, Event{Type: eventType, Payload: data})
}

// ClientCount returns the number of clients connected for a location.
func (h *Hub) ClientCount(locationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[locationID])
}
