package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"dispatch/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced at the gateway; the service accepts all.
		return true
	},
}

// envelope is the wire format for every hub message, both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub manages WebSocket connections, job rooms and user bindings.
//
// Clients join a job room to follow one job's lifecycle and live location.
// A client that identifies itself is additionally addressable by user ID.
// Delivery is best effort: a client whose send buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{} // jobID -> members
	users   map[string]map[*Client]struct{} // userID -> connections

	relay *relay.Relay

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a new Hub. locationRelay may be nil; location updates are
// then fanned out to the room without being stored.
func NewHub(locationRelay *relay.Relay) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		users:      make(map[string]map[*Client]struct{}),
		relay:      locationRelay,
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
	}
}

// Run processes client registration until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.removeClient(client)

		case <-h.done:
			return
		}
	}
}

// Stop terminates the Run loop and closes every connection.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.users = make(map[string]map[*Client]struct{})
}

// ServeWS upgrades the HTTP request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 64),
		rooms: make(map[string]struct{}),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastGlobal sends an event to every connected client.
func (h *Hub) BroadcastGlobal(event string, payload any) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.trySend(msg)
	}
}

// BroadcastToJob sends an event to clients subscribed to the job's room.
func (h *Hub) BroadcastToJob(jobID, event string, payload any) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[jobID] {
		client.trySend(msg)
	}
}

// BroadcastToUser sends an event to every connection identified as userID.
func (h *Hub) BroadcastToUser(userID, event string, payload any) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.users[userID] {
		client.trySend(msg)
	}
}

// RoomSize returns the number of clients in a job room.
func (h *Hub) RoomSize(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[jobID])
}

func (h *Hub) joinRoom(jobID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[jobID] == nil {
		h.rooms[jobID] = make(map[*Client]struct{})
	}
	h.rooms[jobID][client] = struct{}{}
	client.rooms[jobID] = struct{}{}
}

func (h *Hub) leaveRoom(jobID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(jobID, client)
}

func (h *Hub) leaveRoomLocked(jobID string, client *Client) {
	if members := h.rooms[jobID]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, jobID)
		}
	}
	delete(client.rooms, jobID)
}

func (h *Hub) identify(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.userID == userID {
		return
	}
	h.dropUserLocked(client)

	client.userID = userID
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Client]struct{})
	}
	h.users[userID][client] = struct{}{}
}

func (h *Hub) dropUserLocked(client *Client) {
	if client.userID == "" {
		return
	}
	if conns := h.users[client.userID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.users, client.userID)
		}
	}
	client.userID = ""
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for jobID := range client.rooms {
		h.leaveRoomLocked(jobID, client)
	}
	h.dropUserLocked(client)
	close(client.send)
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: data})
}
