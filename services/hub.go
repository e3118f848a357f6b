package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

// StateSource answers state_sync requests.
type StateSource interface {
	CachedState(ctx context.Context, roomID string) (*RoomState, error)
}

// PresenceTracker is told when a player's socket comes and goes.
type PresenceTracker interface {
	SetConnected(ctx context.Context, roomID, playerID string, connected bool) error
}

// Hub fans room events out to the sockets connected to this instance.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	state    StateSource
	presence PresenceTracker
}

type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	roomID   string
	playerID string
	role     Role
}

// Message is the envelope of everything a client sends or receives.
type Message struct {
	Type    string      `json:"type"`
	RoomID  string      `json:"room_id,omitempty"`
	Payload interface{} `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Attach wires the hub to the services it calls back into. It must be
// called before Run.
func (h *Hub) Attach(state StateSource, presence PresenceTracker) {
	h.state = state
	h.presence = presence
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			n := len(h.rooms[client.roomID])
			h.mutex.Unlock()
			log.Printf("[Hub] room %s: client %s registered (%s %s), %d connected", client.roomID, client.id, client.role, client.playerID, n)
			go h.markPresence(client, true)

		case client := <-h.unregister:
			h.mutex.Lock()
			removed := h.remove(client)
			n := len(h.rooms[client.roomID])
			h.mutex.Unlock()
			if removed {
				log.Printf("[Hub] room %s: client %s unregistered, %d connected", client.roomID, client.id, n)
				go h.markPresence(client, false)
			}
		}
	}
}

// remove drops client and closes its send channel. Callers hold the lock.
func (h *Hub) remove(client *Client) bool {
	clients, ok := h.rooms[client.roomID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}
	return true
}

func (h *Hub) markPresence(client *Client, connected bool) {
	if h.presence == nil || client.role != RolePlayer {
		return
	}
	if err := h.presence.SetConnected(context.Background(), client.roomID, client.playerID, connected); err != nil {
		log.Printf("[Hub] room %s: presence of %s: %v", client.roomID, client.playerID, err)
	}
}

// Publish delivers ev to the local sockets of its room. It lets the hub act
// as the Notifier of a single instance without Redis.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.deliver(ev.RoomID, data)
	return nil
}

func (h *Hub) deliver(roomID string, data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			log.Printf("[Hub] room %s: client %s send buffer full, closing connection", roomID, client.id)
			h.remove(client)
		}
	}
}

// Forward relays events published on Redis by any instance to the local
// sockets until ctx is done.
func (h *Hub) Forward(ctx context.Context, client *redis.Client) {
	sub := client.PSubscribe(ctx, eventsPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[Hub] dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			h.deliver(ev.RoomID, []byte(msg.Payload))
		}
	}
}

// ConnectedCount is the number of local sockets open for a room.
func (h *Hub) ConnectedCount(roomID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) RegisterClient(conn *websocket.Conn, roomID, playerID string, role Role) *Client {
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, sendBufferSize),
		roomID:   roomID,
		playerID: playerID,
		role:     role,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Hub] room %s: read error: %v", c.roomID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("[Hub] room %s: malformed message from %s: %v", c.roomID, c.id, err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

// reply queues msg for this client only. It gives up if the client is
// already being torn down.
func (c *Client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] room %s: marshal %s: %v", c.roomID, msg.Type, err)
		return
	}
	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()
	if !c.hub.rooms[c.roomID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		c.reply(Message{Type: "pong", RoomID: c.roomID, Payload: "pong"})

	case "request_state":
		if c.hub.state == nil {
			return
		}
		state, err := c.hub.state.CachedState(context.Background(), c.roomID)
		if err != nil {
			log.Printf("[Hub] room %s: state for %s: %v", c.roomID, c.id, err)
			return
		}
		c.reply(Message{Type: "state_sync", RoomID: c.roomID, Payload: state})

	default:
		log.Printf("[Hub] room %s: unknown message type %q from %s", c.roomID, msg.Type, c.id)
	}
}
