// Package chatws fans chat messages out to connected websocket clients.
package chatws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/aliattia10/paseo-backend/internal/services"
)

const sendBuffer = 32

// Sender persists an inbound chat message and reports who should see it.
type Sender interface {
	SendMessage(ctx context.Context, userID, conversationID int64, content string) (*services.ChatDelivery, error)
}

// Envelope is the wire format in both directions. Ids are numeric, matching
// the REST payloads.
type Envelope struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	SenderID       int64  `json:"sender_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// Hub tracks which users have open sockets. A user may be connected from
// several devices at once.
type Hub struct {
	mu      sync.Mutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}
}

// Attach runs the pumps for a new connection until the socket closes.
func (h *Hub) Attach(conn *websocket.Conn, userID int64, service Sender) {
	client := NewClient(h, conn, userID)
	h.Register(client)
	go client.WritePump()
	client.ReadPump(service)
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[client.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[client.userID]
	if set == nil {
		return
	}
	if _, ok := set[client]; ok {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

// Push delivers a stored message to both participants' open sockets. A slow
// consumer is dropped rather than allowed to stall the rest.
func (h *Hub) Push(delivery *services.ChatDelivery) {
	payload, err := json.Marshal(Envelope{
		Type:           "message",
		ConversationID: delivery.Message.ConversationID,
		SenderID:       delivery.Message.SenderID,
		Content:        delivery.Message.Content,
		Timestamp:      services.FormatChatTimestamp(delivery.Message.CreatedAt),
	})
	if err != nil {
		log.Printf("chat hub: encode message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendToUserLocked(delivery.Message.SenderID, payload)
	if delivery.RecipientID != delivery.Message.SenderID {
		h.sendToUserLocked(delivery.RecipientID, payload)
	}
}

func (h *Hub) sendToUserLocked(userID int64, payload []byte) {
	set := h.clients[userID]
	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if set != nil && len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump consumes inbound frames until the socket closes. Every accepted
// message goes through the chat service, so the websocket path enforces the
// same participant checks as the REST one.
func (c *Client) ReadPump(service Sender) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming Envelope
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("invalid message payload")
			continue
		}
		if incoming.Type != "message" {
			c.writeError("unsupported message type")
			continue
		}
		if incoming.ConversationID <= 0 {
			c.writeError("invalid conversation id")
			continue
		}

		delivery, err := service.SendMessage(context.Background(), c.userID, incoming.ConversationID, incoming.Content)
		if err != nil {
			c.writeError("failed to send message")
			continue
		}
		c.hub.Push(delivery)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeError(message string) {
	payload, err := json.Marshal(Envelope{
		Type:      "error",
		Content:   message,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
