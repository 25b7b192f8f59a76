// Package stream pushes ledger activity to WebSocket subscribers: recorded
// bets, settlements, bankroll moves and refreshed odds menus.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// EventType classifies a streaming event.
type EventType string

const (
	EventTypeBet        EventType = "bet"
	EventTypeSettlement EventType = "settlement"
	EventTypeBankroll   EventType = "bankroll"
	EventTypeOdds       EventType = "odds"
	EventTypeStatus     EventType = "status"
	EventTypeError      EventType = "error"
	EventTypeHeartbeat  EventType = "heartbeat"
)

var allEventTypes = []EventType{
	EventTypeBet,
	EventTypeSettlement,
	EventTypeBankroll,
	EventTypeOdds,
	EventTypeStatus,
	EventTypeError,
	EventTypeHeartbeat,
}

// Event is one message pushed to subscribers.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BetEvent describes a recorded or replaced wager.
type BetEvent struct {
	FixtureID string          `json:"fixture_id"`
	Selection string          `json:"selection"`
	Bookmaker string          `json:"bookmaker,omitempty"`
	Odd       decimal.Decimal `json:"odd"`
	Stake     decimal.Decimal `json:"stake"`
}

// SettlementEvent describes a graded wager.
type SettlementEvent struct {
	FixtureID string          `json:"fixture_id"`
	Selection string          `json:"selection"`
	Outcome   string          `json:"outcome"`
	Score     string          `json:"score"`
	Payout    decimal.Decimal `json:"payout"`
}

// OddsEvent carries a refreshed fair-odds menu for one fixture.
type OddsEvent struct {
	FixtureID string             `json:"fixture_id"`
	Source    string             `json:"source"`
	Score     string             `json:"score,omitempty"`
	Markets   map[string]float64 `json:"markets"`
}

// Hub fans events out to connected WebSocket clients. Clients subscribe to
// every event type on connect and can narrow the set with
// subscribe/unsubscribe messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast  chan Event
	register   chan *client
	unregister chan *client

	upgrader websocket.Upgrader
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subMu         sync.RWMutex
	subscriptions map[EventType]bool
}

// NewHub creates a hub; call Run before serving connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run drives the hub's event loop until the context is done.
func (h *Hub) Run(done <-chan struct{}) {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[STREAM] client connected (%d total)", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			log.Printf("[STREAM] client disconnected (%d remaining)", remaining)

		case ev := <-h.broadcast:
			h.fanOut(ev)

		case <-heartbeat.C:
			h.Broadcast(Event{
				Type: EventTypeHeartbeat,
				Data: map[string]interface{}{"clients": h.ClientCount()},
			})
		}
	}
}

func (h *Hub) fanOut(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[STREAM] marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.subscribed(ev.Type) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer, drop it.
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Broadcast queues an event for delivery, stamping id and timestamp when
// missing. A full queue drops the event rather than blocking the caller.
func (h *Hub) Broadcast(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("[STREAM] queue full, dropping %s event", ev.Type)
	}
}

// BroadcastBet announces a recorded wager.
func (h *Hub) BroadcastBet(ev BetEvent) {
	h.Broadcast(Event{Type: EventTypeBet, Data: ev})
}

// BroadcastSettlement announces a graded wager.
func (h *Hub) BroadcastSettlement(ev SettlementEvent) {
	h.Broadcast(Event{Type: EventTypeSettlement, Data: ev})
}

// BroadcastBankroll announces the current bankroll balance.
func (h *Hub) BroadcastBankroll(balance decimal.Decimal) {
	h.Broadcast(Event{
		Type: EventTypeBankroll,
		Data: map[string]interface{}{"balance": balance},
	})
}

// BroadcastOdds announces a refreshed odds menu.
func (h *Hub) BroadcastOdds(ev OddsEvent) {
	h.Broadcast(Event{Type: EventTypeOdds, Data: ev})
}

// BroadcastStatus announces a fixture status change.
func (h *Hub) BroadcastStatus(fixtureID, status string) {
	h.Broadcast(Event{
		Type: EventTypeStatus,
		Data: map[string]interface{}{"fixture_id": fixtureID, "status": status},
	})
}

// BroadcastError announces a background failure.
func (h *Hub) BroadcastError(err error, context string) {
	h.Broadcast(Event{
		Type: EventTypeError,
		Data: map[string]interface{}{"error": err.Error(), "context": context},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request to a streaming connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[STREAM] upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[EventType]bool, len(allEventTypes)),
	}
	for _, t := range allEventTypes {
		c.subscriptions[t] = true
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) subscribed(t EventType) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subscriptions[t]
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[STREAM] read error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *client) handleMessage(message []byte) {
	var msg struct {
		Type   string   `json:"type"`
		Events []string `json:"events"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subMu.Lock()
		for _, ev := range msg.Events {
			c.subscriptions[EventType(ev)] = true
		}
		c.subMu.Unlock()

	case "unsubscribe":
		c.subMu.Lock()
		for _, ev := range msg.Events {
			delete(c.subscriptions, EventType(ev))
		}
		c.subMu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
