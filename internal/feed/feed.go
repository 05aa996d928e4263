// Package feed broadcasts auction events to WebSocket subscribers.
package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/observability"
)

// Event message types
const (
	EventTrade  = "trade"
	EventSample = "sample"
)

// Slow clients that cannot take a message within writeWait are dropped.
const writeWait = 5 * time.Second

// Event is the envelope sent to subscribers.
type Event struct {
	Type   string                   `json:"type"`
	Trade  *domain.LiquidationTrade `json:"trade,omitempty"`
	Sample *domain.RatePoint        `json:"sample,omitempty"`
}

// Broadcaster fans auction events out to connected WebSocket clients.
type Broadcaster struct {
	clients  map[*websocket.Conn]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewBroadcaster creates a Broadcaster with no connected clients.
func NewBroadcaster(logger *log.Logger) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

// BroadcastTrade sends an executed trade to all subscribers.
func (b *Broadcaster) BroadcastTrade(trade *domain.LiquidationTrade) {
	b.broadcast(&Event{Type: EventTrade, Trade: trade})
}

// BroadcastSample sends a rate sample to all subscribers.
func (b *Broadcaster) BroadcastSample(sample *domain.RatePoint) {
	b.broadcast(&Event{Type: EventSample, Sample: sample})
}

func (b *Broadcaster) broadcast(event *Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		b.logger.Printf("[feed] failed to marshal event: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.logger.Printf("[feed] write error, dropping client: %v", err)
			observability.DefaultMetrics.FeedSendErrors.Inc()
			c.Close()
			delete(b.clients, c)
			observability.DefaultMetrics.FeedClientsConnected.Dec()
			continue
		}
		observability.DefaultMetrics.FeedMessagesSent.Inc()
	}
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects all subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		c.Close()
		delete(b.clients, c)
		observability.DefaultMetrics.FeedClientsConnected.Dec()
	}
}

// Handler returns an http.HandlerFunc that accepts WebSocket connections.
func (b *Broadcaster) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.Printf("[feed] upgrade error: %v", err)
			return
		}

		b.mu.Lock()
		b.clients[conn] = struct{}{}
		b.mu.Unlock()
		observability.DefaultMetrics.FeedClientsConnected.Inc()

		// Subscribers never send payloads; the read loop only detects closes.
		go func() {
			defer func() {
				b.mu.Lock()
				if _, ok := b.clients[conn]; ok {
					delete(b.clients, conn)
					observability.DefaultMetrics.FeedClientsConnected.Dec()
				}
				b.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
