package feed

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
)

func dialTestFeed(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Wait for the server side to register the client
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, b.ClientCount())

	return conn
}

func TestBroadcasterTrade(t *testing.T) {
	b := NewBroadcaster(log.New(io.Discard, "", 0))
	conn := dialTestFeed(t, b)

	trade := &domain.LiquidationTrade{
		TradeID:   "trade-001",
		PairID:    "pair-001",
		Account:   "alice",
		Kind:      domain.TradeKindExactIn,
		Period:    1,
		Timestamp: 1700000500,
		AmountIn:  "10.000000000000000000",
		AmountOut: "9.500000000000000000",
	}
	b.BroadcastTrade(trade)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, EventTrade, event.Type)
	require.NotNil(t, event.Trade)
	assert.Equal(t, "trade-001", event.Trade.TradeID)
	assert.Nil(t, event.Sample)
}

func TestBroadcasterSample(t *testing.T) {
	b := NewBroadcaster(log.New(io.Discard, "", 0))
	conn := dialTestFeed(t, b)

	b.BroadcastSample(&domain.RatePoint{
		PairID:      "pair-001",
		TimestampMs: 1700000500000,
		Period:      1,
		Phase:       2,
		Rate:        1.0,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, EventSample, event.Type)
	require.NotNil(t, event.Sample)
	assert.Equal(t, "pair-001", event.Sample.PairID)
}

func TestBroadcasterClientDisconnect(t *testing.T) {
	b := NewBroadcaster(log.New(io.Discard, "", 0))
	conn := dialTestFeed(t, b)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, b.ClientCount())

	// Broadcasting with no clients is a no-op
	b.BroadcastSample(&domain.RatePoint{PairID: "pair-001"})
}
