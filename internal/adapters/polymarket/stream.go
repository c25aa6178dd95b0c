package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/logger"
)

// PriceUpdate is one live YES price observation for a streamed asset.
type PriceUpdate struct {
	At       time.Time
	AssetID  string
	YesPrice float64
}

// marketEvent covers the CLOB market channel event shapes we care about.
type marketEvent struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Price     string       `json:"price"`
	Bids      []priceLevel `json:"bids"`
	Asks      []priceLevel `json:"asks"`
	Changes   []bookChange `json:"changes"`
}

type priceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookChange struct {
	Price string `json:"price"`
	Side  string `json:"side"`
	Size  string `json:"size"`
}

// bookTop tracks the best bid and ask for one asset. A zero side means
// the level was removed and we are waiting for the next book snapshot.
type bookTop struct {
	bestBid float64
	bestAsk float64
}

// PriceStream maintains a websocket subscription to the CLOB market channel
// and emits YES price updates for subscribed assets.
type PriceStream struct {
	conn           *websocket.Conn
	url            string
	assets         map[string]struct{}
	books          map[string]*bookTop
	updates        chan PriceUpdate
	mu             sync.Mutex
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewPriceStream creates a stream over the CLOB market channel. No
// connection is made until the first Subscribe with a non-empty set.
func NewPriceStream(cfg *config.PolymarketConfig) *PriceStream {
	ctx, cancel := context.WithCancel(context.Background())

	return &PriceStream{
		url:            cfg.StreamURL,
		assets:         make(map[string]struct{}),
		books:          make(map[string]*bookTop),
		updates:        make(chan PriceUpdate, 256),
		reconnectDelay: 5 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Subscribe adds assets to the stream. The market channel fixes its
// subscription at connect time, so an established connection is closed to
// force a re-dial with the full set; the first call dials fresh.
func (s *PriceStream) Subscribe(assetIDs []string) {
	s.mu.Lock()
	added := false
	for _, id := range assetIDs {
		if id == "" {
			continue
		}
		if _, ok := s.assets[id]; !ok {
			s.assets[id] = struct{}{}
			added = true
		}
	}
	conn := s.conn
	s.mu.Unlock()

	if !added || s.ctx.Err() != nil {
		return
	}

	if conn != nil {
		conn.Close()
		return
	}
	if err := s.Connect(); err != nil {
		logger.Error("Failed to connect price stream", zap.Error(err))
	}
}

// Connect establishes the websocket connection and subscribes to the
// current asset set.
func (s *PriceStream) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}
	if len(s.assets) == 0 {
		return fmt.Errorf("no assets to subscribe")
	}

	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to market stream: %w", err)
	}
	s.conn = conn

	if err := s.subscribeLocked(); err != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go s.readMessages(conn)
	go s.pingLoop(conn)

	logger.Info("Polymarket price stream connected",
		zap.String("url", s.url),
		zap.Int("assets", len(s.assets)))

	return nil
}

// subscribeLocked sends the subscription message. Caller holds the mutex.
func (s *PriceStream) subscribeLocked() error {
	ids := make([]string, 0, len(s.assets))
	for id := range s.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sub := map[string]interface{}{
		"type":       "market",
		"assets_ids": ids,
	}
	return s.conn.WriteJSON(sub)
}

// readMessages reads events until the connection drops, then reconnects
// unless the stream was closed.
func (s *PriceStream) readMessages(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()

		if s.ctx.Err() == nil {
			logger.Info("Reconnecting Polymarket price stream...")
			time.Sleep(s.reconnectDelay)
			if err := s.Connect(); err != nil {
				logger.Error("Failed to reconnect price stream", zap.Error(err))
			}
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				logger.Warn("Price stream read error", zap.Error(err))
			}
			return
		}
		s.handleMessage(message)
	}
}

// handleMessage parses one frame. The server batches events into arrays
// and answers pings with a bare PONG.
func (s *PriceStream) handleMessage(message []byte) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 || string(trimmed) == "PONG" {
		return
	}

	if trimmed[0] == '[' {
		var events []json.RawMessage
		if err := json.Unmarshal(trimmed, &events); err != nil {
			logger.Warn("Failed to parse stream batch", zap.Error(err))
			return
		}
		for _, event := range events {
			s.handleEvent(event)
		}
		return
	}

	s.handleEvent(trimmed)
}

func (s *PriceStream) handleEvent(raw []byte) {
	var event marketEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		logger.Warn("Failed to parse stream event", zap.Error(err))
		return
	}

	switch event.EventType {
	case "book":
		s.handleBook(event)
	case "price_change":
		s.handlePriceChange(event)
	case "last_trade_price":
		if price, err := strconv.ParseFloat(event.Price, 64); err == nil {
			s.emit(event.AssetID, price)
		}
	}
}

// handleBook replaces the tracked top of book from a full snapshot.
func (s *PriceStream) handleBook(event marketEvent) {
	top := &bookTop{}
	for _, level := range event.Bids {
		price, size := parseLevel(level)
		if size > 0 && price > top.bestBid {
			top.bestBid = price
		}
	}
	for _, level := range event.Asks {
		price, size := parseLevel(level)
		if size > 0 && (top.bestAsk == 0 || price < top.bestAsk) {
			top.bestAsk = price
		}
	}

	s.mu.Lock()
	s.books[event.AssetID] = top
	mid := top.midpoint()
	s.mu.Unlock()

	if mid > 0 {
		s.emit(event.AssetID, mid)
	}
}

// handlePriceChange applies level deltas to the tracked top of book. A
// removal at the best level leaves that side unknown until the next
// snapshot rather than guessing the depth behind it.
func (s *PriceStream) handlePriceChange(event marketEvent) {
	s.mu.Lock()
	top, ok := s.books[event.AssetID]
	if !ok {
		top = &bookTop{}
		s.books[event.AssetID] = top
	}

	for _, change := range event.Changes {
		price, err := strconv.ParseFloat(change.Price, 64)
		if err != nil {
			continue
		}
		size, _ := strconv.ParseFloat(change.Size, 64)

		switch change.Side {
		case "BUY":
			if size > 0 && price > top.bestBid {
				top.bestBid = price
			} else if size == 0 && price == top.bestBid {
				top.bestBid = 0
			}
		case "SELL":
			if size > 0 && (top.bestAsk == 0 || price < top.bestAsk) {
				top.bestAsk = price
			} else if size == 0 && price == top.bestAsk {
				top.bestAsk = 0
			}
		}
	}
	mid := top.midpoint()
	s.mu.Unlock()

	if mid > 0 {
		s.emit(event.AssetID, mid)
	}
}

func (t *bookTop) midpoint() float64 {
	if t.bestBid <= 0 || t.bestAsk <= 0 {
		return 0
	}
	return (t.bestBid + t.bestAsk) / 2
}

func parseLevel(level priceLevel) (price, size float64) {
	price, _ = strconv.ParseFloat(level.Price, 64)
	size, _ = strconv.ParseFloat(level.Size, 64)
	return price, size
}

// emit delivers an update, dropping it if the consumer is behind.
func (s *PriceStream) emit(assetID string, price float64) {
	if assetID == "" || price <= 0 || price >= 1 {
		return
	}

	update := PriceUpdate{AssetID: assetID, YesPrice: price, At: time.Now().UTC()}
	select {
	case s.updates <- update:
	default:
		logger.Warn("Price update channel full, dropping update")
	}
}

// pingLoop keeps the connection alive. The server drops silent clients,
// so send a PING every 10 seconds.
func (s *PriceStream) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte("PING"))
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Updates returns the channel of live price updates.
func (s *PriceStream) Updates() <-chan PriceUpdate {
	return s.updates
}

// Close stops the stream and closes the connection.
func (s *PriceStream) Close() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
