// Package feed consumes a live game feed over WebSocket: schedule
// updates, final scores, and line moves arrive as typed envelopes and
// are dispatched to caller handlers. The connection reconnects with
// exponential backoff until the context is cancelled.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unspoken95159/predict/pkg/metrics"
	"github.com/unspoken95159/predict/pkg/nfl"
)

// Message types carried in the envelope.
const (
	TypeGame  = "game"
	TypeScore = "score"
	TypeLine  = "line"
)

// envelope is the wire frame: a type tag and a raw payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ScoreUpdate is a final-score message for an already known game.
type ScoreUpdate struct {
	GameID    string `json:"gameId"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
}

// LineUpdate is a line move for a known game. Spread is the expected
// home margin, positive = home favored.
type LineUpdate struct {
	GameID string  `json:"gameId"`
	Spread float64 `json:"spread"`
	Total  float64 `json:"total"`
	Books  int     `json:"books"`
}

// Handlers contains callbacks for feed events. Nil handlers drop their
// message type. Handlers run on the read goroutine; slow handlers stall
// the feed.
type Handlers struct {
	OnGame  func(g nfl.Game)
	OnScore func(s ScoreUpdate)
	OnLine  func(l LineUpdate)
	OnError func(err error)
}

// Config holds feed client configuration.
type Config struct {
	// URL is the WebSocket feed URL.
	URL string

	// Reconnect backoff bounds.
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration

	// Heartbeat settings.
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectMinDelay: 1 * time.Second,
		ReconnectMaxDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client is a reconnecting feed consumer.
type Client struct {
	config   Config
	handlers Handlers
	met      *metrics.Pipeline
}

// NewClient creates a feed client. met may be nil.
func NewClient(config Config, handlers Handlers, met *metrics.Pipeline) *Client {
	return &Client{config: config, handlers: handlers, met: met}
}

// Run connects and consumes the feed until ctx is cancelled. Dial and
// read failures trigger reconnection with exponential backoff; the only
// non-nil return is ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			c.reportError(err)
		} else {
			// Clean close: the backoff starts over.
			attempts = 0
		}

		attempts++
		delay := c.config.ReconnectMinDelay * time.Duration(1<<uint(attempts-1))
		if delay > c.config.ReconnectMaxDelay || delay <= 0 {
			delay = c.config.ReconnectMaxDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// consume dials once and reads until the connection drops.
func (c *Client) consume(ctx context.Context) error {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.config.URL, err)
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go c.pingLoop(conn, done)

	for {
		if c.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	if c.config.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.reportError(fmt.Errorf("decode envelope: %w", err))
		return
	}
	c.met.RecordFeedMessage(env.Type)

	switch env.Type {
	case TypeGame:
		var g nfl.Game
		if err := json.Unmarshal(env.Payload, &g); err != nil {
			c.reportError(fmt.Errorf("decode game: %w", err))
			return
		}
		if c.handlers.OnGame != nil {
			c.handlers.OnGame(g)
		}
	case TypeScore:
		var s ScoreUpdate
		if err := json.Unmarshal(env.Payload, &s); err != nil {
			c.reportError(fmt.Errorf("decode score: %w", err))
			return
		}
		if c.handlers.OnScore != nil {
			c.handlers.OnScore(s)
		}
	case TypeLine:
		var l LineUpdate
		if err := json.Unmarshal(env.Payload, &l); err != nil {
			c.reportError(fmt.Errorf("decode line: %w", err))
			return
		}
		if c.handlers.OnLine != nil {
			c.handlers.OnLine(l)
		}
	default:
		// Unknown types are ignored so the feed can evolve.
	}
}

func (c *Client) reportError(err error) {
	if c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}
