// Package relay exchanges stroke segments between peers over websockets: a Client per
// canvas and a Hub that fans segments out to every other connected peer.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"DoodleBoard/internal/state"
)

const (
	DefaultSendBuffer = 256
	writeWait         = 10 * time.Second
	maxMessageSize    = 64 << 10
)

// ErrClosed is returned by Dial on a client that was already closed.
var ErrClosed = errors.New("relay client closed")

// Applier paints segments received from peers.
type Applier interface {
	ApplyRemote(seg state.StrokeSegment) error
}

// Client is one peer's connection to a hub. Emit never blocks; once the connection is
// lost every later segment is dropped and nothing is reconnected.
type Client struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool

	sendCh   chan []byte
	done     chan struct{} // closed by Close
	lost     chan struct{} // closed when the connection fails
	lostOnce sync.Once

	applier Applier
	log     zerolog.Logger
}

// NewClient creates an unconnected client delivering inbound segments to applier.
func NewClient(applier Applier, sendBuffer int, log zerolog.Logger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Client{
		sendCh:  make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		lost:    make(chan struct{}),
		applier: applier,
		log:     log.With().Str("component", "relay").Logger(),
	}
}

// Dial connects to the hub at rawURL and starts the read and write loops.
func (c *Client) Dial(ctx context.Context, rawURL string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return fmt.Errorf("relay dial %s: %w", rawURL, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info().Str("url", rawURL).Msg("connected to relay")
	go c.writeLoop(conn)
	go c.readLoop(conn)
	return nil
}

// Emit serializes seg and queues it for sending. It drops the segment when the queue is
// full or the connection is gone.
func (c *Client) Emit(seg state.StrokeSegment) {
	select {
	case <-c.lost:
		return
	case <-c.done:
		return
	default:
	}
	data, err := json.Marshal(seg)
	if err != nil {
		c.log.Warn().Err(err).Msg("segment not encodable")
		return
	}
	select {
	case c.sendCh <- data:
	default:
		c.log.Warn().Msg("send queue full, dropping segment")
	}
}

// Lost is closed once the connection has failed.
func (c *Client) Lost() <-chan struct{} { return c.lost }

func (c *Client) markLost(err error) {
	c.lostOnce.Do(func() {
		select {
		case <-c.done:
		default:
			c.log.Warn().Err(err).Msg("relay connection lost")
		}
		close(c.lost)
	})
}

func (c *Client) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case <-c.lost:
			return
		case data := <-c.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.markLost(err)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.markLost(err)
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *ws.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.markLost(err)
			return
		}

		var seg state.StrokeSegment
		if err := json.Unmarshal(msg, &seg); err != nil {
			c.log.Debug().Err(err).Msg("malformed segment dropped")
			continue
		}
		if err := c.applier.ApplyRemote(seg); err != nil {
			c.log.Debug().Err(err).Str("sender", seg.Sender).Msg("segment not applied")
		}
	}
}

// Close sends a close frame and stops both loops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return conn.Close()
}
