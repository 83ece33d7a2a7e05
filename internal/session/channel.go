package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Channel is the client end of the per-room realtime channel. It owns the
// WebSocket connection; everything above it talks in wire messages.
type Channel struct {
	conn       *websocket.Conn
	outgoing   chan any
	writerDone chan struct{}

	mu      sync.Mutex
	closed  bool
	started bool

	onMessage func([]byte)
}

func NewChannel() *Channel {
	return &Channel{
		outgoing:   make(chan any, 32),
		writerDone: make(chan struct{}),
	}
}

// SetHandler registers the raw-message callback; must be set before Connect.
func (c *Channel) SetHandler(fn func([]byte)) { c.onMessage = fn }

// Connect dials the room endpoint and starts the pumps.
func (c *Channel) Connect(ctx context.Context, serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/ws/rooms"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect room channel: %w", err)
	}
	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	return nil
}

// Send queues one message; fails when the buffer is full rather than block
// the event loop.
func (c *Channel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	select {
	case c.outgoing <- v:
		return nil
	default:
		return errors.New("channel send buffer full")
	}
}

// Close stops accepting new messages, flushes whatever is already queued
// and only then tears the connection down. Frames enqueued just before
// shutdown, such as the end-of-meeting broadcast, still reach the wire.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	// Send holds the mutex while enqueuing, so nobody can write to the
	// channel once closed is set.
	close(c.outgoing)
	c.mu.Unlock()

	if started {
		select {
		case <-c.writerDone:
		case <-time.After(writeWait):
		}
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Channel) readPump() {
	defer c.Close()
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "session.channel").Msg("channel read closed")
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writerDone)
	}()
	for {
		select {
		case v, ok := <-c.outgoing:
			if !ok {
				// Queue drained; Close owns the connection teardown.
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				log.Debug().Err(err).Str("module", "session.channel").Msg("channel write failed")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// The channel doubles as the session's publisher, ender, and signaller.

func (c *Channel) SendJoin(code domain.RoomCode, user *domain.User) error {
	return c.Send(wire.Join{Type: wire.TypeJoin, Room: string(code), Name: user.Name, Email: user.Email})
}

func (c *Channel) SendAnnounce(name string) error {
	return c.Send(wire.Announce{Type: wire.TypeAnnounce, Name: name})
}

func (c *Channel) PublishEntry(content string, kind domain.EntryKind) error {
	return c.Send(wire.Transcript{Type: wire.TypeTranscript, Content: content, Kind: string(kind)})
}

func (c *Channel) SendEnd(withSummary bool) error {
	return c.Send(wire.End{Type: wire.TypeEnd, WithSummary: withSummary})
}

func (c *Channel) SendLeave() error {
	return c.Send(wire.Envelope{Type: wire.TypeLeave})
}

func (c *Channel) SendSignal(sig wire.Signal) error {
	sig.Type = wire.TypeSignal
	return c.Send(sig)
}
