package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// StreamSinkName is the pipeline sink name of the WebSocket stream.
const StreamSinkName = "stream"

// streamReadLimit bounds client frames. Clients only send control frames.
const streamReadLimit = 512

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamMessage is one delivered batch as sent to stream clients.
type StreamMessage struct {
	Type      string `json:"type"`
	Precision string `json:"precision"`
	Lines     int    `json:"lines"`
	Payload   string `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// Stream fans delivered batches out to WebSocket clients on
// GET /api/v1/stream.
//
// It is registered with the pipeline as a sink, so clients see the same
// rendered payloads as the real sinks. Send never fails: a client whose
// buffer is full misses the batch.
//
// Thread Safety: All methods are safe for concurrent use.
type Stream struct {
	cfg    config.StreamConfig
	logger *logging.Logger

	// mu guards clients and closed. Channel sends happen under the read
	// lock so they never race with close(send) under the write lock.
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	closed  bool

	dropped atomic.Int64
	now     func() time.Time
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewStream creates a stream with no clients.
func NewStream(cfg config.StreamConfig, logger *logging.Logger) *Stream {
	return &Stream{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
		now:     time.Now,
	}
}

// Name identifies the stream in pipeline logs.
func (s *Stream) Name() string {
	return StreamSinkName
}

// Precision keeps every timestamp at its own resolution.
func (s *Stream) Precision(batch *lineprotocol.Batch) lineprotocol.Precision {
	if p := batch.Precision(); p.IsResolved() {
		return p
	}
	return lineprotocol.DefaultPrecision
}

// Send broadcasts payload to every connected client.
func (s *Stream) Send(_ context.Context, payload []byte, precision lineprotocol.Precision) error {
	if len(payload) == 0 {
		return nil
	}

	msg, err := json.Marshal(StreamMessage{
		Type:      "batch",
		Precision: precision.String(),
		Lines:     bytes.Count(payload, []byte{'\n'}) + 1,
		Payload:   string(payload),
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (s *Stream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dropped returns how many client deliveries were skipped because the
// client's buffer was full.
func (s *Stream) Dropped() int64 {
	return s.dropped.Load()
}

// Close disconnects every client. Later connections are refused.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	return nil
}

func (s *Stream) register(c *streamClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

// unregister closes the client's send channel if it is still registered.
func (s *Stream) unregister(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Stream) pingInterval() time.Duration {
	return time.Duration(s.cfg.PingInterval) * time.Second
}

func (s *Stream) pongWait() time.Duration {
	return time.Duration(s.cfg.PongTimeout) * time.Second
}

// handleStream upgrades the request and tails delivered batches to it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Debug("stream upgrade failed", "error", err, "request_id", requestID(r.Context()))
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, s.stream.cfg.BufferSize)}
	if !s.stream.register(c) {
		//nolint:errcheck // best effort before closing
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	s.logger.Debug("stream client connected", "clients", s.stream.ClientCount(), "remote", r.RemoteAddr)

	go s.stream.writePump(c)
	go s.stream.readPump(c)
}

// readPump discards client frames and keeps the read deadline moving while
// pongs arrive. It unregisters the client when the connection ends.
func (s *Stream) readPump(c *streamClient) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
	}()

	deadline := func() time.Time { return time.Now().Add(s.pingInterval() + s.pongWait()) }

	c.conn.SetReadLimit(streamReadLimit)
	_ = c.conn.SetReadDeadline(deadline()) //nolint:errcheck // checked on next read
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(deadline())
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("stream client read error", "error", err)
			}
			return
		}
	}
}

// writePump sends queued batches and periodic pings until the send
// channel is closed or a write fails.
func (s *Stream) writePump(c *streamClient) {
	ticker := time.NewTicker(s.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.pongWait())) //nolint:errcheck // write reports it
			if !ok {
				//nolint:errcheck // connection is closing anyway
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.pongWait())) //nolint:errcheck // write reports it
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
