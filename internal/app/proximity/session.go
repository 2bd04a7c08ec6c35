package proximity

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"nearby/internal/pkg/logx"
	"nearby/internal/pkg/randx"
)

const (
	// timeout for writing one frame to the peer.
	writeWait = 10 * time.Second

	// time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// ping period, shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maximum inbound frame size in bytes.
	maxMessageSize = 4096
)

// Session adapts a websocket connection to Conn. Outbound frames go through a bounded
// queue drained by WritePump; a full queue drops the frame.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// mu guards closed and the close of send.
	mu     sync.Mutex
	closed bool
	send   chan []byte

	logger zerolog.Logger
}

// NewSession wraps conn. sendBuffer bounds the outbound queue.
func NewSession(hub *Hub, conn *websocket.Conn, sendBuffer int) *Session {
	id := randx.ConnID()

	return &Session{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID implements Conn.
func (s *Session) ID() string {
	return s.id
}

// Send implements Conn. It never blocks.
func (s *Session) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		s.logger.Debug().Int("queue_len", len(s.send)).Msg("Session send queue full, dropping frame.")
		return false
	}
}

// Close stops accepting frames and lets WritePump send a close frame and exit.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Serve registers the session with the hub and runs both pumps until the peer goes away.
// It blocks until the read side ends.
func (s *Session) Serve() {
	if !s.hub.Connect(s) {
		s.logger.Warn().Msg("Hub is stopped, rejecting connection.")
		s.conn.Close()
		return
	}

	go s.WritePump()

	s.ReadPump()
}

// ReadPump forwards inbound frames to the hub in arrival order.
func (s *Session) ReadPump() {
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Unexpected close while reading")
			}
			return
		}

		if msgType != websocket.TextMessage {
			s.logger.Debug().Int("message_type", msgType).Msg("Ignoring non-text frame")
			continue
		}

		if !s.hub.Receive(s, data) {
			return
		}
	}
}

// cleanupOnDisconnect retires the session from the hub and releases the connection.
func (s *Session) cleanupOnDisconnect() {
	s.hub.Disconnect(s)
	s.Close()

	if err := s.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug().Err(err).Msg("Connection close error")
	}

	s.logger.Debug().Msg("Session ended.")
}

// WritePump writes queued frames and periodic pings until the queue is closed or a write fails.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueued(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueued writes one frame, or a close frame when the queue is closed.
// It reports whether the pump should continue.
func (s *Session) writeQueued(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
