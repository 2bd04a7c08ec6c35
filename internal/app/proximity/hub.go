package proximity

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nearby/internal/app/user"
	"nearby/internal/configs"
	"nearby/internal/pkg/logx"
	"nearby/internal/pkg/metrics"
)

const eventQueueSize = 1024

type eventKind int

const (
	eventConnect eventKind = iota
	eventFrame
	eventDisconnect
)

type event struct {
	kind eventKind
	conn Conn
	data []byte
}

// Stats is a point-in-time view of the hub's state.
type Stats struct {
	Connections        int     `json:"connections"`
	Registered         int     `json:"registered"`
	HomeWatchers       int     `json:"homeWatchers"`
	NearbyParticipants int     `json:"nearbyParticipants"`
	RadiusKm           float64 `json:"radiusKm"`
	Server             string  `json:"server"`
}

// Hub coordinates every connection. Connect, Receive and Disconnect enqueue events
// on one ordered queue that a single goroutine drains, so all registry and group
// mutations are serialized and each connection's frames are handled in arrival order.
type Hub struct {
	config *configs.AppConfig

	registry *Registry
	groups   *Groups
	engine   *Engine
	notifier *Notifier

	// conns is owned by the run goroutine; connCount mirrors its size for Stats.
	conns     map[Conn]struct{}
	connCount atomic.Int64

	events   chan event
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	metrics *metrics.Hub
	logger  zerolog.Logger
}

// NewHub constructs a Hub and starts its event loop. Call Shutdown to stop it.
func NewHub(cfg *configs.AppConfig, m *metrics.Hub) *Hub {
	h := newHub(cfg, m)

	go h.run()

	return h
}

func newHub(cfg *configs.AppConfig, m *metrics.Hub) *Hub {
	h := &Hub{
		config:   cfg,
		registry: NewRegistry(),
		groups:   NewGroups(),
		conns:    make(map[Conn]struct{}),
		events:   make(chan event, eventQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		metrics:  m,
		logger: logx.Component("Hub").With().
			Str("server", cfg.ServerID).
			Logger(),
	}

	h.engine = NewEngine(h.registry, cfg.RadiusKm)
	h.notifier = NewNotifier(h.registry, h.send)

	return h
}

// Connect registers a newly accepted connection. No registry entry is created
// until its first location update.
func (h *Hub) Connect(c Conn) bool {
	return h.enqueue(event{kind: eventConnect, conn: c})
}

// Receive hands one inbound text frame from c to the hub.
func (h *Hub) Receive(c Conn, data []byte) bool {
	return h.enqueue(event{kind: eventFrame, conn: c, data: data})
}

// Disconnect retires c and its user record.
func (h *Hub) Disconnect(c Conn) bool {
	return h.enqueue(event{kind: eventDisconnect, conn: c})
}

// enqueue blocks until the event is queued or the hub stops.
func (h *Hub) enqueue(ev event) bool {
	select {
	case <-h.stop:
		return false
	default:
	}

	select {
	case h.events <- ev:
		return true
	case <-h.stop:
		return false
	}
}

// Shutdown stops the event loop, closes every transport that supports it, and waits.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down hub...")

	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done

	h.logger.Info().Msg("Hub shutdown complete.")
}

// Stats reports current connection and membership counts.
func (h *Hub) Stats() Stats {
	homeWatchers, participants := h.groups.Counts()

	return Stats{
		Connections:        int(h.connCount.Load()),
		Registered:         h.registry.Len(),
		HomeWatchers:       homeWatchers,
		NearbyParticipants: participants,
		RadiusKm:           h.engine.RadiusKm(),
		Server:             h.config.ServerID,
	}
}

func (h *Hub) run() {
	defer close(h.done)

	h.logger.Info().
		Float64("radius_km", h.config.RadiusKm).
		Str("click_suppression", h.config.ClickSuppression).
		Msg("Hub loop started.")

	for {
		select {
		case ev := <-h.events:
			h.handle(ev)

		case <-h.stop:
			for c := range h.conns {
				if cl, ok := c.(closer); ok {
					cl.Close()
				}
			}
			h.logger.Info().Int("open_connections", len(h.conns)).Msg("Hub loop stopped.")
			return
		}
	}
}

// handle processes one event to completion. A panic is contained to the event
// that caused it.
func (h *Hub) handle(ev event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Err(fmt.Errorf("%v", r)).
				Str("conn_id", ev.conn.ID()).
				Msg("Recovered from panic while handling event.")
		}
	}()

	switch ev.kind {
	case eventConnect:
		h.conns[ev.conn] = struct{}{}
		h.connCount.Store(int64(len(h.conns)))
		h.metrics.Connections.Set(float64(len(h.conns)))
		h.logger.Debug().Str("conn_id", ev.conn.ID()).Int("connections", len(h.conns)).Msg("Connection accepted.")

	case eventDisconnect:
		h.disconnect(ev.conn)

	case eventFrame:
		h.dispatch(ev.conn, ev.data)
	}
}

func (h *Hub) disconnect(c Conn) {
	delete(h.conns, c)
	h.connCount.Store(int64(len(h.conns)))
	h.metrics.Connections.Set(float64(len(h.conns)))

	h.groups.Remove(c)
	wasRegistered := h.registry.Remove(c)
	h.metrics.Registered.Set(float64(h.registry.Len()))

	h.logger.Debug().
		Str("conn_id", c.ID()).
		Bool("was_registered", wasRegistered).
		Int("connections", len(h.conns)).
		Msg("Connection closed.")

	if wasRegistered && h.config.BroadcastOnLeave {
		h.broadcastRound()
	}
}

func (h *Hub) dispatch(c Conn, data []byte) {
	in, customErr := DecodeInbound(data)
	if customErr != nil {
		h.metrics.Malformed(customErr.Code)
		h.logger.Warn().
			Str("conn_id", c.ID()).
			Int("code", customErr.Code).
			Int("frame_bytes", len(data)).
			Msg(customErr.Message)
		return
	}

	h.metrics.FramesTotal.WithLabelValues(string(in.Type)).Inc()

	switch in.Type {
	case TypeHomeReady:
		h.handleHomeReady(c)
	case TypeUserJoin:
		h.handleUserJoin(c, in.UserID)
	case TypeLocationUpdate:
		h.handleLocationUpdate(c, in)
	case TypeUserClick:
		h.handleClick(c, in.Click)
	}
}

func (h *Hub) handleHomeReady(c Conn) {
	h.groups.AddHomeWatcher(c)

	if h.groups.HasParticipants() {
		h.send(c, NearbyUserJoinedMessage{
			Type:    TypeNearbyUserJoined,
			Message: JoinedNoticeText,
		})
	}
}

// handleUserJoin announces the joiner anonymously to home watchers and by id to
// every connection other than the joiner, home watchers included.
func (h *Hub) handleUserJoin(c Conn, userID string) {
	h.groups.AddParticipant(c)

	anonymous := NearbyUserJoinedMessage{Type: TypeNearbyUserJoined, Message: JoinedNoticeText}
	for _, watcher := range h.groups.HomeWatchers() {
		h.send(watcher, anonymous)
	}

	named := NearbyUserJoinedMessage{Type: TypeNearbyUserJoined, UserID: userID}
	for other := range h.conns {
		if other == c {
			continue
		}
		h.send(other, named)
	}

	h.logger.Debug().Str("conn_id", c.ID()).Str("user_id", userID).Msg("User joined nearby.")
}

func (h *Hub) handleLocationUpdate(c Conn, in Inbound) {
	if h.config.ClickSuppression == configs.SuppressUntilMove {
		h.registry.ClearSuppressed(c)
	}

	if !h.registry.Upsert(c, in.Location) {
		return
	}
	h.metrics.Registered.Set(float64(h.registry.Len()))

	h.broadcastRound()
}

// broadcastRound sends every registered connection its own nearby list and the full roster.
func (h *Hub) broadcastRound() {
	start := time.Now()

	entries := h.registry.Entries()
	all := roster(entries)

	for _, e := range entries {
		h.send(e.Conn, NearbyUsersMessage{
			Type:        TypeNearbyUsers,
			NearbyUsers: h.engine.nearbyFrom(entries, e.Record, e.Suppressed),
			AllUsers:    all,
			Server:      h.config.ServerID,
		})
	}

	h.metrics.BroadcastRounds.Inc()
	h.metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
}

func (h *Hub) handleClick(c Conn, req ClickRequest) {
	sender, registered := h.registry.Find(c)

	fromName := req.FromUserName
	if fromName == "" {
		fromName = user.Record{ID: req.FromUserID, Name: sender.Name}.DisplayName()
	}

	if !h.notifier.Click(c, req, fromName) {
		h.metrics.ClicksTotal.WithLabelValues(metrics.ClickUnresolved).Inc()
		h.logger.Debug().
			Str("conn_id", c.ID()).
			Str("to_user_id", req.ToUserID).
			Msg("Click target not connected, dropping.")
		return
	}
	h.metrics.ClicksTotal.WithLabelValues(metrics.ClickDelivered).Inc()

	if !registered {
		return
	}

	exclude := map[string]struct{}{}
	if h.config.ClickSuppression != configs.SuppressOff {
		h.registry.Suppress(c, req.ToUserID)
		exclude[req.ToUserID] = struct{}{}
	}

	entries := h.registry.Entries()
	for _, e := range entries {
		if e.Conn == c {
			for id := range e.Suppressed {
				exclude[id] = struct{}{}
			}
		}
	}

	h.send(c, NearbyUsersMessage{
		Type:        TypeNearbyUsers,
		NearbyUsers: h.engine.nearbyFrom(entries, sender, exclude),
		AllUsers:    roster(entries),
		Server:      h.config.ServerID,
	})
}

// send encodes msg and queues it on c. Failures are counted and never propagated.
func (h *Hub) send(c Conn, msg any) bool {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("conn_id", c.ID()).Msg("Failed to encode outbound message.")
		return false
	}

	ok := c.Send(frame)
	h.metrics.Sent(ok)
	if !ok {
		h.logger.Debug().Str("conn_id", c.ID()).Msg("Outbound frame dropped.")
	}

	return ok
}
