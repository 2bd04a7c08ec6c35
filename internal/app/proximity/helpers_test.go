package proximity

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"nearby/internal/configs"
	"nearby/internal/pkg/metrics"
)

// fakeConn records every frame sent to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// reset forgets recorded frames.
func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// types returns the type tag of every recorded frame in order.
func (f *fakeConn) types(t *testing.T) []MessageType {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]MessageType, 0, len(f.frames))
	for _, frame := range f.frames {
		var head struct {
			Type MessageType `json:"type"`
		}
		require.NoError(t, json.Unmarshal(frame, &head))
		out = append(out, head.Type)
	}
	return out
}

// decodeAll decodes every frame of the given type into a new T.
func decodeAll[T any](t *testing.T, f *fakeConn, typ MessageType) []T {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []T
	for _, frame := range f.frames {
		var head struct {
			Type MessageType `json:"type"`
		}
		require.NoError(t, json.Unmarshal(frame, &head))
		if head.Type != typ {
			continue
		}
		var msg T
		require.NoError(t, json.Unmarshal(frame, &msg))
		out = append(out, msg)
	}
	return out
}

// lastNearby returns the most recent nearby_users message sent to f.
func lastNearby(t *testing.T, f *fakeConn) NearbyUsersMessage {
	t.Helper()

	all := decodeAll[NearbyUsersMessage](t, f, TypeNearbyUsers)
	require.NotEmpty(t, all, "no nearby_users sent to %s", f.id)
	return all[len(all)-1]
}

func nearbyIDs(msg NearbyUsersMessage) []string {
	ids := make([]string, 0, len(msg.NearbyUsers))
	for _, u := range msg.NearbyUsers {
		ids = append(ids, u.UserID)
	}
	return ids
}

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:      "test",
		ServerID:         "test-node",
		RadiusKm:         0.1,
		ClickSuppression: configs.SuppressSession,
		SendBuffer:       16,
	}
}

// newTestHub returns a hub whose event loop is not running; tests drive it through handle.
func newTestHub(cfg *configs.AppConfig) *Hub {
	return newHub(cfg, metrics.NewHub(prometheus.NewRegistry()))
}

func (h *Hub) connect(c Conn) {
	h.handle(event{kind: eventConnect, conn: c})
}

func (h *Hub) frame(c Conn, format string, args ...any) {
	h.handle(event{kind: eventFrame, conn: c, data: []byte(fmt.Sprintf(format, args...))})
}

func (h *Hub) drop(c Conn) {
	h.handle(event{kind: eventDisconnect, conn: c})
}

func (h *Hub) locate(c Conn, userID string, lat, lng float64) {
	h.frame(c, `{"type":"location_update","userId":%q,"lat":%v,"lng":%v}`, userID, lat, lng)
}
