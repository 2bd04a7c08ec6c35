package proximity

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby/internal/configs"
	"nearby/internal/pkg/metrics"
)

// threeUsers connects and locates the reference scenario: u1 and u2 about 14 m
// apart, u3 about 8 km away.
func threeUsers(h *Hub) (u1, u2, u3 *fakeConn) {
	u1, u2, u3 = newFakeConn("c1"), newFakeConn("c2"), newFakeConn("c3")
	for _, c := range []*fakeConn{u1, u2, u3} {
		h.connect(c)
	}

	h.locate(u1, "u1", 37.2496, 127.0289)
	h.locate(u2, "u2", 37.2497, 127.0290)
	h.locate(u3, "u3", 37.3000, 127.1000)

	return u1, u2, u3
}

func TestLocationUpdateScenario(t *testing.T) {
	h := newTestHub(testConfig())
	u1, u2, u3 := threeUsers(h)

	assert.Equal(t, []string{"u2"}, nearbyIDs(lastNearby(t, u1)))
	assert.Equal(t, []string{"u1"}, nearbyIDs(lastNearby(t, u2)))
	assert.Empty(t, nearbyIDs(lastNearby(t, u3)))

	for _, c := range []*fakeConn{u1, u2, u3} {
		msg := lastNearby(t, c)
		assert.Len(t, msg.AllUsers, 3)
		assert.Equal(t, "test-node", msg.Server)
	}
}

func TestBroadcastRoundReachesEveryRegisteredConnection(t *testing.T) {
	h := newTestHub(testConfig())
	u1, u2, u3 := threeUsers(h)
	idle := newFakeConn("idle")
	h.connect(idle)

	for _, c := range []*fakeConn{u1, u2, u3, idle} {
		c.reset()
	}

	h.locate(u2, "u2", 37.2497, 127.0291)

	for _, c := range []*fakeConn{u1, u2, u3} {
		msgs := decodeAll[NearbyUsersMessage](t, c, TypeNearbyUsers)
		require.Len(t, msgs, 1, c.id)
		assert.Len(t, msgs[0].AllUsers, h.registry.Len())
	}
	assert.Empty(t, idle.types(t), "connections without a position get no nearby list")
}

func TestMalformedFrameDoesNotMutate(t *testing.T) {
	h := newTestHub(testConfig())
	c := newFakeConn("c")
	h.connect(c)

	h.frame(c, `{"type":"location_update","userId":"u1"}`)
	h.frame(c, `not json at all`)
	h.frame(c, `{"type":"explode"}`)

	assert.Zero(t, h.registry.Len())
	assert.Empty(t, c.types(t), "no error frames are sent back")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MalformedTotal.WithLabelValues("2003")))

	h.locate(c, "u1", 1, 1)
	assert.Equal(t, 1, h.registry.Len(), "connection keeps working after bad input")
}

func TestDisconnectRemovesFromNextRound(t *testing.T) {
	h := newTestHub(testConfig())
	u1, u2, _ := threeUsers(h)

	h.drop(u2)
	u1.reset()
	u2.reset()

	h.locate(u1, "u1", 37.2496, 127.0289)

	msg := lastNearby(t, u1)
	assert.Empty(t, msg.NearbyUsers)
	assert.Len(t, msg.AllUsers, 2)
	assert.Empty(t, u2.types(t))

	h.drop(u2)
	assert.Equal(t, 2, h.registry.Len(), "repeated disconnect is harmless")
}

func TestDisconnectIsSilentByDefault(t *testing.T) {
	h := newTestHub(testConfig())
	u1, u2, _ := threeUsers(h)
	u1.reset()

	h.drop(u2)

	assert.Empty(t, u1.types(t))
}

func TestBroadcastOnLeave(t *testing.T) {
	cfg := testConfig()
	cfg.BroadcastOnLeave = true
	h := newTestHub(cfg)
	u1, u2, u3 := threeUsers(h)
	u1.reset()
	u3.reset()

	h.drop(u2)

	assert.Empty(t, nearbyIDs(lastNearby(t, u1)))
	assert.Len(t, lastNearby(t, u3).AllUsers, 2)

	unregistered := newFakeConn("x")
	h.connect(unregistered)
	u1.reset()
	h.drop(unregistered)
	assert.Empty(t, u1.types(t), "only registered departures trigger a round")
}

func TestClickFlow(t *testing.T) {
	h := newTestHub(testConfig())
	u1, u2, _ := threeUsers(h)
	h.locate(u2, "u2", 37.2497, 127.0290)
	u1.reset()
	u2.reset()

	h.frame(u1, `{"type":"user_click","fromUserId":"u1","toUserId":"u2"}`)

	notices := decodeAll[ClickNoticeMessage](t, u2, TypeClickNotice)
	require.Len(t, notices, 1)
	assert.Equal(t, ClickNoticeMessage{
		Type:         TypeClickNotice,
		FromUserID:   "u1",
		FromUserName: "u1",
		ToUserID:     "u2",
	}, notices[0])
	assert.Equal(t, []MessageType{TypeClickNotice, TypeYouWereClicked}, u2.types(t))

	acks := decodeAll[ClickedAckMessage](t, u1, TypeClickedAck)
	require.Len(t, acks, 1)
	assert.Equal(t, "u2", acks[0].ToUserID)

	assert.Empty(t, nearbyIDs(lastNearby(t, u1)), "clicked user is hidden from the clicker")

	h.locate(u2, "u2", 37.2497, 127.0290)
	assert.Empty(t, nearbyIDs(lastNearby(t, u1)), "hidden for the rest of the session")
	assert.Equal(t, []string{"u1"}, nearbyIDs(lastNearby(t, u2)), "suppression is one-sided")

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ClicksTotal.WithLabelValues(metrics.ClickDelivered)))
}

func TestClickResolvesNames(t *testing.T) {
	h := newTestHub(testConfig())
	a, b := newFakeConn("a"), newFakeConn("b")
	h.connect(a)
	h.connect(b)
	h.frame(a, `{"type":"location_update","userId":"u1","userName":"Mina","lat":1,"lng":1}`)
	h.frame(b, `{"type":"location_update","userId":"u2","userName":"Joon","lat":1,"lng":1}`)

	h.frame(a, `{"type":"user_click","from":"u1","to":"u2"}`)

	notices := decodeAll[ClickNoticeMessage](t, b, TypeClickNotice)
	require.Len(t, notices, 1)
	assert.Equal(t, "Mina", notices[0].FromUserName)
	assert.Equal(t, "Joon", notices[0].ToUserName)
}

func TestClickUnknownTargetIsDropped(t *testing.T) {
	h := newTestHub(testConfig())
	u1, _, _ := threeUsers(h)
	u1.reset()

	h.frame(u1, `{"type":"user_click","fromUserId":"u1","toUserId":"ghost"}`)

	assert.Empty(t, u1.types(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ClicksTotal.WithLabelValues(metrics.ClickUnresolved)))
}

func TestClickClosedTargetIsDropped(t *testing.T) {
	h := newTestHub(testConfig())
	u1, u2, _ := threeUsers(h)
	u2.Close()
	u1.reset()

	h.frame(u1, `{"type":"user_click","fromUserId":"u1","toUserId":"u2"}`)

	assert.Empty(t, u1.types(t), "no ack when the notice could not be delivered")
}

func TestClickSuppressionOff(t *testing.T) {
	cfg := testConfig()
	cfg.ClickSuppression = configs.SuppressOff
	h := newTestHub(cfg)
	u1, _, _ := threeUsers(h)

	h.frame(u1, `{"type":"user_click","fromUserId":"u1","toUserId":"u2"}`)

	assert.Equal(t, []string{"u2"}, nearbyIDs(lastNearby(t, u1)))
}

func TestClickSuppressionUntilMove(t *testing.T) {
	cfg := testConfig()
	cfg.ClickSuppression = configs.SuppressUntilMove
	h := newTestHub(cfg)
	u1, u2, _ := threeUsers(h)

	h.frame(u1, `{"type":"user_click","fromUserId":"u1","toUserId":"u2"}`)
	assert.Empty(t, nearbyIDs(lastNearby(t, u1)))

	h.locate(u2, "u2", 37.2497, 127.0290)
	assert.Empty(t, nearbyIDs(lastNearby(t, u1)), "others moving does not lift it")

	h.locate(u1, "u1", 37.2496, 127.0289)
	assert.Equal(t, []string{"u2"}, nearbyIDs(lastNearby(t, u1)), "the clicker moving does")
}

func TestClickFromUnregisteredSender(t *testing.T) {
	h := newTestHub(testConfig())
	_, u2, _ := threeUsers(h)
	anon := newFakeConn("anon")
	h.connect(anon)

	h.frame(anon, `{"type":"user_click","fromUserId":"guest","toUserId":"u2","fromUserName":"Guest"}`)

	assert.Equal(t, []MessageType{TypeClickedAck}, anon.types(t), "ack but no nearby list without a position")
	notices := decodeAll[ClickNoticeMessage](t, u2, TypeClickNotice)
	require.Len(t, notices, 1)
	assert.Equal(t, "Guest", notices[0].FromUserName)
}

func TestHomeReadyAndUserJoin(t *testing.T) {
	h := newTestHub(testConfig())
	watcher, joiner, bystander := newFakeConn("w"), newFakeConn("j"), newFakeConn("b")
	for _, c := range []*fakeConn{watcher, joiner, bystander} {
		h.connect(c)
	}

	h.frame(watcher, `{"type":"home_ready"}`)
	assert.Empty(t, watcher.types(t), "nobody has joined yet")

	h.frame(joiner, `{"type":"user_join","userId":"u7"}`)

	got := decodeAll[NearbyUserJoinedMessage](t, watcher, TypeNearbyUserJoined)
	require.Len(t, got, 2, "home watchers get the anonymous notice and the named one")
	assert.Equal(t, NearbyUserJoinedMessage{Type: TypeNearbyUserJoined, Message: JoinedNoticeText}, got[0])
	assert.Equal(t, NearbyUserJoinedMessage{Type: TypeNearbyUserJoined, UserID: "u7"}, got[1])

	got = decodeAll[NearbyUserJoinedMessage](t, bystander, TypeNearbyUserJoined)
	require.Len(t, got, 1)
	assert.Equal(t, "u7", got[0].UserID)

	assert.Empty(t, joiner.types(t))

	late := newFakeConn("late")
	h.connect(late)
	h.frame(late, `{"type":"home_ready"}`)
	got = decodeAll[NearbyUserJoinedMessage](t, late, TypeNearbyUserJoined)
	require.Len(t, got, 1)
	assert.Equal(t, JoinedNoticeText, got[0].Message)
}

func TestHomeWatcherThatJoins(t *testing.T) {
	h := newTestHub(testConfig())
	c := newFakeConn("c")
	h.connect(c)

	h.frame(c, `{"type":"home_ready"}`)
	h.frame(c, `{"type":"user_join","userId":"u1"}`)

	assert.Equal(t, []MessageType{TypeNearbyUserJoined}, c.types(t))

	h.drop(c)
	home, joined := h.groups.Counts()
	assert.Zero(t, home)
	assert.Zero(t, joined)
}

func TestDuplicateUserIDsCoexist(t *testing.T) {
	h := newTestHub(testConfig())
	a, b := newFakeConn("a"), newFakeConn("b")
	h.connect(a)
	h.connect(b)

	h.locate(a, "same", 1, 1)
	h.locate(b, "same", 1, 1.0001)

	assert.Equal(t, 2, h.registry.Len())
	assert.Empty(t, lastNearby(t, a).NearbyUsers, "entries sharing the target id are excluded")
	assert.Len(t, lastNearby(t, a).AllUsers, 2)
}

func TestStats(t *testing.T) {
	h := newTestHub(testConfig())
	u1, _, _ := threeUsers(h)
	h.frame(u1, `{"type":"home_ready"}`)

	s := h.Stats()

	assert.Equal(t, Stats{
		Connections:        3,
		Registered:         3,
		HomeWatchers:       1,
		NearbyParticipants: 0,
		RadiusKm:           0.1,
		Server:             "test-node",
	}, s)
}
