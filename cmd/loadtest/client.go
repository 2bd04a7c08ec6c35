package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"nearby/internal/app/geo"
	"nearby/internal/app/user"
)

// counters are shared by every simulated client. recvMsgs and recvBytes are reset
// by each per-second report; the totals are not.
type counters struct {
	alive      atomic.Int64
	recvMsgs   atomic.Int64
	recvBytes  atomic.Int64
	totalMsgs  atomic.Int64
	totalBytes atomic.Int64
	sent       atomic.Int64
	failed     atomic.Int64
}

func (c *counters) received(n int) {
	c.recvMsgs.Add(1)
	c.recvBytes.Add(int64(n))
	c.totalMsgs.Add(1)
	c.totalBytes.Add(int64(n))
}

// summary formats the run totals. elapsed is the measured run time.
func (c *counters) summary(elapsed time.Duration) string {
	msgs := c.totalMsgs.Load()

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(msgs) / secs
	}

	return fmt.Sprintf("DONE sent=%d failed_dials=%d recvMsgs=%d recvBytes=%.2fMB avg=%.1f msg/s",
		c.sent.Load(), c.failed.Load(), msgs, float64(c.totalBytes.Load())/(1024*1024), rate)
}

// jitter returns a uniform offset in [-m, m).
func jitter(rng *rand.Rand, m float64) float64 {
	return (rng.Float64() - 0.5) * 2 * m
}

// scatter places p within a square of half-width m metres.
func scatter(rng *rand.Rand, p user.Position, m float64) user.Position {
	lat, lng := geo.Offset(p.Lat, p.Lng, jitter(rng, m), jitter(rng, m))
	return user.Position{Lat: lat, Lng: lng}
}

type locationFrame struct {
	Type     string  `json:"type"`
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// simulate runs one user until ctx ends: announce, then send jittered positions every interval.
func simulate(ctx context.Context, cfg Config, n int, c *counters) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		c.failed.Add(1)
		return
	}
	defer conn.Close()

	c.alive.Add(1)
	defer c.alive.Add(-1)

	rng := rand.New(rand.NewPCG(uint64(n), uint64(time.Now().UnixNano())))
	id := fmt.Sprintf("u%d", n)
	pos := scatter(rng, defaultCenter, cfg.SpreadM)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			c.received(len(data))
		}
	}()

	hello := []string{`{"type":"home_ready"}`, fmt.Sprintf(`{"type":"user_join","userId":%q}`, id)}
	for _, frame := range hello {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			pos = scatter(rng, pos, cfg.StepM)
			frame, err := json.Marshal(locationFrame{
				Type:     "location_update",
				UserID:   id,
				UserName: fmt.Sprintf("User-%d", n),
				Lat:      pos.Lat,
				Lng:      pos.Lng,
			})
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			c.sent.Add(1)
		}
	}
}
