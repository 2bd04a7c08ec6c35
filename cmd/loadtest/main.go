/*
Package main is a load generator for the Nearby presence server.

It opens USERS websocket connections, announces each one, and sends jittered location
updates HZ times per second for DURATION seconds while printing per-second receive rates.
Settings come from a .env file in the working directory when present, else the environment.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"nearby/internal/pkg/logx"
)

func main() {
	logx.InitGlobalLogger(true)

	cfg, err := loadConfig(".env")
	if err != nil {
		logx.Fatal(err, "Failed to load load-test configuration")
	}

	logx.Logger().Info().
		Str("url", cfg.URL).
		Int("users", cfg.Users).
		Float64("hz", cfg.Hz).
		Dur("duration", cfg.Duration()).
		Msg("Starting load test")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration())
	defer cancel()

	var (
		c  counters
		wg sync.WaitGroup
	)
	start := time.Now()

	for i := 1; i <= cfg.Users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			simulate(ctx, cfg, n, &c)
		}(i)
	}

	report(ctx, &c)

	wg.Wait()

	green := color.New(color.FgGreen, color.Bold).SprintfFunc()
	fmt.Println(green("%s", c.summary(time.Since(start))))
}

// report prints one line per second until ctx ends, resetting the receive counters each time.
func report(ctx context.Context, c *counters) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	label := color.New(color.FgCyan).SprintfFunc()
	elapsed := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed++
			msgs := c.recvMsgs.Swap(0)
			mb := float64(c.recvBytes.Swap(0)) / (1024 * 1024)
			fmt.Printf("%s alive=%d recvMsgs=%d/s recvBytes=%.2fMB/s\n",
				label("[t=%ds]", elapsed), c.alive.Load(), msgs, mb)
		}
	}
}
