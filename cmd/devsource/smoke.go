package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/orderly/livefeed"
	"github.com/orderly/livefeed/internal/devsource"
)

func smokeCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a connect, publish, drop and reconnect check against an in-process source",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSmoke(ctx)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

func runSmoke(ctx context.Context) error {
	passed, failed := 0, 0
	check := func(name string, ok bool, detail string) {
		if ok {
			fmt.Printf("  PASS: %s\n", name)
			passed++
			return
		}
		fmt.Printf("  FAIL: %s (%s)\n", name, detail)
		failed++
	}

	fmt.Println("=== livefeed smoke test ===")

	source := devsource.New(log.Logger.With().Str("component", "devsource").Logger())
	server := httptest.NewServer(source)
	defer server.Close()

	cfg, err := livefeed.ResolveConfig(livefeed.Config{
		BaseURL:           server.URL,
		HeartbeatInterval: 100 * time.Millisecond,
		ReconnectDelay:    200 * time.Millisecond,
	})
	if err != nil {
		return err
	}

	var connects atomic.Int32
	received := make(chan *livefeed.Message, 1)
	m := livefeed.New(cfg.Descriptor(livefeed.KindRestaurant, "smoke"), livefeed.Callbacks{
		OnMessage: func(msg *livefeed.Message) {
			select {
			case received <- msg:
			default:
			}
		},
		OnConnect: func() { connects.Add(1) },
	}, cfg.Options()...)
	defer m.Close()

	channel := devsource.ChannelKey("restaurant", "smoke")

	fmt.Println("[1] connect")
	m.Connect()
	check("connected", waitUntil(ctx, func() bool {
		return m.IsConnected() && source.Stats(channel).Subscribers == 1
	}), m.Status().String())

	fmt.Println("[2] heartbeat")
	check("heartbeat received", waitUntil(ctx, func() bool {
		return source.Stats(channel).Heartbeats > 0
	}), "no heartbeat reached the source")

	fmt.Println("[3] publish")
	source.Publish(channel, []byte(`{"type":"new_order","orderNumber":"42"}`))
	select {
	case msg := <-received:
		check("message routed", msg.Type == "new_order" && msg.Field("orderNumber") == "42", string(msg.Raw()))
	case <-ctx.Done():
		check("message routed", false, ctx.Err().Error())
	}

	fmt.Println("[4] server drop")
	source.DropAll()
	check("reconnected", waitUntil(ctx, func() bool {
		return connects.Load() >= 2 && m.IsConnected()
	}), fmt.Sprintf("status=%s connects=%d", m.Status(), connects.Load()))

	fmt.Println("[5] disconnect")
	m.Disconnect()
	check("stays disconnected", sleepCtx(ctx, 2*cfg.ReconnectDelay) && m.Status() == livefeed.StatusDisconnected,
		m.Status().String())

	fmt.Println()
	fmt.Printf("passed: %d, failed: %d\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func waitUntil(ctx context.Context, cond func() bool) bool {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
