// Feedwatch subscribes to one livefeed channel and logs what arrives.
//
// Configuration comes from a YAML file (--config), flags, a .env file and
// LIVEFEED_* environment variables, in that order of precedence:
//
//	LIVEFEED_BASE_URL           address of the event source
//	LIVEFEED_HEARTBEAT_INTERVAL keepalive cadence, e.g. 30s
//	LIVEFEED_RECONNECT_DELAY    wait before reconnecting, e.g. 3s
//
// Usage:
//
//	LIVEFEED_BASE_URL=http://localhost:8090 \
//	  go run ./cmd/feedwatch restaurant r-1 --metrics-addr :9090
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
