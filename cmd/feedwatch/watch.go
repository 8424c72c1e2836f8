package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/orderly/livefeed"
	"github.com/orderly/livefeed/events"
	"github.com/orderly/livefeed/metrics"
)

const shutdownTimeout = 5 * time.Second

func watchCmd(opts *rootOptions, kind livefeed.Kind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, kind, args[0])
		},
	}
}

func runWatch(ctx context.Context, opts *rootOptions, kind livefeed.Kind, id string) error {
	fc, err := loadSettings(opts)
	if err != nil {
		return err
	}
	cfg, err := livefeed.ResolveConfig(fc.Livefeed)
	if err != nil {
		return err
	}

	logger := log.Logger.With().Str("component", "feedwatch").Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(reg)

	dispatcher := events.NewDispatcher(logger)
	refresher := newRefresher(fc.RefreshURL, logger)
	switch kind {
	case livefeed.KindUser:
		err = events.BindNotificationFeed(ctx, dispatcher, refresher)
	default:
		err = events.BindOrderFeed(ctx, dispatcher, refresher, logNotifier(logger))
	}
	if err != nil {
		return err
	}

	desc := cfg.Descriptor(kind, id)
	m := livefeed.New(desc, livefeed.Callbacks{
		OnMessage: dispatcher.Dispatch,
		OnConnect: func() {
			logger.Info().Str("channel", desc.String()).Msg("feed connected")
		},
		OnDisconnect: func(err error) {
			logger.Info().Err(err).Str("channel", desc.String()).Msg("feed disconnected")
		},
		OnError: livefeed.LogErrors(logger),
	}, append(cfg.Options(), livefeed.WithObserver(collector))...)

	if fc.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              fc.MetricsAddr,
			Handler:           statusRouter(reg, m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", fc.MetricsAddr).Msg("status server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("status server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	m.Connect()
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return m.Close()
}

func logNotifier(logger zerolog.Logger) events.Notifier {
	return events.NotifierFunc(func(text string) {
		logger.Info().Msg(text)
	})
}

// newRefresher returns a Refresher that GETs url, or only logs when url is
// empty.
func newRefresher(url string, logger zerolog.Logger) events.Refresher {
	if url == "" {
		return events.RefresherFunc(func(context.Context) error {
			logger.Info().Msg("refresh requested")
			return nil
		})
	}
	return &httpRefresher{url: url, client: &http.Client{}, logger: logger}
}

type httpRefresher struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func (r *httpRefresher) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("refresh %s: %s", r.url, resp.Status)
	}
	r.logger.Debug().Str("url", r.url).Int("status", resp.StatusCode).Msg("refreshed")
	return nil
}
