package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orderly/livefeed"
)

type rootOptions struct {
	configPath  string
	baseURL     string
	metricsAddr string
	refreshURL  string
	verbose     bool
}

// fileConfig is the layout of the --config YAML file.
type fileConfig struct {
	Livefeed    livefeed.Config `yaml:"livefeed"`
	MetricsAddr string          `yaml:"metrics_addr"`
	RefreshURL  string          `yaml:"refresh_url"`
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "feedwatch",
		Short:        "Watch a livefeed channel",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.baseURL, "base-url", "", "event source address (overrides config and LIVEFEED_BASE_URL)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	flags.StringVar(&opts.refreshURL, "refresh-url", "", "GET this URL whenever an event asks for a refresh")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		watchCmd(opts, livefeed.KindRestaurant, "restaurant <restaurant-id>", "Watch a restaurant order feed"),
		watchCmd(opts, livefeed.KindUser, "notifications <user-id>", "Watch a user notification feed"),
	)
	return root
}

// loadSettings merges the config file with flag overrides. Environment
// fallbacks are applied later by livefeed.ResolveConfig.
func loadSettings(opts *rootOptions) (fileConfig, error) {
	var fc fileConfig
	if opts.configPath != "" {
		data, err := os.ReadFile(opts.configPath)
		if err != nil {
			return fc, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fc, fmt.Errorf("parse config %s: %w", opts.configPath, err)
		}
		log.Debug().Str("path", opts.configPath).Msg("config loaded")
	}

	if opts.baseURL != "" {
		fc.Livefeed.BaseURL = opts.baseURL
	}
	if opts.metricsAddr != "" {
		fc.MetricsAddr = opts.metricsAddr
	}
	if opts.refreshURL != "" {
		fc.RefreshURL = opts.refreshURL
	}
	return fc, nil
}
