package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaybridge/toolbridge/pkg/config"
	"github.com/relaybridge/toolbridge/pkg/forwarder"
	"github.com/relaybridge/toolbridge/pkg/httpapi"
	"github.com/relaybridge/toolbridge/pkg/logging"
	"github.com/relaybridge/toolbridge/pkg/ratelimiter"
	"github.com/relaybridge/toolbridge/pkg/retrycontroller"
	"github.com/relaybridge/toolbridge/pkg/telemetry"
	"github.com/relaybridge/toolbridge/pkg/tokencount"
	"github.com/relaybridge/toolbridge/pkg/upstream"
	"github.com/relaybridge/toolbridge/pkg/upstream/anthropic"
	"github.com/relaybridge/toolbridge/pkg/upstream/openai"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

var debugFilePath string

var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "toolbridge - a tool-call-emulating reverse proxy for the Anthropic Messages API",
	Long:  `toolbridge rewrites Anthropic-shaped chat requests for upstreams with no native function calling, and re-emits their replies as Anthropic-compliant SSE.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.Flags().StringVar(&debugFilePath, "log-file", "", "path to a log file (default: stdout)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.Init(cfg.Server.LogLevel == "debug", debugFilePath, cfg.Server.LoggingDisabled); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logging.Close()
	defer tokencount.Shutdown()

	shutdownTracing, err := telemetry.Bootstrap(cmd.Context(), telemetry.BootstrapConfig{
		Endpoint: cfg.Server.OTELExporterEndpoint,
		Insecure: cfg.Server.OTELInsecure,
	})
	if err != nil {
		return fmt.Errorf("bootstrap telemetry: %w", err)
	}
	defer shutdownTracing(context.Background())

	registry := upstream.Registry{
		bridgetypes.ProtocolOpenAI:    openai.New(),
		bridgetypes.ProtocolAnthropic: anthropic.New(),
	}

	fwd := forwarder.New(forwarder.Options{
		Registry:              registry,
		TimeoutMS:             cfg.Server.TimeoutMS,
		AggregationIntervalMS: cfg.Server.AggregationIntervalMS,
		TokenMultiplier:       cfg.Server.TokenMultiplier,
		RetryOptions:          retrycontroller.DefaultOptions(),
		Telemetry:             telemetry.DefaultSettings().WithEnabled(cfg.Server.OTELTracingEnabled),
	})

	router := httpapi.NewRouter(httpapi.Options{
		Forwarder:    fwd,
		Channel:      cfg.Channel,
		ClientAPIKey: cfg.Server.ClientAPIKey,
		TimeoutMS:    cfg.Server.TimeoutMS,
		RateLimiter:  ratelimiter.New(cfg.Server.MaxRequestsPerMinute),
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logging.Info("toolbridge listening", logging.String("addr", addr))
	return http.ListenAndServe(addr, router)
}
