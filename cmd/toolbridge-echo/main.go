package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
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
)

// main wires the same pkg/httpapi router behind an Echo instance via
// echo.WrapHandler, for deployments that already standardize on Echo.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.Server.LogLevel == "debug", "", cfg.Server.LoggingDisabled); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Close()
	defer tokencount.Shutdown()

	shutdownTracing, err := telemetry.Bootstrap(context.Background(), telemetry.BootstrapConfig{
		Endpoint: cfg.Server.OTELExporterEndpoint,
		Insecure: cfg.Server.OTELInsecure,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
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

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Any("/*", echo.WrapHandler(router))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logging.Info("toolbridge (echo) listening", logging.String("addr", addr))
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
