// Package config loads the service's environment-variable-driven
// configuration, optionally seeded from a .env file, following the
// numbered-variable scan-until-gap convention for channels and multi-upstreams.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/channel"
)

// Server holds the non-routing, non-channel settings read from the
// environment table in the external-interfaces section.
type Server struct {
	Host                 string
	Port                 string
	AutoPort             bool
	ClientAPIKey         string
	TimeoutMS            int
	AggregationIntervalMS int
	MaxRequestsPerMinute int
	TokenMultiplier      float64
	LogLevel             string
	LoggingDisabled      bool
	OTELTracingEnabled   bool
	OTELExporterEndpoint string
	OTELInsecure         bool
}

// Config is the fully loaded, process-wide configuration.
type Config struct {
	Server  Server
	Channel channel.Config
}

// Load reads ENV_FILE (if set, or ./.env if present) via godotenv and then
// parses every recognized environment variable. godotenv failures for a
// missing default .env are not an error; a missing ENV_FILE the caller
// explicitly named is.
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: Server{
			Host:                  getenv("HOST", "0.0.0.0"),
			Port:                  getenv("PORT", "8080"),
			AutoPort:              getBool("AUTO_PORT", false),
			ClientAPIKey:          os.Getenv("CLIENT_API_KEY"),
			TimeoutMS:             getInt("TIMEOUT_MS", 120_000),
			AggregationIntervalMS: getInt("AGGREGATION_INTERVAL_MS", 50),
			MaxRequestsPerMinute:  getInt("MAX_REQUESTS_PER_MINUTE", 0),
			TokenMultiplier:       ParseTokenMultiplier(os.Getenv("TOKEN_MULTIPLIER")),
			LogLevel:              getenv("LOG_LEVEL", "info"),
			LoggingDisabled:       getBool("LOGGING_DISABLED", false),
			OTELTracingEnabled:    getBool("OTEL_TRACING_ENABLED", false),
			OTELExporterEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTELInsecure:          getBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
	}

	cfg.Channel.PassthroughAPIKey = getBool("PASSTHROUGH_API_KEY", false)
	cfg.Channel.Channels = loadChannels()
	cfg.Channel.MultiUpstreams = loadMultiUpstreams()
	cfg.Channel.Legacy = loadLegacyUpstream()

	return cfg, nil
}

func loadDotenv() error {
	path := os.Getenv("ENV_FILE")
	if path != "" {
		return godotenv.Load(path)
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func loadChannels() []channel.Channel {
	var out []channel.Channel
	for i := 1; ; i++ {
		prefix := fmt.Sprintf("CHANNEL_%d_", i)
		name := os.Getenv(prefix + "NAME")
		if name == "" {
			break
		}
		out = append(out, channel.Channel{
			Name:     name,
			BaseURL:  os.Getenv(prefix + "BASE_URL"),
			APIKey:   os.Getenv(prefix + "API_KEY"),
			Protocol: protocolOrDefault(os.Getenv(prefix + "PROTOCOL")),
		})
	}
	return out
}

func loadMultiUpstreams() []channel.MultiUpstream {
	var out []channel.MultiUpstream
	for i := 1; ; i++ {
		prefix := fmt.Sprintf("UPSTREAM_CONFIG_%d_", i)
		nameModel := os.Getenv(prefix + "NAME_MODEL")
		if nameModel == "" {
			break
		}
		out = append(out, channel.MultiUpstream{
			NameModel:    nameModel,
			BaseURL:      os.Getenv(prefix + "BASE_URL"),
			APIKey:       os.Getenv(prefix + "API_KEY"),
			RequestModel: os.Getenv(prefix + "REQUEST_MODEL"),
			Protocol:     bridgetypes.ProtocolOpenAI,
		})
	}
	return out
}

func loadLegacyUpstream() *channel.LegacyUpstream {
	baseURL := os.Getenv("UPSTREAM_BASE_URL")
	if baseURL == "" {
		return nil
	}
	return &channel.LegacyUpstream{
		BaseURL:       baseURL,
		APIKey:        os.Getenv("UPSTREAM_API_KEY"),
		ModelOverride: os.Getenv("UPSTREAM_MODEL"),
		Protocol:      bridgetypes.ProtocolOpenAI,
	}
}

func protocolOrDefault(s string) bridgetypes.Protocol {
	if s == string(bridgetypes.ProtocolAnthropic) {
		return bridgetypes.ProtocolAnthropic
	}
	return bridgetypes.ProtocolOpenAI
}

// ParseTokenMultiplier accepts "1.2", "1.2x", "x1.2", "120%", optionally
// quoted; any value that is not a positive finite number after stripping
// those decorations yields 1.0.
func ParseTokenMultiplier(v string) float64 {
	s := strings.TrimSpace(v)
	s = strings.Trim(s, `"'`)
	if s == "" {
		return 1.0
	}

	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "x")
	s = strings.TrimPrefix(s, "x")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	if percent {
		f = f / 100.0
	}
	if f <= 0 || isNaNOrInf(f) {
		return 1.0
	}
	return f
}

func isNaNOrInf(f float64) bool {
	return f != f || f > 1e308 || f < -1e308
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
