package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTokenMultiplier(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 1.0},
		{"1.2", 1.2},
		{"1.2x", 1.2},
		{"x1.2", 1.2},
		{"120%", 1.2},
		{`"1.5"`, 1.5},
		{"not-a-number", 1.0},
		{"-3", 1.0},
		{"0", 1.0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseTokenMultiplier(c.in), "input %q", c.in)
	}
}

func TestLoad_DefaultsWithNoEnv(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 120_000, cfg.Server.TimeoutMS)
	assert.Equal(t, 1.0, cfg.Server.TokenMultiplier)
}

func TestLoad_NumberedChannelsScanUntilGap(t *testing.T) {
	t.Setenv("CHANNEL_1_NAME", "fast")
	t.Setenv("CHANNEL_1_BASE_URL", "https://fast.example")
	t.Setenv("CHANNEL_2_NAME", "slow")
	t.Setenv("CHANNEL_2_BASE_URL", "https://slow.example")
	// CHANNEL_3_NAME intentionally unset: the scan must stop here even if
	// CHANNEL_4_NAME were set.
	t.Setenv("CHANNEL_4_NAME", "unreachable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Len(t, cfg.Channel.Channels, 2)
	assert.Equal(t, "fast", cfg.Channel.Channels[0].Name)
	assert.Equal(t, "slow", cfg.Channel.Channels[1].Name)
}

func TestLoad_OTELSettingsDefaultToDisabled(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.False(t, cfg.Server.OTELTracingEnabled)
	assert.Equal(t, "", cfg.Server.OTELExporterEndpoint)
	assert.False(t, cfg.Server.OTELInsecure)
}

func TestLoad_OTELSettingsReadFromEnv(t *testing.T) {
	t.Setenv("OTEL_TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector.internal:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.True(t, cfg.Server.OTELTracingEnabled)
	assert.Equal(t, "collector.internal:4318", cfg.Server.OTELExporterEndpoint)
	assert.True(t, cfg.Server.OTELInsecure)
}

func TestLoad_LegacyUpstreamOnlyWhenBaseURLSet(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assert.Nil(t, cfg.Channel.Legacy)

	t.Setenv("UPSTREAM_BASE_URL", "https://legacy.example")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	require := assert.New(t)
	require.NotNil(cfg.Channel.Legacy)
	require.Equal("https://legacy.example", cfg.Channel.Legacy.BaseURL)
}
