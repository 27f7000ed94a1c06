package reqcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/channel"
)

func TestBuild_NoToolsHasNilDelimiter(t *testing.T) {
	cfg := channel.Config{Legacy: &channel.LegacyUpstream{BaseURL: "https://up", Protocol: bridgetypes.ProtocolOpenAI}}
	original := bridgetypes.ClientRequest{Model: "gpt-4o"}

	rc, err := Build("req-1", original, cfg, "")
	require.NoError(t, err)
	assert.Nil(t, rc.Delimiter)
	assert.Equal(t, "req-1", rc.RequestID)
	assert.Equal(t, "https://up", rc.Upstream.BaseURL)
	assert.Equal(t, original, rc.Enriched)
}

func TestBuild_WithToolsSetsDelimiterAndEnrichesSystem(t *testing.T) {
	cfg := channel.Config{Legacy: &channel.LegacyUpstream{BaseURL: "https://up"}}
	original := bridgetypes.ClientRequest{
		Model: "gpt-4o",
		Tools: []bridgetypes.ToolDef{{Name: "search"}},
	}

	rc, err := Build("req-2", original, cfg, "")
	require.NoError(t, err)
	require.NotNil(t, rc.Delimiter)
	assert.Contains(t, rc.Enriched.System, rc.Delimiter.TCStart)
	assert.Equal(t, original, rc.Original)
}

func TestBuild_UnresolvableModelReturnsError(t *testing.T) {
	_, err := Build("req-3", bridgetypes.ClientRequest{Model: "ghost"}, channel.Config{}, "")
	require.Error(t, err)
}

func TestBuild_PassthroughAPIKeyFlowsToUpstreamConfig(t *testing.T) {
	cfg := channel.Config{
		Legacy:            &channel.LegacyUpstream{BaseURL: "https://up", APIKey: "server-key"},
		PassthroughAPIKey: true,
	}
	rc, err := Build("req-4", bridgetypes.ClientRequest{Model: "gpt-4o"}, cfg, "client-key")
	require.NoError(t, err)
	assert.Equal(t, "client-key", rc.Upstream.APIKey)
}
