package anthropic

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

func TestBuildHeaders_IncludesVersionAndAPIKey(t *testing.T) {
	a := New()
	h := a.BuildHeaders(bridgetypes.UpstreamConfig{APIKey: "sk-ant-test"})
	assert.Equal(t, anthropicVersion, h["anthropic-version"])
	assert.Equal(t, "sk-ant-test", h["x-api-key"])
}

func TestBuildRequestBody_OmitsUnsetOptionalFields(t *testing.T) {
	a := New()
	req := bridgetypes.ClientRequest{
		System:   "be terse",
		Messages: []bridgetypes.Message{{Role: bridgetypes.RoleUser, Text: "hi"}},
	}
	body, err := a.BuildRequestBody(req, bridgetypes.UpstreamConfig{UpstreamModel: "claude-x"}, false)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "claude-x", decoded["model"])
	assert.Equal(t, "be terse", decoded["system"])
	_, hasMaxTokens := decoded["max_tokens"]
	assert.False(t, hasMaxTokens)
	_, hasTemperature := decoded["temperature"]
	assert.False(t, hasTemperature)
}

func TestParseResponse_ConcatenatesTextBlocksOnly(t *testing.T) {
	a := New()
	body := []byte(`{"content":[{"type":"text","text":"hello "},{"type":"tool_use","text":"ignored"},{"type":"text","text":"world"}]}`)
	resp, err := a.ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Text)
}

func TestStreamDecoder_StopsOnMessageStop(t *testing.T) {
	a := New()
	sse := "event: content_block_delta\n" +
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hi"}}` + "\n\n" +
		"event: message_stop\n" +
		`data: {"type":"message_stop"}` + "\n\n"

	dec := a.NewStreamDecoder(io.NopCloser(strings.NewReader(sse)))

	chunk, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "Hi", chunk.Text)

	chunk, err = dec.Next()
	require.NoError(t, err)
	assert.True(t, chunk.End)
}

func TestStreamDecoder_IgnoresNonTextDeltaEvents(t *testing.T) {
	a := New()
	sse := "event: content_block_delta\n" +
		`data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{}"}}` + "\n\n" +
		"event: message_stop\n" +
		`data: {}` + "\n\n"

	dec := a.NewStreamDecoder(io.NopCloser(strings.NewReader(sse)))
	chunk, err := dec.Next()
	require.NoError(t, err)
	assert.True(t, chunk.End)
}
