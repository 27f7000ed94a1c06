package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

func TestDecodeClientRequest_StringSystemAndContent(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"system": "be terse",
		"messages": [{"role": "user", "content": "hello"}],
		"max_tokens": 256
	}`)

	req, err := decodeClientRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "be terse", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hello", req.Messages[0].Text)
	assert.True(t, req.Messages[0].IsSimple())
}

func TestDecodeClientRequest_BlockFormSystemAndContent(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"system": [{"type": "text", "text": "part one"}, {"type": "text", "text": "part two"}],
		"messages": [{"role": "assistant", "content": [
			{"type": "tool_use", "id": "t1", "name": "search", "input": {"q": "go"}},
			{"type": "text", "text": "done"}
		]}]
	}`)

	req, err := decodeClientRequest(body)
	require.NoError(t, err)
	require.Len(t, req.SystemBlock, 2)
	assert.Equal(t, "part one", req.SystemBlock[0].Text)

	require.Len(t, req.Messages, 1)
	msg := req.Messages[0]
	require.False(t, msg.IsSimple())
	require.Len(t, msg.Blocks, 2)

	toolUse, ok := msg.Blocks[0].(bridgetypes.ToolUseBlock)
	require.True(t, ok)
	assert.Equal(t, "search", toolUse.Name)
	assert.Equal(t, "go", toolUse.Input["q"])

	text, ok := msg.Blocks[1].(bridgetypes.TextBlock)
	require.True(t, ok)
	assert.Equal(t, "done", text.Text)
}

func TestDecodeClientRequest_ToolResultBlock(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [{"role": "user", "content": [
			{"type": "tool_result", "tool_use_id": "t1", "content": "42"}
		]}]
	}`)

	req, err := decodeClientRequest(body)
	require.NoError(t, err)
	block, ok := req.Messages[0].Blocks[0].(bridgetypes.ToolResultBlock)
	require.True(t, ok)
	assert.Equal(t, "t1", block.ToolUseID)
	assert.Equal(t, "42", block.Content)
}

func TestDecodeClientRequest_ToolsAndSchema(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [],
		"tools": [{
			"name": "get_weather",
			"description": "fetch weather",
			"input_schema": {
				"properties": {"city": {"type": "string", "description": "city name"}},
				"required": ["city"]
			}
		}]
	}`)

	req, err := decodeClientRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "get_weather", req.Tools[0].Name)
	assert.Equal(t, []string{"city"}, req.Tools[0].InputSchema.Required)
	assert.Equal(t, "string", req.Tools[0].InputSchema.Properties["city"].Type)
}

func TestDecodeClientRequest_ThinkingBlockInHistory(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [{"role": "assistant", "content": [
			{"type": "thinking", "thinking": "let me work through this", "signature": "sig-abc"},
			{"type": "text", "text": "the answer is 4"}
		]}]
	}`)

	req, err := decodeClientRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Messages[0].Blocks, 2)

	thinking, ok := req.Messages[0].Blocks[0].(bridgetypes.ThinkingBlock)
	require.True(t, ok)
	assert.Equal(t, "let me work through this", thinking.Thinking)
	assert.Equal(t, "sig-abc", thinking.Signature)
}

func TestDecodeClientRequest_MalformedJSONReturnsError(t *testing.T) {
	_, err := decodeClientRequest([]byte(`{not json`))
	assert.Error(t, err)
}
