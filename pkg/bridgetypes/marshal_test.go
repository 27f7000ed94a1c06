package bridgetypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentBlocks_SerializeWithTypeDiscriminator(t *testing.T) {
	cases := []struct {
		name  string
		block ContentBlock
		want  string
	}{
		{"text", TextBlock{Text: "hi"}, "text"},
		{"tool_use", ToolUseBlock{ID: "t1", Name: "x"}, "tool_use"},
		{"tool_result", ToolResultBlock{ToolUseID: "t1", Content: "ok"}, "tool_result"},
		{"thinking", ThinkingBlock{Thinking: "because"}, "thinking"},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.block)
		require.NoError(t, err, c.name)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, c.want, decoded["type"], c.name)
	}
}

func TestToolUseBlock_NilInputSerializesAsEmptyObject(t *testing.T) {
	data, err := json.Marshal(ToolUseBlock{ID: "t1", Name: "x", Input: nil})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool_use","id":"t1","name":"x","input":{}}`, string(data))
}

func TestContentBlockSlice_SerializesEachWithDiscriminator(t *testing.T) {
	blocks := []ContentBlock{
		TextBlock{Text: "a"},
		ToolUseBlock{ID: "t1", Name: "b", Input: map[string]interface{}{"x": 1.0}},
	}
	data, err := json.Marshal(blocks)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "text", decoded[0]["type"])
	assert.Equal(t, "tool_use", decoded[1]["type"])
}
