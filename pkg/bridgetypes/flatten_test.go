package bridgetypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenBlocks_TextPassthroughAndJSONForOthers(t *testing.T) {
	out := FlattenBlocks([]ContentBlock{
		TextBlock{Text: "hello"},
		ToolUseBlock{ID: "t1", Name: "search", Input: map[string]interface{}{"q": "go"}},
	})
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `"type":"tool_use"`)
	assert.Contains(t, out, `"name":"search"`)
}

func TestMessageText_SimpleVsBlocks(t *testing.T) {
	simple := Message{Role: RoleUser, Text: "hi"}
	assert.Equal(t, "hi", MessageText(simple))

	blocks := Message{Role: RoleUser, Blocks: []ContentBlock{TextBlock{Text: "hi blocks"}}}
	assert.Equal(t, "hi blocks", MessageText(blocks))
}

func TestPromptText_RendersRolesAndSystem(t *testing.T) {
	req := ClientRequest{
		System: "be terse",
		Messages: []Message{
			{Role: RoleUser, Text: "hello"},
			{Role: RoleAssistant, Text: "hi there"},
		},
	}
	out := PromptText(req)
	assert.Contains(t, out, "System: be terse")
	assert.Contains(t, out, "User: hello")
	assert.Contains(t, out, "Assistant: hi there")
}

func TestPromptText_NoSystemOmitsSystemLine(t *testing.T) {
	req := ClientRequest{Messages: []Message{{Role: RoleUser, Text: "hi"}}}
	out := PromptText(req)
	assert.NotContains(t, out, "System:")
}
