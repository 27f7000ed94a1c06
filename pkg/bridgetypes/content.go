// Package bridgetypes holds the Anthropic-shaped request/response data model
// shared across the enrichment, upstream, parsing and SSE-writing stages.
package bridgetypes

// ContentBlock is a tagged variant of the content a Message can carry.
type ContentBlock interface {
	ContentType() string
}

// TextBlock is plain visible text.
type TextBlock struct {
	Text string `json:"text"`
}

// ContentType implements ContentBlock.
func (TextBlock) ContentType() string { return "text" }

// ToolUseBlock is a tool invocation the assistant produced.
type ToolUseBlock struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ContentType implements ContentBlock.
func (ToolUseBlock) ContentType() string { return "tool_use" }

// ToolResultBlock carries the result of a prior tool call back to the model.
type ToolResultBlock struct {
	ToolUseID string      `json:"tool_use_id"`
	Content   interface{} `json:"content"`
}

// ContentType implements ContentBlock.
func (ToolResultBlock) ContentType() string { return "tool_result" }

// ThinkingBlock is an extended-thinking segment with its signature.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// ContentType implements ContentBlock.
func (ThinkingBlock) ContentType() string { return "thinking" }
