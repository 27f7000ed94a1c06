package bridgetypes

import "encoding/json"

// MarshalJSON implements json.Marshaler, adding the "type" discriminator
// Anthropic's wire format requires alongside the block's own fields.
func (t TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: t.ContentType(), Text: t.Text})
}

// MarshalJSON implements json.Marshaler.
func (t ToolUseBlock) MarshalJSON() ([]byte, error) {
	input := t.Input
	if input == nil {
		input = map[string]interface{}{}
	}
	return json.Marshal(struct {
		Type  string                 `json:"type"`
		ID    string                 `json:"id"`
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	}{Type: t.ContentType(), ID: t.ID, Name: t.Name, Input: input})
}

// MarshalJSON implements json.Marshaler.
func (t ToolResultBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string      `json:"type"`
		ToolUseID string      `json:"tool_use_id"`
		Content   interface{} `json:"content"`
	}{Type: t.ContentType(), ToolUseID: t.ToolUseID, Content: t.Content})
}

// MarshalJSON implements json.Marshaler.
func (t ThinkingBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Thinking  string `json:"thinking"`
		Signature string `json:"signature"`
	}{Type: t.ContentType(), Thinking: t.Thinking, Signature: t.Signature})
}
