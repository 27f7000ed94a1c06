package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

// wireRequest mirrors the Anthropic Messages API request body at the JSON
// level, before it's lifted into bridgetypes.ClientRequest. Content and
// System are raw because each can be either a bare string or a list of
// content blocks.
type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []wireMessage   `json:"messages"`
	System      json.RawMessage `json:"system"`
	Tools       []wireTool      `json:"tools"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature"`
	TopP        *float64        `json:"top_p"`
	Stream      bool            `json:"stream"`
	Thinking    *wireThinking   `json:"thinking"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Input     map[string]interface{} `json:"input"`
	ToolUseID string                 `json:"tool_use_id"`
	Content   interface{}            `json:"content"`
	Thinking  string                 `json:"thinking"`
	Signature string                 `json:"signature"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema wireInputSchema `json:"input_schema"`
}

type wireInputSchema struct {
	Properties map[string]wireParamSchema `json:"properties"`
	Required   []string                   `json:"required"`
}

type wireParamSchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum"`
}

type wireThinking struct {
	Type string `json:"type"`
}

// decodeClientRequest parses an Anthropic Messages API request body into
// the domain model, resolving the polymorphic string-or-blocks content and
// system fields.
func decodeClientRequest(body []byte) (bridgetypes.ClientRequest, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return bridgetypes.ClientRequest{}, fmt.Errorf("decode request: %w", err)
	}

	req := bridgetypes.ClientRequest{
		Model:       wr.Model,
		MaxTokens:   wr.MaxTokens,
		Temperature: wr.Temperature,
		TopP:        wr.TopP,
		Stream:      wr.Stream,
	}
	if wr.Thinking != nil {
		req.Thinking = &bridgetypes.ThinkingConfig{Type: wr.Thinking.Type}
	}

	sysText, sysBlocks, err := decodeSystem(wr.System)
	if err != nil {
		return bridgetypes.ClientRequest{}, err
	}
	req.System = sysText
	req.SystemBlock = sysBlocks

	for _, wm := range wr.Messages {
		msg, err := decodeMessage(wm)
		if err != nil {
			return bridgetypes.ClientRequest{}, err
		}
		req.Messages = append(req.Messages, msg)
	}

	for _, wt := range wr.Tools {
		req.Tools = append(req.Tools, decodeTool(wt))
	}

	return req, nil
}

func decodeSystem(raw json.RawMessage) (string, []bridgetypes.TextBlock, error) {
	if len(raw) == 0 {
		return "", nil, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil, nil
	}
	var asBlocks []wireBlock
	if err := json.Unmarshal(raw, &asBlocks); err != nil {
		return "", nil, fmt.Errorf("decode system: %w", err)
	}
	out := make([]bridgetypes.TextBlock, 0, len(asBlocks))
	for _, b := range asBlocks {
		out = append(out, bridgetypes.TextBlock{Text: b.Text})
	}
	return "", out, nil
}

func decodeMessage(wm wireMessage) (bridgetypes.Message, error) {
	msg := bridgetypes.Message{Role: bridgetypes.Role(wm.Role)}

	var asString string
	if err := json.Unmarshal(wm.Content, &asString); err == nil {
		msg.Text = asString
		return msg, nil
	}

	var asBlocks []wireBlock
	if err := json.Unmarshal(wm.Content, &asBlocks); err != nil {
		return bridgetypes.Message{}, fmt.Errorf("decode message content: %w", err)
	}
	for _, b := range asBlocks {
		msg.Blocks = append(msg.Blocks, decodeBlock(b))
	}
	return msg, nil
}

func decodeBlock(b wireBlock) bridgetypes.ContentBlock {
	switch b.Type {
	case "tool_use":
		return bridgetypes.ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input}
	case "tool_result":
		return bridgetypes.ToolResultBlock{ToolUseID: b.ToolUseID, Content: b.Content}
	case "thinking":
		return bridgetypes.ThinkingBlock{Thinking: b.Thinking, Signature: b.Signature}
	default:
		return bridgetypes.TextBlock{Text: b.Text}
	}
}

func decodeTool(wt wireTool) bridgetypes.ToolDef {
	props := make(map[string]bridgetypes.ToolParamSchema, len(wt.InputSchema.Properties))
	for name, p := range wt.InputSchema.Properties {
		props[name] = bridgetypes.ToolParamSchema{
			Type:        p.Type,
			Description: p.Description,
			Enum:        p.Enum,
		}
	}
	return bridgetypes.ToolDef{
		Name:        wt.Name,
		Description: wt.Description,
		InputSchema: bridgetypes.ToolInputSchema{
			Properties: props,
			Required:   wt.InputSchema.Required,
		},
	}
}
