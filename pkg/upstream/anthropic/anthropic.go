// Package anthropic implements the Anthropic-messages wire dialect of the
// C4 protocol adapter, for upstreams that already speak Anthropic's own
// Messages API (e.g. a differently-hosted Claude-compatible endpoint).
package anthropic

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/providerutils/streaming"
	"github.com/relaybridge/toolbridge/pkg/upstream"
)

const anthropicVersion = "2023-06-01"

// Adapter implements upstream.Adapter for Anthropic Messages.
type Adapter struct{}

// New returns the Anthropic protocol adapter.
func New() Adapter { return Adapter{} }

// Name implements upstream.Adapter.
func (Adapter) Name() string { return "anthropic" }

// BuildHeaders implements upstream.Adapter.
func (Adapter) BuildHeaders(cfg bridgetypes.UpstreamConfig) map[string]string {
	h := map[string]string{
		"Content-Type":      "application/json",
		"anthropic-version": anthropicVersion,
	}
	if cfg.APIKey != "" {
		h["x-api-key"] = cfg.APIKey
	}
	return h
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

// BuildRequestBody implements upstream.Adapter. Undefined fields are
// simply omitted via encoding/json's omitempty, matching "undefined fields
// removed" from the wire contract.
func (Adapter) BuildRequestBody(req bridgetypes.ClientRequest, cfg bridgetypes.UpstreamConfig, stream bool) ([]byte, error) {
	var messages []message
	for _, m := range req.Messages {
		messages = append(messages, message{
			Role:    string(m.Role),
			Content: bridgetypes.MessageText(m),
		})
	}
	body := requestBody{
		Model:       cfg.UpstreamModel,
		Messages:    messages,
		System:      req.SystemText(),
		Stream:      stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	return json.Marshal(body)
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ParseResponse implements upstream.Adapter.
func (Adapter) ParseResponse(body []byte) (upstream.Response, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return upstream.Response{}, fmt.Errorf("decode anthropic response: %w", err)
	}
	var text string
	for _, c := range resp.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	return upstream.Response{Text: text}, nil
}

type contentBlockDelta struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

type decoder struct {
	parser *streaming.SSEParser
}

// NewStreamDecoder implements upstream.Adapter. The upstream frames each
// event as "event: <type>\ndata: <json>\n\n"; the shared SSE parser pairs
// the event name with its following data line, and tolerates both CRLF and
// LF line endings and incomplete tail lines across reads.
func (Adapter) NewStreamDecoder(body io.Reader) upstream.StreamDecoder {
	return &decoder{parser: streaming.NewSSEParser(body)}
}

// Next implements upstream.StreamDecoder.
func (d *decoder) Next() (upstream.Chunk, error) {
	for {
		ev, err := d.parser.Next()
		if err != nil {
			return upstream.Chunk{}, err
		}
		switch ev.Event {
		case "message_stop":
			return upstream.Chunk{End: true}, nil
		case "content_block_delta":
			var cbd contentBlockDelta
			if err := json.Unmarshal([]byte(ev.Data), &cbd); err != nil {
				continue
			}
			if cbd.Delta.Type == "text_delta" {
				return upstream.Chunk{Text: cbd.Delta.Text}, nil
			}
			continue
		default:
			continue
		}
	}
}
