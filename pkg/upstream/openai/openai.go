// Package openai implements the OpenAI-chat wire dialect of the C4
// protocol adapter: request framing, response parsing and SSE chunk
// decoding against the Chat Completions streaming format.
package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/providerutils/streaming"
	"github.com/relaybridge/toolbridge/pkg/upstream"
)

// Adapter implements upstream.Adapter for OpenAI Chat Completions.
type Adapter struct{}

// New returns the OpenAI protocol adapter.
func New() Adapter { return Adapter{} }

// Name implements upstream.Adapter.
func (Adapter) Name() string { return "openai" }

// BuildHeaders implements upstream.Adapter.
func (Adapter) BuildHeaders(cfg bridgetypes.UpstreamConfig) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if cfg.APIKey != "" {
		h["Authorization"] = "Bearer " + cfg.APIKey
	}
	return h
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

// BuildRequestBody implements upstream.Adapter. Claude-shaped content
// blocks flatten to strings, JSON-encoding non-text blocks in place.
func (Adapter) BuildRequestBody(req bridgetypes.ClientRequest, cfg bridgetypes.UpstreamConfig, stream bool) ([]byte, error) {
	var messages []chatMessage
	if sys := req.SystemText(); sys != "" {
		messages = append(messages, chatMessage{Role: "system", Content: sys})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{
			Role:    string(m.Role),
			Content: bridgetypes.MessageText(m),
		})
	}

	body := requestBody{
		Model:       cfg.UpstreamModel,
		Messages:    messages,
		Stream:      stream,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	return json.Marshal(body)
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ParseResponse implements upstream.Adapter.
func (Adapter) ParseResponse(body []byte) (upstream.Response, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return upstream.Response{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return upstream.Response{}, nil
	}
	return upstream.Response{Text: resp.Choices[0].Message.Content}, nil
}

type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type decoder struct {
	parser *streaming.SSEParser
}

// NewStreamDecoder implements upstream.Adapter.
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
		data := strings.TrimSpace(ev.Data)
		if data == "" {
			continue
		}
		if streaming.IsStreamDone(ev) || data == "[DONE]" {
			return upstream.Chunk{End: true}, nil
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			// Malformed line: skip it, the caller logs and continues.
			continue
		}
		if len(delta.Choices) == 0 {
			continue
		}
		c := delta.Choices[0]
		return upstream.Chunk{
			Text:      c.Delta.Content,
			Reasoning: c.Delta.ReasoningContent,
		}, nil
	}
}
