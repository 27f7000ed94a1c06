package forwarder

import (
	"context"
	"fmt"
	"math"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/retrycontroller"
	"github.com/relaybridge/toolbridge/pkg/streamparser"
	"github.com/relaybridge/toolbridge/pkg/tokencount"
)

// MessageResponse is the Anthropic-shaped JSON body returned from the
// non-streaming /v1/messages path.
type MessageResponse struct {
	ID           string                     `json:"id"`
	Type         string                     `json:"type"`
	Role         string                     `json:"role"`
	Model        string                     `json:"model"`
	Content      []bridgetypes.ContentBlock `json:"content"`
	StopReason   string                     `json:"stop_reason"`
	StopSequence *string                    `json:"stop_sequence"`
	Usage        Usage                      `json:"usage"`
}

// Usage carries the Anthropic usage block.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Call drives the non-streaming /v1/messages path: one upstream round trip,
// a full parse of the returned text, and a repair loop run directly against
// Resolve (no SSE writer exists on this path) on a malformed tool call.
func (f *Forwarder) Call(ctx context.Context, rc bridgetypes.RequestContext) (MessageResponse, error) {
	adapter := f.registry.For(rc.Upstream.Protocol)
	client := newClient(rc.Upstream, f.timeout)
	c := &caller{client: client, adapter: adapter, cfg: rc.Upstream, rc: rc, telemetry: f.telemetry}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := adapter.BuildRequestBody(rc.Enriched, rc.Upstream, false)
	if err != nil {
		return MessageResponse{}, fmt.Errorf("build request body: %w", err)
	}

	resp, err := c.CallNonStreaming(ctx, body)
	if err != nil {
		return MessageResponse{}, err
	}

	var delim *bridgetypes.TriggerDelimiter
	if rc.Delimiter != nil {
		delim = rc.Delimiter
	}
	parser := streamparser.New(delim)
	for i := 0; i < len(resp.Text); i++ {
		parser.FeedChar(resp.Text[i])
	}
	if resp.Reasoning != "" {
		parser.FeedReasoning(resp.Reasoning)
	}
	parser.Finish()

	blocks, stopReason, outputText, err := f.resolveContent(ctx, parser.ConsumeEvents(), c, rc)
	if err != nil {
		return MessageResponse{}, err
	}

	inputTokens := tokencount.Count(bridgetypes.PromptText(rc.Original), rc.Original.Model)
	outputTokens := tokencount.Count(outputText, rc.Original.Model)
	outputTokens = int(math.Ceil(float64(outputTokens) * f.tokenMultiplier))
	if outputTokens < 1 {
		outputTokens = 1
	}

	return MessageResponse{
		ID:         "msg_" + rc.RequestID,
		Type:       "message",
		Role:       "assistant",
		Model:      rc.Original.Model,
		Content:    blocks,
		StopReason: stopReason,
		Usage:      Usage{InputTokens: inputTokens, OutputTokens: outputTokens},
	}, nil
}

// resolveContent turns the parser's event list into a content-block array,
// running the repair loop (via Resolve, not Run) on any malformed tool call
// since there is no SSE writer on this path.
func (f *Forwarder) resolveContent(
	ctx context.Context,
	events []streamparser.Event,
	c *caller,
	rc bridgetypes.RequestContext,
) ([]bridgetypes.ContentBlock, string, string, error) {
	var blocks []bridgetypes.ContentBlock
	var text string
	stopReason := "end_turn"

	for _, ev := range events {
		switch ev.Kind {
		case streamparser.KindText:
			text += ev.Text
			blocks = append(blocks, bridgetypes.TextBlock{Text: ev.Text})
		case streamparser.KindThinking:
			blocks = append(blocks, bridgetypes.ThinkingBlock{Thinking: ev.Thinking})
		case streamparser.KindToolCall:
			stopReason = "tool_use"
			blocks = append(blocks, bridgetypes.ToolUseBlock{
				ID:    "toolu_" + rc.RequestID,
				Name:  ev.ToolName,
				Input: ev.ToolArgs,
			})
		case streamparser.KindToolCallFailed:
			delim := bridgetypes.TriggerDelimiter{}
			if rc.Delimiter != nil {
				delim = *rc.Delimiter
			}
			res, err := retrycontroller.Resolve(ctx, f.retryOptions, c, f.registry.For(rc.Upstream.Protocol), rc.Upstream, rc.Enriched, delim, ev, noPing)
			if err != nil {
				return nil, "", "", err
			}
			if res.Resolved {
				stopReason = "tool_use"
				blocks = append(blocks, bridgetypes.ToolUseBlock{
					ID:    "toolu_" + rc.RequestID,
					Name:  res.ToolName,
					Input: res.ToolArgs,
				})
			} else {
				text += res.Text
				blocks = append(blocks, bridgetypes.TextBlock{Text: res.Text})
			}
		}
	}

	if len(blocks) == 0 {
		blocks = append(blocks, bridgetypes.TextBlock{Text: ""})
	}
	return blocks, stopReason, text, nil
}

func noPing() error { return nil }
