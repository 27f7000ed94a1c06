// Package retrycontroller implements the bounded repair loop (C7): on a
// malformed tool call, it re-prompts the upstream with a correction turn,
// keeping the client's SSE connection alive with pings, and either
// synthesizes a well-formed ToolCall event for the writer or degrades the
// failed content to plain text once retries are exhausted.
package retrycontroller

import (
	"context"
	"fmt"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/sseout"
	"github.com/relaybridge/toolbridge/pkg/streamparser"
	"github.com/relaybridge/toolbridge/pkg/upstream"
)

const correctionInstruction = `Your previous response did not follow the required tool-call format. ` +
	`You must print the trigger signal on its own line immediately before the <invoke> block, ` +
	`give the tool its "name" attribute, and close every <parameter> and </invoke> tag. Try again.`

// Caller is what the retry controller needs from the forwarder: a way to
// perform one non-streaming upstream call with the same UpstreamConfig.
type Caller interface {
	CallNonStreaming(ctx context.Context, body []byte) (upstream.Response, error)
}

// Options configures one retry run.
type Options struct {
	MaxRetries int
	KeepAlive  bool
}

// DefaultOptions is the conservative default: three attempts, pings on.
func DefaultOptions() Options {
	return Options{MaxRetries: 3, KeepAlive: true}
}

// Resolution is the outcome of the repair loop: either a well-formed tool
// call, or the original failed content degraded to plain text.
type Resolution struct {
	Resolved bool // true iff ToolName/ToolArgs are a synthesized success
	ToolName string
	ToolArgs map[string]interface{}
	Text     string // set iff !Resolved: the degraded text to emit
}

// Ping is the keepalive hook the caller's transport exposes. Streaming
// callers pass writer.Ping; non-streaming callers that have no live SSE
// connection to keep alive pass a no-op.
type Ping func() error

// Resolve executes the bounded repair loop for one failed tool call and
// returns the outcome without touching any writer, so both the streaming
// and non-streaming forwarder paths can share it.
func Resolve(
	ctx context.Context,
	opts Options,
	caller Caller,
	adapter upstream.Adapter,
	cfg bridgetypes.UpstreamConfig,
	original bridgetypes.ClientRequest,
	delimiter bridgetypes.TriggerDelimiter,
	failed streamparser.Event,
	ping Ping,
) (Resolution, error) {
	priorText := failed.PriorText
	failedContent := failed.FailedContent

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if opts.KeepAlive && ping != nil {
			if err := ping(); err != nil {
				return Resolution{}, err
			}
		}

		retryReq := buildRetryRequest(original, priorText, failedContent)
		body, err := adapter.BuildRequestBody(retryReq, cfg, false)
		if err != nil {
			return Resolution{}, fmt.Errorf("build retry request: %w", err)
		}

		resp, err := caller.CallNonStreaming(ctx, body)
		if err != nil {
			// Upstream failure mid-retry: treat as exhausted, not fatal,
			// so the client still gets a terminal answer.
			break
		}

		parser := streamparser.New(&delimiter)
		for i := 0; i < len(resp.Text); i++ {
			parser.FeedChar(resp.Text[i])
		}
		parser.Finish()

		for _, ev := range parser.ConsumeEvents() {
			if ev.Kind == streamparser.KindToolCall {
				return Resolution{Resolved: true, ToolName: ev.ToolName, ToolArgs: ev.ToolArgs}, nil
			}
			if ev.Kind == streamparser.KindToolCallFailed {
				// Seed the next attempt with this round's failure.
				priorText = ev.PriorText
				failedContent = ev.FailedContent
			}
		}
	}

	return Resolution{Resolved: false, Text: failedContent}, nil
}

// Run is Resolve plus a thin SSE-writing wrapper around its outcome, for
// the streaming forwarder path. The writer is passed only for the
// duration of this call and never retained.
func Run(
	ctx context.Context,
	opts Options,
	caller Caller,
	adapter upstream.Adapter,
	cfg bridgetypes.UpstreamConfig,
	original bridgetypes.ClientRequest,
	delimiter bridgetypes.TriggerDelimiter,
	failed streamparser.Event,
	writer *sseout.Writer,
) error {
	res, err := Resolve(ctx, opts, caller, adapter, cfg, original, delimiter, failed, writer.Ping)
	if err != nil {
		return err
	}
	if res.Resolved {
		return writer.HandleEvents([]sseout.Event{{
			Kind:     sseout.KindToolCall,
			ToolName: res.ToolName,
			ToolArgs: res.ToolArgs,
		}})
	}
	return writer.HandleEvents([]sseout.Event{{
		Kind: sseout.KindText,
		Text: res.Text,
	}})
}

// buildRetryRequest appends the malformed assistant turn and a correction
// instruction to the original conversation, per the repair algorithm.
func buildRetryRequest(original bridgetypes.ClientRequest, priorText, failedContent string) bridgetypes.ClientRequest {
	retry := original
	retry.Stream = false

	messages := make([]bridgetypes.Message, len(original.Messages), len(original.Messages)+2)
	copy(messages, original.Messages)

	messages = append(messages, bridgetypes.Message{
		Role: bridgetypes.RoleAssistant,
		Text: priorText + failedContent,
	})
	messages = append(messages, bridgetypes.Message{
		Role: bridgetypes.RoleUser,
		Text: correctionInstruction,
	})
	retry.Messages = messages

	return retry
}
