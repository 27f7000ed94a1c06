// Package forwarder composes the channel resolver, prompt injector,
// upstream adapters, stream parser, SSE writer and retry controller (C2-C7,
// C9) into the two end-to-end request flows this proxy offers: streaming
// and non-streaming /v1/messages.
package forwarder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/relaybridge/toolbridge/pkg/bridgeerrors"
	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/internal/httpclient"
	"github.com/relaybridge/toolbridge/pkg/logging"
	"github.com/relaybridge/toolbridge/pkg/providerutils/streaming"
	"github.com/relaybridge/toolbridge/pkg/retrycontroller"
	"github.com/relaybridge/toolbridge/pkg/sseout"
	"github.com/relaybridge/toolbridge/pkg/streamparser"
	"github.com/relaybridge/toolbridge/pkg/telemetry"
	"github.com/relaybridge/toolbridge/pkg/tokencount"
	"github.com/relaybridge/toolbridge/pkg/upstream"
)

// Options configures a Forwarder.
type Options struct {
	Registry              upstream.Registry
	TimeoutMS             int
	AggregationIntervalMS int
	TokenMultiplier       float64
	RetryOptions          retrycontroller.Options
	Telemetry             *telemetry.Settings // nil disables tracing
}

// Forwarder drives one resolved RequestContext through an upstream adapter
// to completion, in either streaming or non-streaming mode.
type Forwarder struct {
	registry        upstream.Registry
	timeout         time.Duration
	aggregationMS   int
	tokenMultiplier float64
	retryOptions    retrycontroller.Options
	telemetry       *telemetry.Settings
}

// New returns a Forwarder bound to opts.
func New(opts Options) *Forwarder {
	timeout := time.Duration(opts.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Forwarder{
		registry:        opts.Registry,
		timeout:         timeout,
		aggregationMS:   opts.AggregationIntervalMS,
		tokenMultiplier: opts.TokenMultiplier,
		retryOptions:    opts.RetryOptions,
		telemetry:       opts.Telemetry,
	}
}

// caller adapts one resolved upstream into the retrycontroller.Caller
// contract: a single non-streaming round trip against the same endpoint.
type caller struct {
	client    *httpclient.Client
	adapter   upstream.Adapter
	cfg       bridgetypes.UpstreamConfig
	rc        bridgetypes.RequestContext
	telemetry *telemetry.Settings
}

func (c *caller) CallNonStreaming(ctx context.Context, body []byte) (upstream.Response, error) {
	tracer := telemetry.GetTracer(c.telemetry)
	resp, err := telemetry.RecordSpan(ctx, tracer, telemetry.SpanOptions{
		Name:        "toolbridge.upstream.call",
		Attributes:  telemetry.GetBaseAttributes(c.rc, c.telemetry, nil),
		EndWhenDone: true,
	}, func(ctx context.Context, _ trace.Span) (*httpclient.Response, error) {
		return c.client.Do(ctx, httpclient.Request{
			Method:  http.MethodPost,
			Headers: c.adapter.BuildHeaders(c.cfg),
			Body:    json.RawMessage(body),
		})
	})
	if err != nil {
		return upstream.Response{}, &bridgeerrors.UpstreamReadError{Cause: err}
	}
	if resp.StatusCode >= 400 {
		return upstream.Response{}, &bridgeerrors.UpstreamHTTPError{
			Status:      resp.StatusCode,
			BodySnippet: snippet(resp.Body),
		}
	}
	return c.adapter.ParseResponse(resp.Body)
}

func snippet(body []byte) string {
	const max = 300
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

func newClient(cfg bridgetypes.UpstreamConfig, timeout time.Duration) *httpclient.Client {
	return httpclient.NewClient(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
	})
}

// Stream drives the streaming /v1/messages path: it calls the upstream with
// stream=true, feeds every chunk through the character-fed parser, mirrors
// parser events onto an Anthropic SSE writer, and runs the repair loop
// in-band on a malformed tool call. w must support http.Flusher for the
// client to see incremental frames.
func (f *Forwarder) Stream(ctx context.Context, rc bridgetypes.RequestContext, w http.ResponseWriter) error {
	adapter := f.registry.For(rc.Upstream.Protocol)
	client := newClient(rc.Upstream, f.timeout)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := adapter.BuildRequestBody(rc.Enriched, rc.Upstream, true)
	if err != nil {
		return fmt.Errorf("build request body: %w", err)
	}

	// Headers and the 200 status are committed before the upstream dial so
	// that a connect failure (refused connection, DNS failure, the outer
	// timeout elapsing before any bytes arrive) still has a live SSE
	// response to report itself on, instead of falling through to Go's
	// default bare 200 when nothing was ever written.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := flushingSink{sse: streaming.NewSSEWriter(w), flusher: flusherOf(w)}
	writer := sseout.New(sink, sseout.Options{
		RequestID:             rc.RequestID,
		Model:                 rc.Original.Model,
		TokenMultiplier:       f.tokenMultiplier,
		AggregationIntervalMS: f.aggregationMS,
	})

	tracer := telemetry.GetTracer(f.telemetry)
	httpResp, err := telemetry.RecordSpan(ctx, tracer, telemetry.SpanOptions{
		Name:        "toolbridge.upstream.stream",
		Attributes:  telemetry.GetBaseAttributes(rc, f.telemetry, nil),
		EndWhenDone: true,
	}, func(ctx context.Context, _ trace.Span) (*http.Response, error) {
		return client.DoStream(ctx, httpclient.Request{
			Method:  http.MethodPost,
			Headers: adapter.BuildHeaders(rc.Upstream),
			Body:    json.RawMessage(body),
		})
	})
	if err != nil {
		connErr := &bridgeerrors.UpstreamReadError{Cause: err}
		_ = writer.WriteError("api_error", connErr.Error())
		if flusher := flusherOf(w); flusher != nil {
			flusher.Flush()
		}
		return connErr
	}
	defer httpResp.Body.Close()

	inputTokens := tokencount.Count(bridgetypes.PromptText(rc.Original), rc.Original.Model)
	if err := writer.Init(inputTokens); err != nil {
		return err
	}

	decoder := adapter.NewStreamDecoder(httpResp.Body)
	parser := streamparser.New(rc.Delimiter)
	c := &caller{client: client, adapter: adapter, cfg: rc.Upstream, rc: rc, telemetry: f.telemetry}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := decoder.Next()
		if err == io.EOF {
			parser.Finish()
			break
		}
		if err != nil {
			logging.Error("upstream stream read failed", logging.Err(err))
			return writer.WriteError("upstream_error", err.Error())
		}
		if chunk.End {
			parser.Finish()
			break
		}
		if chunk.Reasoning != "" {
			parser.FeedReasoning(chunk.Reasoning)
		}
		for i := 0; i < len(chunk.Text); i++ {
			parser.FeedChar(chunk.Text[i])
		}

		if err := dispatch(ctx, parser.ConsumeEvents(), writer, f.retryOptions, c, adapter, rc); err != nil {
			return err
		}
	}

	if err := dispatch(ctx, parser.ConsumeEvents(), writer, f.retryOptions, c, adapter, rc); err != nil {
		return err
	}

	return writer.Finish()
}

// dispatch converts streamparser events to sseout events, handing any
// ToolCallFailed off to the retry controller instead of forwarding it
// verbatim.
func dispatch(
	ctx context.Context,
	events []streamparser.Event,
	writer *sseout.Writer,
	retryOpts retrycontroller.Options,
	c *caller,
	adapter upstream.Adapter,
	rc bridgetypes.RequestContext,
) error {
	for _, ev := range events {
		switch ev.Kind {
		case streamparser.KindText:
			if err := writer.HandleEvents([]sseout.Event{{Kind: sseout.KindText, Text: ev.Text}}); err != nil {
				return err
			}
		case streamparser.KindThinking:
			if err := writer.HandleEvents([]sseout.Event{{Kind: sseout.KindThinking, Thinking: ev.Thinking}}); err != nil {
				return err
			}
		case streamparser.KindToolCall:
			if err := writer.HandleEvents([]sseout.Event{{
				Kind:     sseout.KindToolCall,
				ToolName: ev.ToolName,
				ToolArgs: ev.ToolArgs,
			}}); err != nil {
				return err
			}
		case streamparser.KindToolCallFailed:
			delim := bridgetypes.TriggerDelimiter{}
			if rc.Delimiter != nil {
				delim = *rc.Delimiter
			}
			if err := retrycontroller.Run(ctx, retryOpts, c, adapter, rc.Upstream, rc.Enriched, delim, ev, writer); err != nil {
				return err
			}
		case streamparser.KindEnd:
			// Finish is called explicitly by the caller once the loop ends.
		}
	}
	return nil
}

// flusherOf extracts an http.Flusher from w if it implements one, so SSE
// frames reach the client incrementally rather than buffering until the
// handler returns.
func flusherOf(w http.ResponseWriter) http.Flusher {
	if f, ok := w.(http.Flusher); ok {
		return f
	}
	return nil
}

// flushingSink wraps the retained SSE writer and flushes the underlying
// ResponseWriter after every frame, satisfying sseout.Sink.
type flushingSink struct {
	sse     *streaming.SSEWriter
	flusher http.Flusher
}

func (s flushingSink) WriteNamedEvent(eventType, data string) error {
	if err := s.sse.WriteNamedEvent(eventType, data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
