// Package upstream defines the bidirectional protocol-adapter contract
// (C4): building an outbound request for a configured upstream and reading
// its response back, for either OpenAI-chat or Anthropic-messages wire
// dialects.
package upstream

import (
	"io"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

// Chunk is one decoded increment of an upstream's SSE stream.
type Chunk struct {
	Text      string // visible assistant text delta
	Reasoning string // upstream-native thinking delta, fed verbatim to the parser
	End       bool   // true when this chunk signals stream completion
}

// StreamDecoder pulls successive Chunks from an upstream's response body.
// Next returns io.EOF once the underlying stream is exhausted.
type StreamDecoder interface {
	Next() (Chunk, error)
}

// Response is a fully-read non-streaming upstream reply.
type Response struct {
	Text      string
	Reasoning string
}

// Adapter is the per-protocol capability set: request framing, response
// parsing and stream decoding for one upstream wire dialect.
type Adapter interface {
	Name() string
	BuildHeaders(cfg bridgetypes.UpstreamConfig) map[string]string
	BuildRequestBody(req bridgetypes.ClientRequest, cfg bridgetypes.UpstreamConfig, stream bool) ([]byte, error)
	ParseResponse(body []byte) (Response, error)
	NewStreamDecoder(body io.Reader) StreamDecoder
}

// Registry maps a protocol name to its Adapter implementation.
type Registry map[bridgetypes.Protocol]Adapter

// For returns the adapter registered for cfg.Protocol, defaulting to
// OpenAI's dialect when the protocol is unset or unrecognized, since that
// is this proxy's most common upstream shape.
func (r Registry) For(protocol bridgetypes.Protocol) Adapter {
	if a, ok := r[protocol]; ok {
		return a
	}
	return r[bridgetypes.ProtocolOpenAI]
}
