// Package sseout implements the Claude SSE writer (C6): a stateful emitter
// of Anthropic Messages API events that enforces block-index discipline
// (every content_block_delta/_stop targets an index already opened by a
// content_block_start, indices increase monotonically from zero, and every
// opened block is closed before message_stop).
package sseout

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/relaybridge/toolbridge/pkg/tokencount"
)

// Event is the subset of parser-event shape the writer consumes. It is a
// local type, rather than an import of streamparser.Event, so the retry
// controller can hand the writer a synthesized ToolCall without either
// package depending on the other.
type Event struct {
	Kind     Kind
	Text     string
	Thinking string
	ToolName string
	ToolArgs map[string]interface{}
}

// Kind discriminates Event's payload.
type Kind int

const (
	KindText Kind = iota
	KindThinking
	KindToolCall
	KindEnd
)

const (
	thinkingChunkSize  = 5
	thinkingChunkPause = 10 * time.Millisecond
	inputJSONChunkSize = 5
)

// Sink is the minimal contract the writer needs from its transport: write
// one already-framed SSE event. Satisfied by *streaming.SSEWriter.
type Sink interface {
	WriteNamedEvent(eventType, data string) error
}

// Writer owns one response's outgoing event stream.
type Writer struct {
	sink   Sink
	mu     sync.Mutex
	closed bool

	requestID      string
	model          string
	tokenMultiplier float64
	aggregationMS   int

	nextBlockIndex int
	textIndex      int
	textOpen       bool
	thinkingIndex  int
	thinkingOpen   bool
	hasToolCalls   bool
	finished       bool

	pendingText strings.Builder
	flushTimer  *time.Timer

	outputTokens int
}

// Options configures a Writer.
type Options struct {
	RequestID             string
	Model                 string
	TokenMultiplier       float64
	AggregationIntervalMS int
}

// New returns a Writer bound to sink. Callers should call Init before
// anything else.
func New(sink Sink, opts Options) *Writer {
	mult := opts.TokenMultiplier
	if mult <= 0 || math.IsNaN(mult) || math.IsInf(mult, 0) {
		mult = 1.0
	}
	model := opts.Model
	if model == "" {
		model = "claude-proxy"
	}
	return &Writer{
		sink:            sink,
		requestID:       opts.RequestID,
		model:           model,
		tokenMultiplier: mult,
		aggregationMS:   opts.AggregationIntervalMS,
		textIndex:       -1,
		thinkingIndex:   -1,
	}
}

// Init emits message_start followed by ping, with the given pre-computed
// input token count.
func (w *Writer) Init(inputTokens int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            "msg_" + w.requestID,
			"type":          "message",
			"role":          "assistant",
			"model":         w.model,
			"content":       []interface{}{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": map[string]interface{}{
				"input_tokens":  inputTokens,
				"output_tokens": 0,
			},
		},
	}
	if err := w.writeJSON("message_start", msg); err != nil {
		return err
	}
	return w.writeJSON("ping", map[string]interface{}{"type": "ping"})
}

// HandleEvents processes an ordered sequence of parser events, producing
// the corresponding Anthropic SSE frames. The events parameter uses the
// package-local Event type rather than streamparser.Event, so the retry
// controller, which synthesizes ToolCall events of its own, can build
// them directly (see Event).
func (w *Writer) HandleEvents(events []Event) error {
	for _, e := range events {
		if err := w.handleEvent(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) handleEvent(e Event) error {
	switch e.Kind {
	case KindText:
		return w.appendText(e.Text)
	case KindThinking:
		return w.writeThinking(e.Thinking)
	case KindToolCall:
		return w.writeToolCall(e.ToolName, e.ToolArgs)
	case KindEnd:
		return nil // End is handled explicitly via Finish
	}
	return nil
}

// appendText buffers text in the aggregator, flushing immediately if no
// aggregation window is configured, or scheduling a flush timer otherwise.
func (w *Writer) appendText(text string) error {
	if text == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.closeThinkingLocked(); err != nil {
		return err
	}

	w.pendingText.WriteString(text)

	if w.aggregationMS <= 0 {
		return w.flushTextLocked()
	}
	if w.flushTimer == nil {
		w.flushTimer = time.AfterFunc(time.Duration(w.aggregationMS)*time.Millisecond, func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			_ = w.flushTextLocked()
		})
	}
	return nil
}

// flushTextLocked emits pendingText as a text_delta, opening a text block
// first if none is open. Callers must hold w.mu.
func (w *Writer) flushTextLocked() error {
	if w.flushTimer != nil {
		w.flushTimer.Stop()
		w.flushTimer = nil
	}
	if w.pendingText.Len() == 0 {
		return nil
	}
	text := w.pendingText.String()
	w.pendingText.Reset()

	if !w.textOpen {
		w.textIndex = w.nextBlockIndex
		w.nextBlockIndex++
		if err := w.writeJSON("content_block_start", map[string]interface{}{
			"type":  "content_block_start",
			"index": w.textIndex,
			"content_block": map[string]interface{}{
				"type": "text",
				"text": "",
			},
		}); err != nil {
			return err
		}
		w.textOpen = true
	}

	if err := w.writeJSON("content_block_delta", map[string]interface{}{
		"type":  "content_block_delta",
		"index": w.textIndex,
		"delta": map[string]interface{}{
			"type": "text_delta",
			"text": text,
		},
	}); err != nil {
		return err
	}
	w.outputTokens += tokencount.Count(text, "cl100k_base")
	return nil
}

// Flush forces the pending text aggregator to emit immediately.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushTextLocked()
}

func (w *Writer) closeTextLocked() error {
	if err := w.flushTextLocked(); err != nil {
		return err
	}
	if !w.textOpen {
		return nil
	}
	w.textOpen = false
	return w.writeJSON("content_block_stop", map[string]interface{}{
		"type":  "content_block_stop",
		"index": w.textIndex,
	})
}

func (w *Writer) closeThinkingLocked() error {
	if !w.thinkingOpen {
		return nil
	}
	if err := w.writeJSON("content_block_delta", map[string]interface{}{
		"type":  "content_block_delta",
		"index": w.thinkingIndex,
		"delta": map[string]interface{}{
			"type":      "signature_delta",
			"signature": "",
		},
	}); err != nil {
		return err
	}
	w.thinkingOpen = false
	return w.writeJSON("content_block_stop", map[string]interface{}{
		"type":  "content_block_stop",
		"index": w.thinkingIndex,
	})
}

// writeThinking flushes pending text, closes any open text block, opens a
// thinking block, and streams the content as ~5-char chunks with a short
// inter-chunk pause to simulate streaming UX.
func (w *Writer) writeThinking(content string) error {
	w.mu.Lock()
	if err := w.closeTextLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.thinkingOpen {
		w.thinkingIndex = w.nextBlockIndex
		w.nextBlockIndex++
		if err := w.writeJSON("content_block_start", map[string]interface{}{
			"type":  "content_block_start",
			"index": w.thinkingIndex,
			"content_block": map[string]interface{}{
				"type":      "thinking",
				"thinking":  "",
				"signature": "",
			},
		}); err != nil {
			w.mu.Unlock()
			return err
		}
		w.thinkingOpen = true
	}
	index := w.thinkingIndex
	w.outputTokens += tokencount.Count(content, "cl100k_base")
	w.mu.Unlock()

	for i := 0; i < len(content); i += thinkingChunkSize {
		end := i + thinkingChunkSize
		if end > len(content) {
			end = len(content)
		}
		if err := w.writeJSON("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": index,
			"delta": map[string]interface{}{
				"type":     "thinking_delta",
				"thinking": content[i:end],
			},
		}); err != nil {
			return err
		}
		if end < len(content) {
			time.Sleep(thinkingChunkPause)
		}
	}
	return nil
}

// writeToolCall flushes and closes text/thinking blocks, opens a tool_use
// block and streams the serialized arguments as input_json_delta chunks.
func (w *Writer) writeToolCall(name string, args map[string]interface{}) error {
	w.mu.Lock()
	if err := w.closeTextLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.closeThinkingLocked(); err != nil {
		w.mu.Unlock()
		return err
	}

	index := w.nextBlockIndex
	w.nextBlockIndex++
	w.hasToolCalls = true
	toolID := "toolu_" + randomAlnum(12)

	if err := w.writeJSON("content_block_start", map[string]interface{}{
		"type":  "content_block_start",
		"index": index,
		"content_block": map[string]interface{}{
			"type":  "tool_use",
			"id":    toolID,
			"name":  name,
			"input": map[string]interface{}{},
		},
	}); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	w.outputTokens += tokencount.Count(string(argsJSON), "cl100k_base")

	s := string(argsJSON)
	for i := 0; i < len(s); i += inputJSONChunkSize {
		end := i + inputJSONChunkSize
		if end > len(s) {
			end = len(s)
		}
		if err := w.writeJSON("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": index,
			"delta": map[string]interface{}{
				"type":         "input_json_delta",
				"partial_json": s[i:end],
			},
		}); err != nil {
			return err
		}
	}

	return w.writeJSON("content_block_stop", map[string]interface{}{
		"type":  "content_block_stop",
		"index": index,
	})
}

// Ping emits a keepalive ping frame, used by the retry controller while it
// is round-tripping a repair prompt to the upstream.
func (w *Writer) Ping() error {
	return w.writeJSON("ping", map[string]interface{}{"type": "ping"})
}

// Finish flushes and closes any open blocks, then emits message_delta with
// the final stop_reason and usage, followed by message_stop.
func (w *Writer) Finish() error {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return nil
	}
	if err := w.closeTextLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.closeThinkingLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.finished = true

	stopReason := "end_turn"
	if w.hasToolCalls {
		stopReason = "tool_use"
	}
	outputTokens := int(math.Ceil(float64(w.outputTokens) * w.tokenMultiplier))
	if outputTokens < 1 {
		outputTokens = 1
	}
	w.mu.Unlock()

	if err := w.writeJSON("message_delta", map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{
			"stop_reason":   stopReason,
			"stop_sequence": nil,
		},
		"usage": map[string]interface{}{
			"output_tokens": outputTokens,
		},
	}); err != nil {
		return err
	}
	return w.writeJSON("message_stop", map[string]interface{}{"type": "message_stop"})
}

// WriteError emits a terminal error SSE frame. Callers must not write
// further frames after this.
func (w *Writer) WriteError(errType, message string) error {
	return w.writeJSON("error", map[string]interface{}{
		"error": map[string]interface{}{
			"type":    errType,
			"message": message,
		},
	})
}

// TotalOutputTokens returns the running output-token accumulation (raw,
// before the finish-time token multiplier is applied).
func (w *Writer) TotalOutputTokens() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outputTokens
}

func (w *Writer) writeJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", eventType, err)
	}
	return w.sink.WriteNamedEvent(eventType, string(data))
}
