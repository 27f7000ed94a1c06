package sseout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedFrame struct {
	eventType string
	data      map[string]interface{}
}

type fakeSink struct {
	frames []recordedFrame
}

func (s *fakeSink) WriteNamedEvent(eventType, data string) error {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return err
	}
	s.frames = append(s.frames, recordedFrame{eventType: eventType, data: parsed})
	return nil
}

func (s *fakeSink) types() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.eventType
	}
	return out
}

func newTestWriter(sink Sink) *Writer {
	return New(sink, Options{RequestID: "req1", Model: "claude-proxy"})
}

func TestWriter_TextOnlyFlow(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(sink)

	require.NoError(t, w.Init(10))
	require.NoError(t, w.HandleEvents([]Event{{Kind: KindText, Text: "hello"}}))
	require.NoError(t, w.Finish())

	assert.Equal(t, []string{
		"message_start", "ping",
		"content_block_start", "content_block_delta", "content_block_stop",
		"message_delta", "message_stop",
	}, sink.types())

	delta := sink.frames[3].data["delta"].(map[string]interface{})
	assert.Equal(t, "hello", delta["text"])

	msgDelta := sink.frames[5].data["delta"].(map[string]interface{})
	assert.Equal(t, "end_turn", msgDelta["stop_reason"])
}

func TestWriter_ToolCallFlow(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(sink)

	require.NoError(t, w.Init(10))
	require.NoError(t, w.HandleEvents([]Event{
		{Kind: KindToolCall, ToolName: "get_weather", ToolArgs: map[string]interface{}{"city": "NYC"}},
	}))
	require.NoError(t, w.Finish())

	types := sink.types()
	assert.Contains(t, types, "content_block_start")
	assert.Contains(t, types, "content_block_stop")

	msgDelta := sink.frames[len(sink.frames)-2].data["delta"].(map[string]interface{})
	assert.Equal(t, "tool_use", msgDelta["stop_reason"])
}

func TestWriter_BlockIndicesIncreaseMonotonically(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(sink)

	require.NoError(t, w.Init(0))
	require.NoError(t, w.HandleEvents([]Event{
		{Kind: KindText, Text: "intro "},
		{Kind: KindThinking, Thinking: "reasoning"},
		{Kind: KindToolCall, ToolName: "x", ToolArgs: map[string]interface{}{}},
	}))
	require.NoError(t, w.Finish())

	var seenIndices []float64
	for _, f := range sink.frames {
		if f.eventType == "content_block_start" {
			seenIndices = append(seenIndices, f.data["index"].(float64))
		}
	}
	require.Len(t, seenIndices, 3)
	assert.Equal(t, []float64{0, 1, 2}, seenIndices)
}

func TestWriter_FinishIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(sink)
	require.NoError(t, w.Init(0))
	require.NoError(t, w.Finish())
	before := len(sink.frames)
	require.NoError(t, w.Finish())
	assert.Equal(t, before, len(sink.frames), "a second Finish must not emit more frames")
}

func TestWriter_EmptyTextEventIsANoop(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(sink)
	require.NoError(t, w.Init(0))
	require.NoError(t, w.HandleEvents([]Event{{Kind: KindText, Text: ""}}))
	require.NoError(t, w.Finish())

	for _, f := range sink.frames {
		assert.NotEqual(t, "content_block_start", f.eventType)
	}
}
