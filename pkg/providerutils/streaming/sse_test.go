package streaming

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEParser_PairsEventAndData(t *testing.T) {
	body := "event: content_block_delta\ndata: {\"a\":1}\n\n"
	p := NewSSEParser(strings.NewReader(body))

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "content_block_delta", ev.Event)
	assert.Equal(t, `{"a":1}`, ev.Data)

	_, err = p.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEParser_MultiLineData(t *testing.T) {
	body := "data: line one\ndata: line two\n\n"
	p := NewSSEParser(strings.NewReader(body))

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", ev.Data)
}

func TestSSEParser_IgnoresCommentLines(t *testing.T) {
	body := ": this is a comment\ndata: real\n\n"
	p := NewSSEParser(strings.NewReader(body))

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "real", ev.Data)
}

func TestIsStreamDone(t *testing.T) {
	assert.True(t, IsStreamDone(&SSEEvent{Data: "[DONE]"}))
	assert.True(t, IsStreamDone(&SSEEvent{Event: "done"}))
	assert.False(t, IsStreamDone(&SSEEvent{Data: "hello"}))
}

func TestSSEWriter_WriteNamedEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(&buf)
	require.NoError(t, w.WriteNamedEvent("message_start", `{"type":"message_start"}`))

	assert.Equal(t, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n", buf.String())
}

func TestSSEParser_RoundTripsWithSSEWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(&buf)
	require.NoError(t, w.WriteNamedEvent("ping", `{"type":"ping"}`))
	require.NoError(t, w.WriteNamedEvent("message_stop", `{"type":"message_stop"}`))

	p := NewSSEParser(&buf)
	var events []*SSEEvent
	for {
		ev, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "ping", events[0].Event)
	assert.Equal(t, "message_stop", events[1].Event)
}
