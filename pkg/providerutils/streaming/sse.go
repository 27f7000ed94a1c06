// Package streaming implements the line-oriented SSE primitive shared by
// both directions of this proxy's wire traffic: pkg/upstream/openai and
// pkg/upstream/anthropic use SSEParser to decode whatever event-stream shape
// their upstream emits (OpenAI's data-only frames terminated by a
// "[DONE]" sentinel, Anthropic's named-event frames terminated by
// message_stop), and pkg/forwarder uses SSEWriter to frame the
// Anthropic-shaped events this proxy emits back to the client. One parser
// and one writer cover both legs because the SSE line grammar itself
// (field ":" value, blank line ends the event) never varies — only the
// field values each side puts in it do.
package streaming

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// SSEEvent is one parsed (or to-be-written) Server-Sent Event.
type SSEEvent struct {
	Event string
	Data  string
}

// SSEParser parses Server-Sent Events from an upstream response body.
type SSEParser struct {
	scanner *bufio.Scanner
	err     error
}

// NewSSEParser creates a new SSE parser for the given reader.
func NewSSEParser(r io.Reader) *SSEParser {
	return &SSEParser{
		scanner: bufio.NewScanner(r),
	}
}

// Next returns the next SSE event from the stream.
// Returns io.EOF when the stream is complete.
func (p *SSEParser) Next() (*SSEEvent, error) {
	if p.err != nil {
		return nil, p.err
	}

	event := &SSEEvent{}
	var dataLines []string

	for p.scanner.Scan() {
		line := p.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 || event.Event != "" {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			// Comment line (used by some upstreams as a keepalive), ignore.
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}

		field := line[:colonIdx]
		value := line[colonIdx+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}

		switch field {
		case "event":
			event.Event = value
		case "data":
			dataLines = append(dataLines, value)
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.err = err
		return nil, err
	}

	if len(dataLines) > 0 || event.Event != "" {
		event.Data = strings.Join(dataLines, "\n")
		return event, nil
	}

	p.err = io.EOF
	return nil, io.EOF
}

// Err returns any error that occurred during parsing, masking io.EOF since
// that's the expected end-of-stream signal callers check for via Next.
func (p *SSEParser) Err() error {
	if p.err == io.EOF {
		return nil
	}
	return p.err
}

// SSEWriter frames outgoing Server-Sent Events onto the client response.
type SSEWriter struct {
	writer io.Writer
}

// NewSSEWriter creates a new SSE writer.
func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{writer: w}
}

// WriteEvent writes one SSE event to the stream.
func (w *SSEWriter) WriteEvent(event SSEEvent) error {
	var buf bytes.Buffer

	if event.Event != "" {
		buf.WriteString("event: ")
		buf.WriteString(event.Event)
		buf.WriteByte('\n')
	}

	if event.Data != "" {
		for _, line := range strings.Split(event.Data, "\n") {
			buf.WriteString("data: ")
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}

	buf.WriteByte('\n')

	_, err := w.writer.Write(buf.Bytes())
	return err
}

// WriteNamedEvent writes an event with the given type and already-encoded
// JSON data. This is the only framing call pkg/sseout's Writer needs, so it
// is the shape pkg/sseout.Sink is defined against.
func (w *SSEWriter) WriteNamedEvent(eventType, data string) error {
	return w.WriteEvent(SSEEvent{
		Event: eventType,
		Data:  data,
	})
}

// IsStreamDone reports whether event signals the upstream stream has ended.
// OpenAI's chat-completions stream ends with a bare "data: [DONE]" frame
// (no event name); the Event-name check covers any upstream that instead
// names a terminal "done" event.
func IsStreamDone(event *SSEEvent) bool {
	return event.Data == "[DONE]" || event.Event == "done"
}
