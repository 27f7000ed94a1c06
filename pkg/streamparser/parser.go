// Package streamparser implements the character-fed incremental parser
// (C5): a single-threaded, cooperative state machine that splits an
// upstream's assistant-text stream into Text, Thinking, ToolCall and
// ToolCallFailed events by watching for a per-request trigger signal and
// the <invoke>/<parameter> XML block that follows it.
//
// Multi-character markers are matched with a rolling window the length of
// the longest candidate marker: a partially matched prefix is held back
// and never emitted as text until it is either completed or refuted by a
// following character that cannot extend the match.
package streamparser

import (
	"encoding/json"
	"strings"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
)

// state names the parser's current region, mirroring the named states of
// the design: NORMAL, THINKING, and a collapsed TOOL_* region spanning
// TOOL_WAIT_INVOKE through TOOL_DONE (that whole span is driven by a
// single rolling search for the closing </invoke> marker, then parsed in
// one pass, since nothing in that region is ever re-exposed as text).
type state int

const (
	stateNormal state = iota
	stateThinking
	stateToolRegion
	stateIgnoring // after a tool call resolved; compliant upstreams stop here
)

// Parser is one instance per response.
type Parser struct {
	delimiter *bridgetypes.TriggerDelimiter

	st state

	window string // unclassified tail of input, held back pending a marker decision

	priorText strings.Builder // text emitted before TC_START, for ToolCallFailed
	toolRaw   strings.Builder // raw bytes from TC_START through what's consumed

	toolResolved bool // a ToolCall or ToolCallFailed has already been emitted

	events []Event
}

// New returns a Parser. delimiter is nil when the request carried no tools,
// in which case the parser only splits text and <thinking> blocks.
func New(delimiter *bridgetypes.TriggerDelimiter) *Parser {
	return &Parser{delimiter: delimiter}
}

// FeedChar consumes one character of the upstream's visible assistant text.
func (p *Parser) FeedChar(c byte) {
	if p.st == stateIgnoring {
		return
	}

	p.window += string(c)

	switch p.st {
	case stateNormal:
		p.driveNormal()
	case stateThinking:
		p.driveThinking()
	case stateToolRegion:
		p.driveToolRegion()
	}
}

// FeedReasoning appends an upstream-native thinking delta verbatim, bypassing
// the <thinking> tag scan (the upstream already told us out of band that
// this text is reasoning).
func (p *Parser) FeedReasoning(s string) {
	if s == "" {
		return
	}
	p.emit(Event{Kind: KindThinking, Thinking: s})
}

// Finish signals EOF. A tool region left unresolved at this point is
// malformed: the closing </invoke> never arrived.
func (p *Parser) Finish() {
	switch p.st {
	case stateNormal:
		p.flushNormalWindow(true)
	case stateThinking:
		// Unterminated <thinking>: flush whatever was buffered as thinking
		// content; there is no ToolCallFailed concept for thinking.
		if p.window != "" {
			p.emit(Event{Kind: KindThinking, Thinking: p.window})
			p.window = ""
		}
	case stateToolRegion:
		p.toolRaw.WriteString(p.window)
		p.window = ""
		p.failToolCall()
	}
	p.st = stateIgnoring
	p.emit(Event{Kind: KindEnd})
}

// ConsumeEvents drains and returns every event produced since the last
// call, in the order they became complete.
func (p *Parser) ConsumeEvents() []Event {
	out := p.events
	p.events = nil
	return out
}

// emit appends e, coalescing it into the previous event when both are Text
// (or both Thinking), so the characters fed between two ConsumeEvents calls
// come back as one event rather than one event per character.
func (p *Parser) emit(e Event) {
	if n := len(p.events); n > 0 && (e.Kind == KindText || e.Kind == KindThinking) && p.events[n-1].Kind == e.Kind {
		p.events[n-1].Text += e.Text
		p.events[n-1].Thinking += e.Thinking
		return
	}
	p.events = append(p.events, e)
}

// normalMarkers returns the set of full marker strings relevant to stateNormal,
// in priority order (thinking open always checked; TC_START only if a
// delimiter is configured for this request).
func (p *Parser) normalMarkers() []string {
	markers := []string{thinkingOpen}
	if p.delimiter != nil {
		markers = append(markers, p.delimiter.TCStart)
	}
	return markers
}

// driveNormal scans p.window for the earliest point a marker might start.
// Text strictly before that point is safe to emit; text from that point on
// is held until the match is confirmed or refuted.
func (p *Parser) driveNormal() {
	for {
		idx := potentialStartIndexAny(p.window, p.normalMarkers())
		if idx == -1 {
			p.flushNormalWindow(true)
			return
		}

		if idx > 0 {
			p.emitNormalText(p.window[:idx])
			p.window = p.window[idx:]
		}

		if p.delimiter != nil && strings.HasPrefix(p.window, p.delimiter.TCStart) {
			p.window = p.window[len(p.delimiter.TCStart):]
			p.toolRaw.Reset()
			p.toolRaw.WriteString(p.delimiter.TCStart)
			p.st = stateToolRegion
			p.driveToolRegion()
			return
		}

		if strings.HasPrefix(p.window, thinkingOpen) {
			p.window = p.window[len(thinkingOpen):]
			p.st = stateThinking
			p.driveThinking()
			return
		}

		// Window starts with a genuine partial match of some marker:
		// hold it back and wait for more input.
		return
	}
}

func (p *Parser) flushNormalWindow(force bool) {
	if p.window == "" {
		return
	}
	if force {
		p.emitNormalText(p.window)
		p.window = ""
	}
	// Non-forced calls never flush a held-back partial match; the caller
	// (driveNormal) already flushed everything safe to flush.
}

func (p *Parser) emitNormalText(text string) {
	if text == "" {
		return
	}
	p.priorText.WriteString(text)
	p.emit(Event{Kind: KindText, Text: text})
}

func (p *Parser) driveThinking() {
	for {
		idx := potentialStartIndex(p.window, thinkingClose)
		if idx == -1 {
			if p.window != "" {
				p.emit(Event{Kind: KindThinking, Thinking: p.window})
				p.window = ""
			}
			return
		}

		if idx > 0 {
			p.emit(Event{Kind: KindThinking, Thinking: p.window[:idx]})
			p.window = p.window[idx:]
		}

		if strings.HasPrefix(p.window, thinkingClose) {
			p.window = p.window[len(thinkingClose):]
			p.st = stateNormal
			p.driveNormal()
			return
		}

		return
	}
}

func (p *Parser) driveToolRegion() {
	invokeClose := invokeCloseMarker(p.delimiter)

	for {
		idx := potentialStartIndex(p.window, invokeClose)
		if idx == -1 {
			p.toolRaw.WriteString(p.window)
			p.window = ""
			return
		}

		if strings.HasPrefix(p.window[idx:], invokeClose) {
			consumedEnd := idx + len(invokeClose)
			p.toolRaw.WriteString(p.window[:consumedEnd])
			p.window = p.window[consumedEnd:]
			p.resolveToolCall()
			return
		}

		// idx marks where a partial match of </invoke> might be starting;
		// everything before it is unambiguously inside the tool region.
		p.toolRaw.WriteString(p.window[:idx])
		p.window = p.window[idx:]
		return
	}
}

func invokeCloseMarker(delim *bridgetypes.TriggerDelimiter) string {
	if delim != nil {
		return delim.InvokeClose
	}
	return "</invoke>"
}

func (p *Parser) resolveToolCall() {
	if p.toolResolved {
		p.st = stateIgnoring
		return
	}
	raw := p.toolRaw.String()
	name, args, malformed := parseInvoke(raw, *p.delimiter)
	if malformed {
		p.emitToolCallFailed(raw)
	} else {
		p.toolResolved = true
		p.emit(Event{Kind: KindToolCall, ToolName: name, ToolArgs: args})
	}
	p.st = stateIgnoring
}

func (p *Parser) failToolCall() {
	if p.toolResolved {
		return
	}
	p.emitToolCallFailed(p.toolRaw.String())
}

func (p *Parser) emitToolCallFailed(raw string) {
	if p.toolResolved {
		return
	}
	p.toolResolved = true
	p.emit(Event{
		Kind:          KindToolCallFailed,
		FailedContent: raw,
		PriorText:     p.priorText.String(),
	})
}

// parseInvoke parses the raw region captured from TC_START through the
// matched </invoke> (inclusive) into a tool name and argument map. It
// reports malformed when: the <invoke> tag has no name attribute, a
// <parameter> lacks a name, or the structure is otherwise not balanced.
func parseInvoke(raw string, delim bridgetypes.TriggerDelimiter) (name string, args map[string]interface{}, malformed bool) {
	body := strings.TrimPrefix(raw, delim.TCStart)
	body = strings.TrimLeft(body, " \t\r\n")

	if !strings.HasPrefix(body, delim.InvokeOpen) {
		return "", nil, true
	}
	body = body[len(delim.InvokeOpen):]

	closeQuote := strings.Index(body, `">`)
	if closeQuote == -1 {
		return "", nil, true
	}
	name = body[:closeQuote]
	if name == "" {
		return "", nil, true
	}
	body = body[closeQuote+2:]

	endIdx := strings.LastIndex(body, delim.InvokeClose)
	if endIdx == -1 {
		return "", nil, true
	}
	paramsRaw := body[:endIdx]
	if strings.Count(paramsRaw, "<parameter") != strings.Count(paramsRaw, delim.ParamOpen) {
		return "", nil, true // a <parameter> tag without a name attribute
	}

	args = map[string]interface{}{}
	rest := paramsRaw
	for {
		pIdx := strings.Index(rest, delim.ParamOpen)
		if pIdx == -1 {
			break
		}
		rest = rest[pIdx+len(delim.ParamOpen):]

		q := strings.Index(rest, `">`)
		if q == -1 {
			return "", nil, true
		}
		pname := rest[:q]
		if pname == "" {
			return "", nil, true
		}
		rest = rest[q+2:]

		endP := strings.Index(rest, delim.ParamClose)
		if endP == -1 {
			return "", nil, true
		}
		rawVal := rest[:endP]
		rest = rest[endP+len(delim.ParamClose):]

		var v interface{}
		if err := json.Unmarshal([]byte(rawVal), &v); err == nil {
			args[pname] = v
		} else {
			args[pname] = rawVal
		}
	}

	return name, args, false
}

// potentialStartIndex returns the earliest index in text at which marker
// either fully occurs, or a suffix of text is a non-empty prefix of
// marker (a partial match still pending completion). Returns -1 if
// neither.
func potentialStartIndex(text, marker string) int {
	if len(marker) == 0 {
		return -1
	}
	if idx := strings.Index(text, marker); idx != -1 {
		return idx
	}
	for i := 0; i < len(text); i++ {
		suffix := text[i:]
		if strings.HasPrefix(marker, suffix) {
			return i
		}
	}
	return -1
}

// potentialStartIndexAny is potentialStartIndex generalized over several
// candidate markers, returning the earliest (smallest-index) hold-back
// point across all of them.
func potentialStartIndexAny(text string, markers []string) int {
	best := -1
	for _, m := range markers {
		if idx := potentialStartIndex(text, m); idx != -1 {
			if best == -1 || idx < best {
				best = idx
			}
		}
	}
	return best
}
