// Package tokencount implements the token-count facade (C8): count(text,
// model) -> non-negative integer, backed by a process-wide cache of BPE
// encoders keyed by normalized model name, falling back to a length-based
// estimate whenever an encoder cannot be built or used.
package tokencount

import (
	"math"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	mu      sync.RWMutex
	cache   = map[string]*tiktoken.Tiktoken{}
	closed  bool
)

// Count returns the token count of text under the encoding associated with
// model. It never returns a negative, NaN, or infinite value; on any
// encoder-construction or encode failure it falls back to
// ceil(len(text)/4).
func Count(text, model string) int {
	if text == "" {
		return 0
	}

	enc, ok := encoderFor(normalizeModel(model))
	if !ok {
		return fallbackEstimate(text)
	}

	tokens := enc.Encode(text, nil, nil)
	n := len(tokens)
	if n < 0 {
		return fallbackEstimate(text)
	}
	return n
}

func fallbackEstimate(text string) int {
	return int(math.Ceil(float64(len(text)) / 4.0))
}

// normalizeModel maps a client- or upstream-facing model name to a
// tiktoken encoding name. Claude model names have no public BPE table, so
// they're approximated with gpt-4's; gpt-4o, o1 and the empty name map to
// cl100k_base. Any other name is passed through unchanged for tiktoken to
// resolve.
func normalizeModel(model string) string {
	switch {
	case hasPrefix(model, "claude-"):
		return "gpt-4"
	case hasPrefix(model, "gpt-4o") || hasPrefix(model, "o1"):
		return "cl100k_base"
	case model == "":
		return "cl100k_base"
	default:
		return model
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// encoderFor returns the cached encoder for name, constructing and caching
// it on first use. name is tried as an encoding name, then as a model
// name; ok is false if neither yields an encoder, and that miss is cached
// too, so Count uses the length-based estimate for that name.
func encoderFor(name string) (*tiktoken.Tiktoken, bool) {
	mu.RLock()
	if closed {
		mu.RUnlock()
		return nil, false
	}
	if enc, found := cache[name]; found {
		mu.RUnlock()
		return enc, enc != nil
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if closed {
		return nil, false
	}
	if enc, found := cache[name]; found {
		return enc, enc != nil
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		enc, err = tiktoken.EncodingForModel(name)
	}
	if err != nil {
		cache[name] = nil
		return nil, false
	}
	cache[name] = enc
	return enc, true
}

// Shutdown releases the encoder cache. Safe to call once at process exit;
// subsequent Count calls fall back to the length-based estimate.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	cache = map[string]*tiktoken.Tiktoken{}
	closed = true
}
