package bridgetypes

import (
	"encoding/json"
	"strings"
)

// FlattenBlocks renders a message's content blocks as a single string,
// JSON-encoding any non-text block, for upstreams whose wire format takes
// only a string per message (OpenAI chat).
func FlattenBlocks(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if t, ok := b.(TextBlock); ok {
			parts = append(parts, t.Text)
			continue
		}
		if j, err := json.Marshal(b); err == nil {
			parts = append(parts, string(j))
		}
	}
	return strings.Join(parts, "\n")
}

// MessageText returns a message's content as a plain string regardless of
// whether it was supplied as a bare string or as content blocks.
func MessageText(m Message) string {
	if m.IsSimple() {
		return m.Text
	}
	return FlattenBlocks(m.Blocks)
}

// PromptText renders the full request (system + every message) as one
// string with role labels "System:"/"User:"/"Assistant:" and blank-line
// separators. This exact shape is preserved because it is what gets fed to
// the token counter, and the count must be stable across callers.
func PromptText(req ClientRequest) string {
	var b strings.Builder
	if sys := req.SystemText(); sys != "" {
		b.WriteString("System: ")
		b.WriteString(sys)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString(string(m.Role))
			b.WriteString(": ")
		}
		b.WriteString(MessageText(m))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
