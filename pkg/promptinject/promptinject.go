// Package promptinject builds the synthetic system prompt that teaches an
// upstream without native function calling to emit tool invocations as a
// trigger signal followed by an XML <invoke> block.
package promptinject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/trigger"
)

const instructionTemplate = `You have access to the following tools. When you need to call a tool:
1. Do not mention that you are selecting a tool; stay silent about the mechanism.
2. On its own line, print exactly this signal immediately before the invocation: {trigger_signal}
3. Immediately follow it with an <invoke> block naming the tool and its parameters.
4. Encode any complex parameter value (objects, arrays, numbers that must stay exact) as a JSON string.
5. Stop generating immediately after the closing </invoke> tag.

Tools available:
{tools_list}`

// Inject builds the enriched request: tools are rendered into an XML
// catalog and spliced into the instruction template, which is prepended to
// the original system prompt. If req has no tools, req is returned
// unchanged and ok is false (pure passthrough, no delimiter).
func Inject(req bridgetypes.ClientRequest) (enriched bridgetypes.ClientRequest, delimiter bridgetypes.TriggerDelimiter, ok bool, err error) {
	if !req.HasTools() {
		return req, bridgetypes.TriggerDelimiter{}, false, nil
	}

	tcStart, err := trigger.New()
	if err != nil {
		return bridgetypes.ClientRequest{}, bridgetypes.TriggerDelimiter{}, false, err
	}
	delim := bridgetypes.NewTriggerDelimiter(tcStart)

	catalog := renderCatalog(req.Tools)
	instructions := strings.NewReplacer(
		"{trigger_signal}", delim.TCStart,
		"{tools_list}", catalog,
	).Replace(instructionTemplate)

	enriched = req
	existing := req.SystemText()
	if existing != "" {
		enriched.System = instructions + "\n\n" + existing
	} else {
		enriched.System = instructions
	}
	enriched.SystemBlock = nil

	return enriched, delim, true, nil
}

// renderCatalog renders the fixed XML skeleton:
// <function_list><tool id="i">...</tool>...</function_list>
func renderCatalog(tools []bridgetypes.ToolDef) string {
	if len(tools) == 0 {
		return "<function_list>None</function_list>"
	}

	var b strings.Builder
	b.WriteString("<function_list>")
	for i, t := range tools {
		fmt.Fprintf(&b, `<tool id="%d">`, i)
		b.WriteString("<name>")
		b.WriteString(escape(t.Name))
		b.WriteString("</name>")
		b.WriteString("<description>")
		b.WriteString(escape(t.Description))
		b.WriteString("</description>")

		b.WriteString("<required>")
		for _, name := range t.InputSchema.Required {
			b.WriteString("<param>")
			b.WriteString(escape(name))
			b.WriteString("</param>")
		}
		b.WriteString("</required>")

		b.WriteString("<parameters>")
		for name, schema := range t.InputSchema.Properties {
			renderParam(&b, name, schema, contains(t.InputSchema.Required, name))
		}
		b.WriteString("</parameters>")

		b.WriteString("</tool>")
	}
	b.WriteString("</function_list>")
	return b.String()
}

func renderParam(b *strings.Builder, name string, schema bridgetypes.ToolParamSchema, required bool) {
	b.WriteString("<parameter>")
	b.WriteString("<name>")
	b.WriteString(escape(name))
	b.WriteString("</name>")

	typ := schema.Type
	if typ == "" {
		typ = "any"
	}
	b.WriteString("<type>")
	b.WriteString(escape(typ))
	b.WriteString("</type>")

	if required {
		b.WriteString("<required>true</required>")
	} else {
		b.WriteString("<required>false</required>")
	}

	if schema.Description != "" {
		b.WriteString("<description>")
		b.WriteString(escape(schema.Description))
		b.WriteString("</description>")
	}

	if len(schema.Enum) > 0 {
		enumJSON, err := json.Marshal(schema.Enum)
		if err == nil {
			b.WriteString("<enum>")
			b.WriteString(escape(string(enumJSON)))
			b.WriteString("</enum>")
		}
	}

	b.WriteString("</parameter>")
}

// escape HTML-escapes only '<' and '>', per the catalog rendering rule —
// not a full XML/HTML escape, since tool text is otherwise passed through.
func escape(s string) string {
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
