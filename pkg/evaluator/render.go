package evaluator

import (
	"fmt"
	"strings"

	"github.com/relaymind/relaymind/pkg/wire"
)

// renderConversation flattens a turn history into plain text for a judge
// prompt, one "role: content" line per turn.
func renderConversation(turns []wire.ChatMessage) string {
	var b strings.Builder
	for _, m := range turns {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// systemPromptOf returns the content of the first system/developer turn, or
// empty if the conversation carries none.
func systemPromptOf(turns []wire.ChatMessage) string {
	for _, m := range turns {
		if m.Role == wire.RoleSystem || m.Role == wire.RoleDeveloper {
			return m.Content
		}
	}
	return ""
}

// renderToolCalls flattens every tool call in a response's first choice
// into plain text, or a placeholder if none were issued.
func renderToolCalls(resp *wire.Response) string {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "(none)"
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, c := range calls {
		fmt.Fprintf(&b, "%s(%s)\n", c.Function.Name, c.Function.Arguments)
	}
	return b.String()
}
