package wire

import "fmt"

// callIDCounter seeds a stable, per-extraction synthetic id sequence so that
// function_call / function_call_output pairs that share a call_id also share
// a tool_call_id in the extracted messages, without pulling in a real nanoid
// dependency for what is, in effect, a deterministic rename.
type callIDCounter struct {
	seen   map[string]string
	next   int
}

func newCallIDCounter() *callIDCounter {
	return &callIDCounter{seen: make(map[string]string)}
}

func (c *callIDCounter) idFor(callID string) string {
	if callID == "" {
		c.next++
		return fmt.Sprintf("call_%d", c.next)
	}
	if id, ok := c.seen[callID]; ok {
		return id
	}
	c.next++
	id := fmt.Sprintf("call_%d", c.next)
	c.seen[callID] = id
	return id
}

// ExtractMessages projects any of the three supported input conventions
// (chat messages, completion prompt, Responses-API input items) into the
// single ordered ChatMessage list the dialect layer and optimizer embed.
func ExtractMessages(req *Request) ([]ChatMessage, error) {
	switch req.Function {
	case FunctionChatComplete, FunctionStreamChatComplete:
		if len(req.Messages) == 0 {
			return nil, &InvalidRequestError{Field: "messages", Message: "at least one message is required"}
		}
		return req.Messages, nil

	case FunctionComplete, FunctionStreamComplete:
		return extractFromPrompt(req.Prompt)

	case FunctionCreateModelResponse:
		if len(req.Messages) > 0 {
			return req.Messages, nil
		}
		return extractFromResponsesInput(req.Input)

	default:
		if len(req.Messages) > 0 {
			return req.Messages, nil
		}
		return nil, &InvalidRequestError{Field: "messages", Message: "function does not carry conversational input"}
	}
}

func extractFromPrompt(prompt interface{}) ([]ChatMessage, error) {
	switch p := prompt.(type) {
	case string:
		if p == "" {
			return nil, &InvalidRequestError{Field: "prompt", Message: "prompt is required"}
		}
		return []ChatMessage{{Role: RoleUser, Content: p}}, nil
	case []interface{}:
		msgs := make([]ChatMessage, 0, len(p))
		for _, item := range p {
			s, ok := item.(string)
			if !ok {
				return nil, &InvalidRequestError{Field: "prompt", Message: "prompt list entries must be strings"}
			}
			msgs = append(msgs, ChatMessage{Role: RoleUser, Content: s})
		}
		if len(msgs) == 0 {
			return nil, &InvalidRequestError{Field: "prompt", Message: "prompt is required"}
		}
		return msgs, nil
	case []string:
		msgs := make([]ChatMessage, 0, len(p))
		for _, s := range p {
			msgs = append(msgs, ChatMessage{Role: RoleUser, Content: s})
		}
		return msgs, nil
	case nil:
		return nil, &InvalidRequestError{Field: "prompt", Message: "prompt is required"}
	default:
		return nil, &InvalidRequestError{Field: "prompt", Message: "unsupported prompt type"}
	}
}

// extractFromResponsesInput projects Responses-API input items into chat
// messages. function_call becomes an assistant message carrying a single
// tool call; function_call_output becomes a tool message referencing the
// same (remapped) id. mcp_call behaves like function_call, and when its
// output/error are both absent the paired tool message reports "success" -
// the boundary behavior named in spec.md §8.
func extractFromResponsesInput(items []ResponsesInputItem) ([]ChatMessage, error) {
	if len(items) == 0 {
		return nil, &InvalidRequestError{Field: "input", Message: "input is required"}
	}

	ids := newCallIDCounter()
	out := make([]ChatMessage, 0, len(items))

	for _, item := range items {
		switch item.Type {
		case "message", "":
			role := item.Role
			if role == "" {
				role = RoleUser
			}
			out = append(out, ChatMessage{Role: role, Content: item.Content})

		case "function_call":
			id := ids.idFor(item.CallID)
			out = append(out, ChatMessage{
				Role: RoleAssistant,
				ToolCalls: []ToolCall{{
					ID:   id,
					Type: "function",
					Function: FunctionCall{
						Name:      item.Name,
						Arguments: item.Arguments,
					},
				}},
			})

		case "function_call_output":
			id := ids.idFor(item.CallID)
			content := item.Output
			if content == "" && item.Error == "" {
				content = "success"
			} else if content == "" {
				content = item.Error
			}
			out = append(out, ChatMessage{Role: RoleTool, Content: content, ToolCallID: id})

		case "mcp_call":
			id := ids.idFor(item.CallID)
			out = append(out, ChatMessage{
				Role: RoleAssistant,
				ToolCalls: []ToolCall{{
					ID:   id,
					Type: "function",
					Function: FunctionCall{
						Name:      item.MCPTool,
						Arguments: item.MCPInput,
					},
				}},
			})
			content := item.Output
			if content == "" && item.Error == "" {
				content = "success"
			} else if content == "" {
				content = item.Error
			}
			out = append(out, ChatMessage{Role: RoleTool, Content: content, ToolCallID: id})

		default:
			return nil, &InvalidRequestError{Field: "input", Message: fmt.Sprintf("unsupported input item type %q", item.Type)}
		}
	}

	if len(out) == 0 {
		return nil, &InvalidRequestError{Field: "input", Message: "input produced no messages"}
	}
	return out, nil
}

// UserVisibleText joins the user/assistant textual content of a message
// list, skipping tool-call bookkeeping, for embedding and cache-fingerprint
// purposes.
func UserVisibleText(messages []ChatMessage) string {
	var out string
	for i, m := range messages {
		if m.Content == "" {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += string(m.Role) + ": " + m.Content
	}
	return out
}
