package wire

import "fmt"

const synthesisChunkSize = 4

// SynthesizeChunks turns a complete Response into the chunk sequence a
// streaming client would have seen: content chunked by ~4 characters, each
// tool call emitted as a name chunk followed by an arguments chunk, then one
// finish_reason chunk, then a terminal Done chunk. Used both by the pipeline
// when an upstream dialect has no streaming transform and by the cache when
// replaying a cached response to a client that requested a stream.
func SynthesizeChunks(resp *Response, fallbackID string) []*Chunk {
	id := resp.ID
	if id == "" {
		id = fallbackID
	}

	var chunks []*Chunk
	roleSent := false

	for _, choice := range resp.Choices {
		if choice.Message == nil {
			continue
		}

		if !roleSent {
			chunks = append(chunks, textChunk(id, resp, choice.Index, RoleAssistant, ""))
			roleSent = true
		}

		content := choice.Message.Content
		for len(content) > 0 {
			n := synthesisChunkSize
			if n > len(content) {
				n = len(content)
			}
			chunks = append(chunks, textChunk(id, resp, choice.Index, "", content[:n]))
			content = content[n:]
		}

		for _, call := range choice.Message.ToolCalls {
			chunks = append(chunks, toolNameChunk(id, resp, choice.Index, call))
			chunks = append(chunks, toolArgsChunk(id, resp, choice.Index, call))
		}

		finish := choice.FinishReason
		if finish == "" {
			finish = FinishStop
		}
		chunks = append(chunks, &Chunk{
			ID: id, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model, Provider: resp.Provider,
			Choices: []ChoiceDelta{{Index: choice.Index, FinishReason: finish}},
		})
	}

	chunks = append(chunks, &Chunk{Done: true})
	return chunks
}

func textChunk(id string, resp *Response, index int, role Role, content string) *Chunk {
	return &Chunk{
		ID: id, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model, Provider: resp.Provider,
		Choices: []ChoiceDelta{{Index: index, Role: role, Content: content}},
	}
}

func toolNameChunk(id string, resp *Response, index int, call ToolCall) *Chunk {
	return &Chunk{
		ID: id, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model, Provider: resp.Provider,
		Choices: []ChoiceDelta{{
			Index:     index,
			ToolCalls: []ToolCall{{ID: call.ID, Type: call.Type, Function: FunctionCall{Name: call.Function.Name}}},
		}},
	}
}

func toolArgsChunk(id string, resp *Response, index int, call ToolCall) *Chunk {
	return &Chunk{
		ID: id, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model, Provider: resp.Provider,
		Choices: []ChoiceDelta{{
			Index:     index,
			ToolCalls: []ToolCall{{ID: call.ID, Function: FunctionCall{Arguments: call.Function.Arguments}}},
		}},
	}
}

// AccumulateChunks folds a stream of Chunks back into a single Response,
// used when the upstream is streaming but the caller asked for a
// non-streaming result.
func AccumulateChunks(chunks []*Chunk) (*Response, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("wire: no chunks to accumulate")
	}

	choiceContent := make(map[int]string)
	choiceToolArgs := make(map[int]map[string]*ToolCall)
	choiceOrder := make(map[int][]string)
	choiceFinish := make(map[int]FinishReason)

	var first *Chunk
	for _, c := range chunks {
		if c.Done {
			continue
		}
		if first == nil {
			first = c
		}
		for _, delta := range c.Choices {
			choiceContent[delta.Index] += delta.Content
			if delta.FinishReason != "" {
				choiceFinish[delta.Index] = delta.FinishReason
			}
			for _, tc := range delta.ToolCalls {
				if choiceToolArgs[delta.Index] == nil {
					choiceToolArgs[delta.Index] = make(map[string]*ToolCall)
				}
				key := tc.ID
				if key == "" {
					key = fmt.Sprintf("%d", len(choiceToolArgs[delta.Index]))
				}
				existing, ok := choiceToolArgs[delta.Index][key]
				if !ok {
					existing = &ToolCall{ID: tc.ID, Type: "function"}
					choiceToolArgs[delta.Index][key] = existing
					choiceOrder[delta.Index] = append(choiceOrder[delta.Index], key)
				}
				if tc.Function.Name != "" {
					existing.Function.Name = tc.Function.Name
				}
				existing.Function.Arguments += tc.Function.Arguments
			}
		}
	}

	if first == nil {
		return nil, fmt.Errorf("wire: no non-terminal chunks to accumulate")
	}

	indices := make([]int, 0, len(choiceContent))
	seen := make(map[int]bool)
	for idx := range choiceContent {
		if !seen[idx] {
			indices = append(indices, idx)
			seen[idx] = true
		}
	}
	for idx := range choiceToolArgs {
		if !seen[idx] {
			indices = append(indices, idx)
			seen[idx] = true
		}
	}

	choices := make([]Choice, 0, len(indices))
	for _, idx := range indices {
		var calls []ToolCall
		for _, key := range choiceOrder[idx] {
			calls = append(calls, *choiceToolArgs[idx][key])
		}
		finish := choiceFinish[idx]
		if finish == "" {
			finish = FinishStop
		}
		choices = append(choices, Choice{
			Index:        idx,
			Message:      &ChatMessage{Role: RoleAssistant, Content: choiceContent[idx], ToolCalls: calls},
			FinishReason: finish,
		})
	}

	return &Response{
		ID:       first.ID,
		Object:   "chat.completion",
		Created:  first.Created,
		Model:    first.Model,
		Provider: first.Provider,
		Choices:  choices,
	}, nil
}
