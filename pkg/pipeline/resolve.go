package pipeline

import (
	"context"
	"fmt"

	"github.com/relaymind/relaymind/pkg/storage"
)

// reservedAgentName is the synthetic agent the gateway's own internal
// callers (the evaluator judge reentrant path) address; it is never
// expected to exist in storage and is never created there.
const reservedAgentName = "__system__"

// reservedSkillNames is the fixed allow-list of skill names the pipeline
// synthesizes in memory when storage has no record for them. Any other
// unresolved name is a NotFound error surfaced to the caller - "auto-create"
// applies only to these, and only for the duration of one request; nothing
// is written back to storage, since storage.Connector exposes no agent/skill
// write methods (agents and skills are provisioned through the control
// plane, not materialized implicitly by traffic).
var reservedSkillNames = map[string]bool{
	"__judge__": true,
}

// AgentNotFoundError is returned when an agent name resolves to nothing in
// storage and is not the reserved system agent.
type AgentNotFoundError struct{ Name string }

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("pipeline: agent %q not found", e.Name)
}

// SkillNotFoundError is returned when a skill name resolves to nothing
// under its agent and is not on the reserved allow-list.
type SkillNotFoundError struct{ AgentID, Name string }

func (e *SkillNotFoundError) Error() string {
	return fmt.Sprintf("pipeline: skill %q not found for agent %q", e.Name, e.AgentID)
}

// resolveAgent looks up an agent by name, synthesizing the reserved system
// agent in memory if storage has none.
func resolveAgent(ctx context.Context, store storage.Connector, name string) (*storage.Agent, error) {
	agents, err := store.GetAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: get agents: %w", err)
	}
	for _, a := range agents {
		if a.Name == name {
			return a, nil
		}
	}
	if name == reservedAgentName {
		return &storage.Agent{ID: reservedAgentName, Name: reservedAgentName}, nil
	}
	return nil, &AgentNotFoundError{Name: name}
}

// resolveSkill looks up a skill by (agentID, name), synthesizing an
// unoptimized in-memory skill if name is on the reserved allow-list and
// storage has none.
func resolveSkill(ctx context.Context, store storage.Connector, agentID, name string) (*storage.Skill, error) {
	skills, err := store.GetSkills(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: get skills: %w", err)
	}
	for _, s := range skills {
		if s.Name == name {
			return s, nil
		}
	}
	if reservedSkillNames[name] {
		return &storage.Skill{ID: agentID + "/" + name, AgentID: agentID, Name: name, Optimize: false}, nil
	}
	return nil, &SkillNotFoundError{AgentID: agentID, Name: name}
}
