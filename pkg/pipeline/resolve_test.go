package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/storage"
)

func TestResolveAgent_FindsSeeded(t *testing.T) {
	conn := storage.NewMemoryConnector()
	conn.SeedAgent(&storage.Agent{ID: "agent-1", Name: "support-bot"})

	agent, err := resolveAgent(context.Background(), conn, "support-bot")
	require.NoError(t, err)
	require.Equal(t, "agent-1", agent.ID)
}

func TestResolveAgent_SynthesizesReservedSystemAgent(t *testing.T) {
	conn := storage.NewMemoryConnector()

	agent, err := resolveAgent(context.Background(), conn, reservedAgentName)
	require.NoError(t, err)
	require.Equal(t, reservedAgentName, agent.ID)
	require.Equal(t, reservedAgentName, agent.Name)
}

func TestResolveAgent_UnknownNameIsNotFound(t *testing.T) {
	conn := storage.NewMemoryConnector()

	_, err := resolveAgent(context.Background(), conn, "ghost-agent")
	require.Error(t, err)
	var notFound *AgentNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "ghost-agent", notFound.Name)
}

func TestResolveSkill_FindsSeeded(t *testing.T) {
	conn := storage.NewMemoryConnector()
	conn.SeedSkill(&storage.Skill{ID: "skill-1", AgentID: "agent-1", Name: "triage"})

	skill, err := resolveSkill(context.Background(), conn, "agent-1", "triage")
	require.NoError(t, err)
	require.Equal(t, "skill-1", skill.ID)
}

func TestResolveSkill_SynthesizesReservedJudgeSkill(t *testing.T) {
	conn := storage.NewMemoryConnector()

	skill, err := resolveSkill(context.Background(), conn, reservedAgentName, "__judge__")
	require.NoError(t, err)
	require.Equal(t, reservedAgentName, skill.AgentID)
	require.False(t, skill.Optimize)
}

func TestResolveSkill_UnknownNameIsNotFound(t *testing.T) {
	conn := storage.NewMemoryConnector()

	_, err := resolveSkill(context.Background(), conn, "agent-1", "ghost-skill")
	require.Error(t, err)
	var notFound *SkillNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "ghost-skill", notFound.Name)
}
