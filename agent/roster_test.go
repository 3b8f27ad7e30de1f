package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/orchestra/agent"
	"github.com/tailored-agentic-units/orchestra/agent/mock"
)

func TestRoster_RegisterAndGet(t *testing.T) {
	alice, bob := mock.NewEcho("alice"), mock.NewEcho("bob")
	r, err := agent.NewRoster(alice, bob)
	require.NoError(t, err)

	got, err := r.Get("bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID(), got.ID())
	assert.Equal(t, []string{"alice", "bob"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestRoster_Errors(t *testing.T) {
	r, err := agent.NewRoster()
	require.NoError(t, err)

	require.ErrorIs(t, r.Register(mock.NewEcho("")), agent.ErrEmptyAgentName)
	require.NoError(t, r.Register(mock.NewEcho("alice")))
	require.ErrorIs(t, r.Register(mock.NewEcho("alice")), agent.ErrAgentExists)

	_, err = r.Get("nobody")
	require.ErrorIs(t, err, agent.ErrAgentNotFound)
	require.ErrorIs(t, r.Unregister("nobody"), agent.ErrAgentNotFound)
}

func TestRoster_ChoiceTracksLiveRoster(t *testing.T) {
	r, err := agent.NewRoster(mock.NewEcho("alice"), mock.NewEcho("bob"), mock.NewEcho("carol"))
	require.NoError(t, err)

	before, err := r.Choice("vote", "The player you vote for")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, before.Options)

	require.NoError(t, r.Unregister("bob"))
	after, err := r.Choice("vote", "The player you vote for")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, after.Options)

	require.NoError(t, before.Validate("bob"), "a built choice keeps the roster it captured")
	require.ErrorIs(t, after.Validate("bob"), agent.ErrInvalidChoice)
}

func TestChoice_Schema(t *testing.T) {
	c, err := agent.NewChoice("name", "Who to check", mock.NewEcho("a"), mock.NewEcho("b"), mock.NewEcho("a"))
	require.NoError(t, err)

	schema := c.Schema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"name"}, schema["required"])

	field := schema["properties"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, []string{"a", "b"}, field["enum"])
	assert.Equal(t, "Who to check", field["description"])
}

func TestChoice_Parse(t *testing.T) {
	c, err := agent.NewChoice("vote", "", mock.NewEcho("alice"), mock.NewEcho("bob"))
	require.NoError(t, err)

	got, err := c.Parse(map[string]any{"vote": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob", got)

	_, err = c.Parse(map[string]any{})
	require.ErrorIs(t, err, agent.ErrInvalidChoice)
	_, err = c.Parse(map[string]any{"vote": 3})
	require.ErrorIs(t, err, agent.ErrInvalidChoice)
	_, err = c.Parse(map[string]any{"vote": "mallory"})
	require.ErrorIs(t, err, agent.ErrInvalidChoice)
}

func TestNewChoice_EmptyRoster(t *testing.T) {
	_, err := agent.NewChoice("vote", "")
	require.ErrorIs(t, err, agent.ErrEmptyRoster)
}
