package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constTool(summary string) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		return domain.Success(summary, nil), nil
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("segment", constTool("segmented")))

	fn, ok := reg.Lookup("segment")
	require.True(t, ok)

	res, err := fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "segmented", res.Summary)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok, "lookup miss is reported, not raised")
}

func TestRegistry_CollisionReportedLastWins(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("tool", constTool("first")))

	err := reg.Register("tool", constTool("second"))
	assert.ErrorIs(t, err, domain.ErrToolAlreadyRegistered)

	res, err := reg.Execute(context.Background(), "tool", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", res.Summary)
}

func TestRegistry_Execute_NotFound(t *testing.T) {
	reg := registry.NewRegistry()
	_, err := reg.Execute(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrToolNotRegistered)
}

func TestRegistry_RejectsInvalidRegistrations(t *testing.T) {
	reg := registry.NewRegistry()
	assert.Error(t, reg.Register("", constTool("x")))
	assert.Error(t, reg.Register("x", nil))
	assert.Empty(t, reg.Names())
}

func TestRegistry_NamesSortedAndDescribed(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.RegisterWithDescription("b", "second tool", constTool("b")))
	require.NoError(t, reg.Register("a", constTool("a")))

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.Equal(t, []domain.ToolInfo{{Name: "a"}, {Name: "b", Description: "second tool"}}, reg.Describe())
}
