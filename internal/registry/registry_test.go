package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_StartsIdle(t *testing.T) {
	r := New()

	require.True(t, r.Register("a"))
	st, ok := r.StateOf("a")
	require.True(t, ok)
	assert.Equal(t, Idle, st)
	assert.Equal(t, 1, r.Count())
}

func TestRegister_Twice(t *testing.T) {
	r := New()
	r.Register("a")
	r.Set("a", Waiting)

	assert.False(t, r.Register("a"))
	st, _ := r.StateOf("a")
	assert.Equal(t, Waiting, st, "re-register must not reset state")
}

func TestUnregister_ReturnsPriorState(t *testing.T) {
	r := New()
	r.Register("a")
	r.Set("a", InSession)

	st, ok := r.Unregister("a")
	require.True(t, ok)
	assert.Equal(t, InSession, st)
	assert.False(t, r.IsLive("a"))

	_, ok = r.Unregister("a")
	assert.False(t, ok, "second unregister is a no-op")
}

func TestUnknownEndpoint_NoOps(t *testing.T) {
	r := New()

	_, ok := r.StateOf("ghost")
	assert.False(t, ok)
	assert.False(t, r.Set("ghost", Waiting))
	assert.False(t, r.IsLive("ghost"))
	assert.Equal(t, 0, r.Count())
}

func TestCountByState(t *testing.T) {
	r := New()
	for _, ep := range []string{"a", "b", "c", "d"} {
		r.Register(ep)
	}
	r.Set("b", Waiting)
	r.Set("c", InSession)
	r.Set("d", InSession)

	counts := r.CountByState()
	assert.Equal(t, 1, counts[Idle])
	assert.Equal(t, 1, counts[Waiting])
	assert.Equal(t, 2, counts[InSession])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "in_session", InSession.String())
	assert.Equal(t, "unknown", State(42).String())
}
