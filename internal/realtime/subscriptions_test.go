package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AddDeduplicatesByChannel(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	id1, created := r.Add("delivery:d1")
	require.True(t, created)
	require.NotEmpty(t, id1)

	id2, created := r.Add("delivery:d1")
	require.False(t, created)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveUnknownIDIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	id, _ := r.Add("delivery:d1")

	channel, ok := r.Remove(id)
	require.True(t, ok)
	require.Equal(t, "delivery:d1", channel)

	// Second remove of the same id must not error or panic.
	_, ok = r.Remove(id)
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestRegistry_TouchUpdatesLastMessage(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("delivery:d1")

	now := time.Now()
	r.Touch("delivery:d1", now)
	r.Touch("delivery:unknown", now) // no-op

	subs := r.Channels()
	require.Len(t, subs, 1)
	require.Equal(t, now, subs[0].LastMessage)
}

func TestRegistry_ClearEmptiesReplaySet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("delivery:d1")
	r.Add("delivery:d2")
	r.Clear()

	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Channels())

	// Ids from before the clear are unknown now.
	id, created := r.Add("delivery:d1")
	require.True(t, created)
	require.NotEmpty(t, id)
}
