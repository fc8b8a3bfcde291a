package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swiftparcel/client-go/internal/clock/clocktest"
	"github.com/swiftparcel/client-go/pkg/types"
)

func notification(uid string, read bool) types.Notification {
	return types.Notification{
		UID:         uid,
		Type:        types.NotificationSystem,
		Title:       "t",
		Message:     "m",
		Priority:    types.PriorityNormal,
		IsRead:      read,
		Dismissible: true,
	}
}

// countUnread recomputes the invariant from scratch.
func countUnread(list []types.Notification) int {
	n := 0
	for _, item := range list {
		if !item.IsRead {
			n++
		}
	}
	return n
}

func TestQueue_AddDurablePrependsAndCounts(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.AddDurable(notification("a", false))
	q.AddDurable(notification("b", true))
	q.AddDurable(notification("c", false))

	list := q.Durable()
	require.Equal(t, []string{"c", "b", "a"}, []string{list[0].UID, list[1].UID, list[2].UID})
	require.Equal(t, 2, q.UnreadCount())
}

func TestQueue_AddDurableAssignsMissingUID(t *testing.T) {
	t.Parallel()

	q := New(nil)
	stored := q.AddDurable(types.Notification{Title: "no uid"})
	require.NotEmpty(t, stored.UID)
	require.Equal(t, stored.UID, q.Durable()[0].UID)
}

func TestQueue_MarkReadConfirmedApplier(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.AddDurable(notification("a", false))
	q.AddDurable(notification("b", false))

	require.True(t, q.MarkRead("a"))
	require.Equal(t, 1, q.UnreadCount())

	// Marking the same one again must not double-decrement.
	require.True(t, q.MarkRead("a"))
	require.Equal(t, 1, q.UnreadCount())

	require.False(t, q.MarkRead("missing"))
	require.Equal(t, 1, q.UnreadCount())
}

func TestQueue_MarkAllRead(t *testing.T) {
	t.Parallel()

	q := New(nil)
	for i := 0; i < 5; i++ {
		q.AddDurable(notification(fmt.Sprintf("n%d", i), i%2 == 0))
	}

	q.MarkAllRead()
	require.Equal(t, 0, q.UnreadCount())
	for _, n := range q.Durable() {
		require.True(t, n.IsRead)
	}
}

func TestQueue_UnreadInvariantAcrossOps(t *testing.T) {
	t.Parallel()

	q := New(nil)
	check := func() {
		require.Equal(t, countUnread(q.Durable()), q.UnreadCount())
	}

	q.AddDurable(notification("a", false))
	check()
	q.AddDurable(notification("b", false))
	check()
	q.MarkRead("a")
	check()
	q.LoadPage(types.NotificationPage{
		Page:          1,
		Notifications: []types.Notification{notification("x", false), notification("y", true)},
		UnreadCount:   1,
	})
	check()
	q.AddDurable(notification("c", false))
	check()
	q.MarkAllRead()
	check()
}

func TestQueue_LoadPageReplaceThenAppend(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.AddDurable(notification("local", false))

	q.LoadPage(types.NotificationPage{
		Page:          1,
		Notifications: []types.Notification{notification("p1a", false), notification("p1b", true)},
		UnreadCount:   7,
	})
	require.Len(t, q.Durable(), 2)
	// Server value wins over the locally accumulated count.
	require.Equal(t, 7, q.UnreadCount())

	q.LoadPage(types.NotificationPage{
		Page:          2,
		Notifications: []types.Notification{notification("p2a", true)},
		UnreadCount:   7,
	})
	list := q.Durable()
	require.Len(t, list, 3)
	require.Equal(t, "p1a", list[0].UID)
	require.Equal(t, "p2a", list[2].UID)
}

func TestQueue_ToastDeadlinesByPriority(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clocktest.NewAt(start)
	q := New(clk)

	urgent := notification("u", false)
	urgent.Priority = types.PriorityUrgent
	high := notification("h", false)
	high.Priority = types.PriorityHigh
	low := notification("l", false)
	low.Priority = types.PriorityLow

	require.Equal(t, start.Add(8*time.Second), q.AddToast(urgent).Deadline)
	require.Equal(t, start.Add(6*time.Second), q.AddToast(high).Deadline)
	require.Equal(t, start.Add(4*time.Second), q.AddToast(low).Deadline)
}

func TestQueue_NonDismissibleToastNeverExpires(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clocktest.NewAt(start)
	q := New(clk)

	pinned := notification("pinned", false)
	pinned.Dismissible = false
	require.True(t, q.AddToast(pinned).Deadline.IsZero())

	expired := q.ExpireDue(start.Add(time.Hour))
	require.Empty(t, expired)
	require.Len(t, q.Toasts(), 1)

	// An explicit dismiss still removes it.
	require.True(t, q.DismissToast("pinned"))
	require.Empty(t, q.Toasts())
}

func TestQueue_ExpireDueSweep(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clocktest.NewAt(start)
	q := New(clk)

	urgent := notification("u", false)
	urgent.Priority = types.PriorityUrgent
	q.AddToast(urgent)
	q.AddToast(notification("n", false))

	// At +4s only the normal toast is due; the urgent one rides to +8s.
	expired := q.ExpireDue(start.Add(4 * time.Second))
	require.Len(t, expired, 1)
	require.Equal(t, "n", expired[0].Notification.UID)

	expired = q.ExpireDue(start.Add(8 * time.Second))
	require.Len(t, expired, 1)
	require.Equal(t, "u", expired[0].Notification.UID)
	require.Empty(t, q.Toasts())
}

func TestQueue_DismissToastIdempotent(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.AddToast(notification("a", false))

	require.True(t, q.DismissToast("a"))
	require.False(t, q.DismissToast("a"))
	require.Empty(t, q.Toasts())
}

func TestQueue_NextDeadline(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clocktest.NewAt(start)
	q := New(clk)

	require.True(t, q.NextDeadline().IsZero())

	urgent := notification("u", false)
	urgent.Priority = types.PriorityUrgent
	q.AddToast(urgent)
	q.AddToast(notification("n", false))

	require.Equal(t, start.Add(4*time.Second), q.NextDeadline())
}

func TestQueue_Clear(t *testing.T) {
	t.Parallel()

	q := New(nil)
	q.AddDurable(notification("a", false))
	q.AddToast(notification("b", false))

	q.Clear()
	require.Empty(t, q.Durable())
	require.Empty(t, q.Toasts())
	require.Equal(t, 0, q.UnreadCount())
}
