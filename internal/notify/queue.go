// Package notify manages durable (notification center) and transient (toast)
// notifications with unread accounting and timed toast dismissal.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swiftparcel/client-go/internal/clock"
	"github.com/swiftparcel/client-go/pkg/types"
)

// Toast duration by priority.
const (
	urgentToastDuration  = 8 * time.Second
	highToastDuration    = 6 * time.Second
	defaultToastDuration = 4 * time.Second
)

// Toast is a queued transient notification with its dismissal deadline.
// Deadline is zero when the toast is not dismissible and must stay until an
// explicit dismiss.
type Toast struct {
	Notification types.Notification
	Deadline     time.Time
}

// Queue holds the durable notification list (newest first) and the active
// toast queue.
//
// Read-state mutations (MarkRead, MarkAllRead) are confirmed-only appliers:
// the caller performs the backing REST call first and applies the local
// mutation only on success, so the queue never needs rollback.
type Queue struct {
	mu      sync.Mutex
	clk     clock.Clock
	durable []types.Notification
	unread  int
	toasts  []Toast
}

// New creates an empty queue. A nil clock defaults to the real clock.
func New(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Queue{clk: clk}
}

// AddDurable prepends a notification to the durable list. A missing UID is
// assigned. Returns the stored notification.
func (q *Queue) AddDurable(n types.Notification) types.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n.UID == "" {
		n.UID = uuid.NewString()
	}
	q.durable = append([]types.Notification{n}, q.durable...)
	if !n.IsRead {
		q.unread++
	}
	return n
}

// AddToast appends a toast and stamps its dismissal deadline from the
// notification priority. Non-dismissible toasts get no deadline.
func (q *Queue) AddToast(n types.Notification) Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n.UID == "" {
		n.UID = uuid.NewString()
	}
	t := Toast{Notification: n}
	if n.Dismissible {
		t.Deadline = q.clk.Now().Add(toastDuration(n.Priority))
	}
	q.toasts = append(q.toasts, t)
	return t
}

// DismissToast removes the toast with the given UID. Unknown UIDs are a
// no-op, so double-dismissal (user tap racing the expiry sweep) is safe.
func (q *Queue) DismissToast(uid string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.toasts {
		if t.Notification.UID == uid {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// ExpireDue removes every dismissible toast whose deadline has passed and
// returns the removed toasts. Called by the owner's sweep timer.
func (q *Queue) ExpireDue(now time.Time) []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	var expired []Toast
	kept := q.toasts[:0]
	for _, t := range q.toasts {
		if !t.Deadline.IsZero() && !now.Before(t.Deadline) {
			expired = append(expired, t)
			continue
		}
		kept = append(kept, t)
	}
	q.toasts = kept
	return expired
}

// NextDeadline returns the earliest pending toast deadline, or zero when no
// dismissible toast is queued.
func (q *Queue) NextDeadline() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	var next time.Time
	for _, t := range q.toasts {
		if t.Deadline.IsZero() {
			continue
		}
		if next.IsZero() || t.Deadline.Before(next) {
			next = t.Deadline
		}
	}
	return next
}

// MarkRead flips one durable notification to read and decrements the unread
// count. Apply only after the backing REST call succeeded.
func (q *Queue) MarkRead(uid string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.durable {
		if q.durable[i].UID != uid {
			continue
		}
		if !q.durable[i].IsRead {
			q.durable[i].IsRead = true
			if q.unread > 0 {
				q.unread--
			}
		}
		return true
	}
	return false
}

// MarkAllRead flips every durable notification to read and zeroes the unread
// count. Apply only after the backing REST call succeeded.
func (q *Queue) MarkAllRead() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.durable {
		q.durable[i].IsRead = true
	}
	q.unread = 0
}

// LoadPage merges a REST notification page. Page 1 replaces the durable
// list; later pages append. The server unread count is authoritative and
// overrides whatever the realtime increments accumulated.
func (q *Queue) LoadPage(page types.NotificationPage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if page.Page <= 1 {
		q.durable = append([]types.Notification(nil), page.Notifications...)
	} else {
		q.durable = append(q.durable, page.Notifications...)
	}
	q.unread = page.UnreadCount
}

// Durable returns a copy of the durable list, newest first.
func (q *Queue) Durable() []types.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]types.Notification, len(q.durable))
	copy(out, q.durable)
	return out
}

// Toasts returns a copy of the active toast queue in arrival order.
func (q *Queue) Toasts() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Toast, len(q.toasts))
	copy(out, q.toasts)
	return out
}

// UnreadCount returns the current unread counter.
func (q *Queue) UnreadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unread
}

// Clear drops all durable and toast state. Called on logout.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.durable = nil
	q.toasts = nil
	q.unread = 0
}

func toastDuration(p types.NotificationPriority) time.Duration {
	switch p {
	case types.PriorityUrgent:
		return urgentToastDuration
	case types.PriorityHigh:
		return highToastDuration
	default:
		return defaultToastDuration
	}
}
