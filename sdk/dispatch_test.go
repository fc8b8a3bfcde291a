package sdk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsWorkInOrder(t *testing.T) {
	t.Parallel()

	d := newDispatcher(8)
	defer d.close()

	var mu sync.Mutex
	var got []int
	for i := 1; i <= 3; i++ {
		require.NoError(t, d.do(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}

	_, err := d.call(func() (any, error) { return nil, nil })
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestDispatcher_EnqueueAfterCloseErrors(t *testing.T) {
	t.Parallel()

	d := newDispatcher(8)
	d.close()

	// A handler firing after teardown must get an error, not panic.
	require.Error(t, d.do(func() {}))
	_, err := d.call(func() (any, error) { return nil, nil })
	require.Error(t, err)

	// Closing again is a no-op.
	d.close()
}

func TestDispatcher_CloseWaitsForQueuedWork(t *testing.T) {
	t.Parallel()

	d := newDispatcher(8)
	ran := false
	require.NoError(t, d.do(func() { ran = true }))
	d.close()
	require.True(t, ran)
}
