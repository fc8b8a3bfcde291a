package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swiftparcel/client-go/pkg/types"
)

func locationFrame(t *testing.T, deliveryUID string, lat, lng float64, updatedAt time.Time) types.Frame {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"delivery_uid": deliveryUID,
		"courier_location": map[string]any{
			"latitude":  lat,
			"longitude": lng,
		},
		"updated_at": updatedAt.Format(time.RFC3339),
	})
	require.NoError(t, err)
	return types.Frame{Type: types.FrameCourierLocation, Payload: payload}
}

// drain collects commands until the channel is quiet.
func drain(t *testing.T, r *Runtime, want int) []Command {
	t.Helper()
	cmds := make([]Command, 0, want)
	timeout := time.After(2 * time.Second)
	for len(cmds) < want {
		select {
		case cmd := <-r.Commands():
			cmds = append(cmds, cmd)
		case <-timeout:
			t.Fatalf("timed out waiting for commands, got %d of %d", len(cmds), want)
		}
	}
	return cmds
}

func startRuntime(t *testing.T) *Runtime {
	t.Helper()
	r := New(Config{})
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

func TestRuntime_CourierLocationLastWriteWins(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	now := time.Now().UTC().Truncate(time.Second)

	// P2 arrives after P1 but carries an older embedded timestamp: arrival
	// order still wins.
	require.True(t, r.Post(FrameEvent{Frame: locationFrame(t, "d1", 50.1, 30.1, now), At: now}))
	require.True(t, r.Post(FrameEvent{Frame: locationFrame(t, "d1", 50.2, 30.2, now.Add(-time.Minute)), At: now}))
	drain(t, r, 2)

	state := r.Snapshot()
	loc := state.CourierLocations["d1"]
	require.Equal(t, 50.2, loc.Latitude)
	require.Equal(t, 30.2, loc.Longitude)
	require.Equal(t, now.Add(-time.Minute), loc.UpdatedAt)
}

func TestRuntime_DeliveryStatusSynthesizesDurableNotification(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	at := time.Now()
	payload, err := json.Marshal(map[string]any{
		"delivery_uid":     "d7",
		"status":           "picked_up",
		"status_timestamp": at.UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.True(t, r.Post(FrameEvent{Frame: types.Frame{Type: types.FrameDeliveryStatus, Payload: payload}, At: at}))

	cmds := drain(t, r, 2)
	var durable *AddDurableCommand
	for _, cmd := range cmds {
		if c, ok := cmd.(AddDurableCommand); ok {
			durable = &c
		}
	}
	require.NotNil(t, durable)
	require.Equal(t, types.NotificationDeliveryStatus, durable.Notification.Type)
	require.Equal(t, "/track/d7", durable.Notification.ActionURL)
	require.False(t, durable.Notification.IsRead)

	require.Equal(t, "picked_up", r.Snapshot().DeliveryStatuses["d7"].Status)
}

func TestRuntime_SystemNotificationHitsBothQueues(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	payload, err := json.Marshal(map[string]any{
		"notification_uid": "n1",
		"title":            "Maintenance",
		"message":          "Scheduled downtime tonight",
		"priority":         "high",
	})
	require.NoError(t, err)
	require.True(t, r.Post(FrameEvent{Frame: types.Frame{Type: types.FrameSystemNotify, Payload: payload}, At: time.Now()}))

	cmds := drain(t, r, 2)
	var durable, toast bool
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case AddDurableCommand:
			durable = true
			require.Equal(t, "n1", c.Notification.UID)
			require.Equal(t, types.PriorityHigh, c.Notification.Priority)
		case AddToastCommand:
			toast = true
			require.Equal(t, "n1", c.Notification.UID)
		}
	}
	require.True(t, durable)
	require.True(t, toast)
}

func TestRuntime_ChatMessageAppendsConversationToastOnly(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	payload, err := json.Marshal(map[string]any{
		"message_uid":  "m1",
		"delivery_uid": "d1",
		"sender_info":  map[string]any{"uid": "c9", "type": "courier"},
		"message_type": "text",
		"content":      "On my way",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.True(t, r.Post(FrameEvent{Frame: types.Frame{Type: types.FrameChatMessage, Payload: payload}, At: time.Now()}))

	cmds := drain(t, r, 2)
	for _, cmd := range cmds {
		_, isDurable := cmd.(AddDurableCommand)
		require.False(t, isDurable, "chat messages must not create durable notifications")
	}

	msgs := r.Snapshot().ChatMessages["d1"]
	require.Len(t, msgs, 1)
	require.Equal(t, "On my way", msgs[0].Content)
	require.Equal(t, "courier", msgs[0].SenderType)
}

func TestRuntime_MalformedFrameDropped(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	require.True(t, r.Post(FrameEvent{Frame: types.Frame{Type: "bogus", Payload: []byte(`{}`)}, At: time.Now()}))
	require.True(t, r.Post(FrameEvent{Frame: locationFrame(t, "d1", 1, 2, time.Now()), At: time.Now()}))

	// Only the valid frame produces a command; the bogus one is silent.
	drain(t, r, 1)
	require.Len(t, r.Snapshot().CourierLocations, 1)
}

func TestRuntime_StaleSnapshotIgnored(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)

	gen1 := r.BeginSnapshot("d1")
	gen2 := r.BeginSnapshot("d1")
	require.Greater(t, gen2, gen1)

	fresh := types.Delivery{
		UID:    "d1",
		Status: types.DeliveryStatus{DeliveryUID: "d1", Status: "delivering"},
	}
	stale := types.Delivery{
		UID:    "d1",
		Status: types.DeliveryStatus{DeliveryUID: "d1", Status: "created"},
	}

	// The newer load completes first; the stale response lands afterwards.
	require.True(t, r.Post(SnapshotLoadedEvent{DeliveryUID: "d1", Gen: gen2, Delivery: fresh}))
	drain(t, r, 1)
	require.True(t, r.Post(SnapshotLoadedEvent{DeliveryUID: "d1", Gen: gen1, Delivery: stale}))

	// Give the loop a beat to (not) apply the stale event.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "delivering", r.Snapshot().DeliveryStatuses["d1"].Status)
}

func TestRuntime_ConnectionEventUpdatesSlice(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	require.True(t, r.Post(ConnectionEvent{State: types.ConnectionState{Status: types.StatusConnected, Quality: types.QualityGood}}))

	require.Eventually(t, func() bool {
		return r.Snapshot().Connection.Status == types.StatusConnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRuntime_MessagesLoadedReplacesConversation(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	require.True(t, r.Post(MessageSentEvent{Message: types.ChatMessage{MessageUID: "m0", DeliveryUID: "d1", Content: "hello"}}))
	drain(t, r, 1)

	page := []types.ChatMessage{
		{MessageUID: "m1", DeliveryUID: "d1", Content: "first"},
		{MessageUID: "m2", DeliveryUID: "d1", Content: "second"},
	}
	require.True(t, r.Post(MessagesLoadedEvent{DeliveryUID: "d1", Messages: page}))
	drain(t, r, 1)

	msgs := r.Snapshot().ChatMessages["d1"]
	require.Len(t, msgs, 2)
	require.Equal(t, "m1", msgs[0].MessageUID)
}

func TestRuntime_SnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	r := startRuntime(t)
	require.True(t, r.Post(FrameEvent{Frame: locationFrame(t, "d1", 1, 2, time.Now()), At: time.Now()}))
	drain(t, r, 1)

	snap := r.Snapshot()
	snap.CourierLocations["d1"] = types.CourierLocation{DeliveryUID: "d1", Latitude: 99}

	require.Equal(t, 1.0, r.Snapshot().CourierLocations["d1"].Latitude)
}
