package store

import (
	"time"

	"github.com/swiftparcel/client-go/pkg/types"
)

// Event is an input to the reconciler loop.
type Event interface {
	isEvent()
}

// FrameEvent carries one inbound realtime frame.
//
// At is injected by the caller so the reducer stays deterministic.
type FrameEvent struct {
	Frame types.Frame
	At    time.Time
}

func (FrameEvent) isEvent() {}

// ConnectionEvent mirrors a connection state transition into the store.
type ConnectionEvent struct {
	State types.ConnectionState
}

func (ConnectionEvent) isEvent() {}

// SnapshotLoadedEvent merges an authoritative REST delivery snapshot.
//
// Gen must match the value issued by Runtime.BeginSnapshot for the same
// delivery; stale responses (an older generation arriving after a newer load
// started) are dropped instead of clobbering fresher state.
type SnapshotLoadedEvent struct {
	DeliveryUID string
	Gen         uint64
	Delivery    types.Delivery
}

func (SnapshotLoadedEvent) isEvent() {}

// MessagesLoadedEvent replaces a delivery's conversation with the REST page.
type MessagesLoadedEvent struct {
	DeliveryUID string
	Messages    []types.ChatMessage
}

func (MessagesLoadedEvent) isEvent() {}

// MessageSentEvent appends a server-confirmed outbound chat message.
type MessageSentEvent struct {
	Message types.ChatMessage
}

func (MessageSentEvent) isEvent() {}
