package store

import "github.com/swiftparcel/client-go/pkg/types"

// State holds the reconciled client-side view of live delivery data.
//
// It is mutated only by the runtime loop and snapshotted for readers, so no
// field needs its own locking.
type State struct {
	// Connection mirrors the realtime manager's last reported state.
	Connection types.ConnectionState

	// CourierLocations holds the latest courier position per delivery.
	// Last writer by arrival order wins.
	CourierLocations map[string]types.CourierLocation

	// DeliveryStatuses holds the latest status per delivery.
	DeliveryStatuses map[string]types.DeliveryStatus

	// ChatMessages holds each delivery's conversation in arrival order.
	ChatMessages map[string][]types.ChatMessage
}

func newState() State {
	return State{
		Connection:       types.ConnectionState{Status: types.StatusDisconnected},
		CourierLocations: make(map[string]types.CourierLocation),
		DeliveryStatuses: make(map[string]types.DeliveryStatus),
		ChatMessages:     make(map[string][]types.ChatMessage),
	}
}

// clone returns a deep copy safe to hand to readers.
func (s State) clone() State {
	out := State{
		Connection:       s.Connection,
		CourierLocations: make(map[string]types.CourierLocation, len(s.CourierLocations)),
		DeliveryStatuses: make(map[string]types.DeliveryStatus, len(s.DeliveryStatuses)),
		ChatMessages:     make(map[string][]types.ChatMessage, len(s.ChatMessages)),
	}
	for k, v := range s.CourierLocations {
		out.CourierLocations[k] = v
	}
	for k, v := range s.DeliveryStatuses {
		out.DeliveryStatuses[k] = v
	}
	for k, msgs := range s.ChatMessages {
		copied := make([]types.ChatMessage, len(msgs))
		copy(copied, msgs)
		out.ChatMessages[k] = copied
	}
	return out
}
