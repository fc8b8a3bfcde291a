package store

import "github.com/swiftparcel/client-go/pkg/types"

// Command is an output of the reconciler loop.
//
// Commands are side effects executed by the SDK facade (notification queue
// writes, listener callbacks). Keeping them as data keeps the reducer pure.
type Command interface {
	isCommand()
}

// AddDurableCommand requests adding a notification to the durable list.
type AddDurableCommand struct {
	Notification types.Notification
}

func (AddDurableCommand) isCommand() {}

// AddToastCommand requests showing a transient toast.
type AddToastCommand struct {
	Notification types.Notification
}

func (AddToastCommand) isCommand() {}

// DeliveryChangedCommand reports that live state for a delivery moved, so
// views tracking it can re-render.
type DeliveryChangedCommand struct {
	DeliveryUID string
}

func (DeliveryChangedCommand) isCommand() {}
