// Package store reconciles inbound realtime frames and REST snapshots into
// the canonical client-side state.
//
// All mutation happens on a single goroutine, so the invariants hold without
// per-field locking; readers get consistent copies via Snapshot. Side effects
// leave the loop as Commands.
package store

import (
	"sync"

	"github.com/swiftparcel/client-go/pkg/logger"
	"github.com/swiftparcel/client-go/pkg/types"
)

// Config controls a Runtime instance.
type Config struct {
	// QueueSize bounds the event and command queues. Zero means a default.
	QueueSize int
}

// Runtime serializes reconciliation events and produces effect commands.
type Runtime struct {
	mu    sync.Mutex
	state State

	// snapshotGens guards against stale REST responses: only the most
	// recently issued generation per delivery may merge.
	snapshotGens map[string]uint64

	events   chan Event
	commands chan Command
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Runtime with empty state.
func New(cfg Config) *Runtime {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Runtime{
		state:        newState(),
		snapshotGens: make(map[string]uint64),
		events:       make(chan Event, queueSize),
		commands:     make(chan Command, queueSize),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the reconciler loop.
func (r *Runtime) Start() {
	go r.loop()
}

// Stop stops the loop and waits for it to exit.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// Commands returns the effect channel consumed by the SDK facade.
func (r *Runtime) Commands() <-chan Command {
	return r.commands
}

// Post enqueues an event. Returns false if the runtime is stopped or the
// queue is full.
func (r *Runtime) Post(evt Event) bool {
	if evt == nil {
		return false
	}
	select {
	case <-r.stopCh:
		return false
	default:
	}

	select {
	case r.events <- evt:
		return true
	default:
		return false
	}
}

// Snapshot returns a deep copy of the current state.
func (r *Runtime) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// BeginSnapshot issues a new load generation for a delivery.
//
// The caller fetches the REST snapshot and posts a SnapshotLoadedEvent with
// this generation; if a newer BeginSnapshot happened meanwhile, the late
// response is ignored.
func (r *Runtime) BeginSnapshot(deliveryUID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshotGens[deliveryUID]++
	return r.snapshotGens[deliveryUID]
}

func (r *Runtime) loop() {
	defer close(r.doneCh)
	defer close(r.commands)

	for {
		select {
		case <-r.stopCh:
			return
		case evt := <-r.events:
			if evt == nil {
				continue
			}
			for _, cmd := range r.apply(evt) {
				if cmd == nil {
					continue
				}
				select {
				case r.commands <- cmd:
				case <-r.stopCh:
					return
				}
			}
		}
	}
}

func (r *Runtime) apply(evt Event) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := evt.(type) {
	case FrameEvent:
		cmds, err := applyFrame(&r.state, e)
		if err != nil {
			logger.Warn().Err(err).Str("frame_type", string(e.Frame.Type)).Msg("dropping frame")
			return nil
		}
		return cmds

	case ConnectionEvent:
		r.state.Connection = e.State
		return nil

	case SnapshotLoadedEvent:
		if r.snapshotGens[e.DeliveryUID] != e.Gen {
			// A newer load superseded this response while it was in flight.
			return nil
		}
		return applySnapshot(&r.state, e)

	case MessagesLoadedEvent:
		msgs := make([]types.ChatMessage, len(e.Messages))
		copy(msgs, e.Messages)
		r.state.ChatMessages[e.DeliveryUID] = msgs
		return []Command{DeliveryChangedCommand{DeliveryUID: e.DeliveryUID}}

	case MessageSentEvent:
		msg := e.Message
		r.state.ChatMessages[msg.DeliveryUID] = append(r.state.ChatMessages[msg.DeliveryUID], msg)
		return []Command{DeliveryChangedCommand{DeliveryUID: msg.DeliveryUID}}

	default:
		return nil
	}
}
