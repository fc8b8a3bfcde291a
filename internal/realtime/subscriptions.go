package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription is one active channel interest.
type Subscription struct {
	// Channel is the logical topic key (e.g. "delivery:<uid>").
	Channel string
	// ID identifies this subscription for unsubscribe calls.
	ID string
	// LastMessage is when a frame last arrived on this channel.
	LastMessage time.Time
}

// Registry deduplicates channel interest independent of connection lifecycle.
//
// Entries are intents: they survive connection drops and are replayed by the
// Manager on every successful (re)connect.
type Registry struct {
	mu        sync.Mutex
	byChannel map[string]*Subscription
	byID      map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byChannel: make(map[string]*Subscription),
		byID:      make(map[string]string),
	}
}

// Add registers interest in a channel.
//
// A second Add for the same channel returns the existing subscription id and
// created=false, so no duplicate server-side subscription is requested.
func (r *Registry) Add(channel string) (id string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byChannel[channel]; ok {
		return existing.ID, false
	}

	sub := &Subscription{Channel: channel, ID: uuid.NewString()}
	r.byChannel[channel] = sub
	r.byID[sub.ID] = channel
	return sub.ID, true
}

// Remove drops the subscription with the given id and returns its channel.
// Unknown ids are a no-op (the entry was already removed).
func (r *Registry) Remove(id string) (channel string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel, ok = r.byID[id]
	if !ok {
		return "", false
	}
	delete(r.byID, id)
	delete(r.byChannel, channel)
	return channel, true
}

// Touch records frame arrival on a channel.
func (r *Registry) Touch(channel string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.byChannel[channel]; ok {
		sub.LastMessage = now
	}
}

// Channels returns a snapshot of all active subscriptions.
func (r *Registry) Channels() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]Subscription, 0, len(r.byChannel))
	for _, sub := range r.byChannel {
		subs = append(subs, *sub)
	}
	return subs
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byChannel)
}

// Clear removes every subscription. Called on session end.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChannel = make(map[string]*Subscription)
	r.byID = make(map[string]string)
}
