// Package sdk is the view-facing facade over the realtime client: session,
// HTTP adapter, realtime connection, reconciler and notification queue wired
// into a single Client with listener callbacks.
package sdk

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/swiftparcel/client-go/internal/api"
	"github.com/swiftparcel/client-go/internal/clock"
	"github.com/swiftparcel/client-go/internal/config"
	"github.com/swiftparcel/client-go/internal/notify"
	"github.com/swiftparcel/client-go/internal/realtime"
	"github.com/swiftparcel/client-go/internal/session"
	"github.com/swiftparcel/client-go/internal/store"
	"github.com/swiftparcel/client-go/pkg/logger"
	"github.com/swiftparcel/client-go/pkg/types"
)

// toastSweepInterval bounds how stale an expired toast can linger before the
// sweep removes it.
const toastSweepInterval = 500 * time.Millisecond

// Listener receives client events. Methods must be safe to call from any
// goroutine; they are invoked from a dedicated callback goroutine, never from
// the caller of an SDK method.
type Listener interface {
	// OnConnectionStatus fires on every realtime connection transition.
	OnConnectionStatus(state types.ConnectionState)
	// OnDeliveryUpdate fires when reconciled state for a delivery changed.
	OnDeliveryUpdate(deliveryUID string)
	// OnToast fires when a transient notification is queued for display.
	OnToast(toast notify.Toast)
	// OnToastExpired fires when a toast passes its dismissal deadline.
	OnToastExpired(uid string)
	// OnForcedLogout fires when the session became unusable (refresh failed
	// or a refreshed token was still rejected).
	OnForcedLogout(reason string)
	// OnError reports non-fatal background failures (snapshot polls, sends).
	OnError(message string)
}

// Options configures a Client. Zero-value fields fall back to production
// defaults; tests inject Transport and Clock.
type Options struct {
	Config    *config.Config
	Listener  Listener
	Clock     clock.Clock
	Transport realtime.Transport
}

// Client is the explicit state container for one user session. Construct one
// per logged-in user; there are no package-level singletons.
type Client struct {
	cfg      *config.Config
	clk      clock.Clock
	sessions *session.Store
	api      *api.Client
	rt       *realtime.Manager
	runtime  *store.Runtime
	queue    *notify.Queue

	dispatch  *dispatcher
	callbacks *dispatcher

	mu       sync.Mutex
	listener Listener
	// tracked maps subscription id to delivery UID for the snapshot poller.
	tracked map[string]string

	stopCh   chan struct{}
	stopOnce sync.Once
	bg       sync.WaitGroup
}

// NewClient wires up a Client from options.
func NewClient(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	c := &Client{
		cfg:       cfg,
		clk:       clk,
		sessions:  session.NewStore(),
		runtime:   store.New(store.Config{}),
		queue:     notify.New(clk),
		dispatch:  newDispatcher(256),
		callbacks: newDispatcher(256),
		listener:  opts.Listener,
		tracked:   make(map[string]string),
		stopCh:    make(chan struct{}),
	}

	c.api = api.New(cfg.ServerURL, cfg.RequestTimeout(), c.sessions)
	c.api.SetForcedLogoutHandler(func() {
		_ = c.dispatch.do(func() {
			c.teardown()
			c.emit(func(l Listener) { l.OnForcedLogout("session expired") })
		})
	})

	transport := opts.Transport
	if transport == nil {
		transport = realtime.NewSocketIOTransport(cfg.ServerURL, cfg.SocketPath, cfg.Debug)
	}
	c.rt = realtime.NewManager(realtime.Options{
		Transport: transport,
		TokenFn:   c.sessions.AccessToken,
		Clock:     clk,
		OnFrame: func(frame types.Frame) {
			if !c.runtime.Post(store.FrameEvent{Frame: frame, At: clk.Now()}) {
				logger.Warn().Str("frame_type", string(frame.Type)).Msg("event queue full, frame dropped")
			}
		},
		OnStateChange: func(state types.ConnectionState) {
			c.runtime.Post(store.ConnectionEvent{State: state})
			c.emit(func(l Listener) { l.OnConnectionStatus(state) })
		},
	})

	// Restore a persisted session if one exists; a missing file is normal.
	if err := c.sessions.Load(cfg.SessionFile()); err == nil {
		logger.Debug().Msg("restored persisted session")
	}

	c.runtime.Start()
	c.bg.Add(3)
	go c.pumpCommands()
	go c.sweepToasts()
	go c.pollSnapshots()
	return c, nil
}

// SetListener replaces the event listener.
func (c *Client) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// Close tears the client down: disconnects, stops background work and
// releases the HTTP transport. The session is left intact on disk.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.rt.Disconnect()
	c.runtime.Stop()
	c.bg.Wait()
	c.dispatch.close()
	c.callbacks.close()
	return c.api.Close()
}

// Login authenticates, loads the profile and persists the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if err := c.api.Login(ctx, email, password); err != nil {
		return err
	}
	profile, err := c.api.Profile(ctx)
	if err != nil {
		return err
	}
	c.sessions.SetProfile(profile)
	c.sessions.Touch(c.clk.Now())
	if err := c.sessions.Save(c.cfg.SessionFile()); err != nil {
		logger.Warn().Err(err).Msg("persist session")
	}
	return nil
}

// Logout tears down the connection and clears all local session state.
func (c *Client) Logout() {
	_, _ = c.dispatch.call(func() (any, error) {
		c.teardown()
		return nil, nil
	})
}

// teardown disconnects, empties the subscription set and notification
// queues, and wipes the session from memory and disk.
func (c *Client) teardown() {
	c.rt.Disconnect()
	c.rt.Subscriptions().Clear()
	c.queue.Clear()
	c.sessions.Clear()
	if err := os.Remove(c.cfg.SessionFile()); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("remove session file")
	}

	c.mu.Lock()
	c.tracked = make(map[string]string)
	c.mu.Unlock()
}

// tokenRefreshWindow triggers a proactive refresh before connecting when the
// access token is about to expire, instead of burning the first socket
// attempt on a 401.
const tokenRefreshWindow = time.Minute

// Connect opens the realtime connection using the current session token.
// No-op when already connecting or connected.
func (c *Client) Connect() {
	if c.sessions.Authenticated() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout())
		if err := c.api.EnsureFresh(ctx, c.clk.Now(), tokenRefreshWindow); err != nil {
			logger.Warn().Err(err).Msg("proactive token refresh failed")
		}
		cancel()
	}
	c.rt.Connect()
}

// Disconnect closes the realtime connection without touching the session.
func (c *Client) Disconnect() {
	c.rt.Disconnect()
}

// ConnectionState returns the current realtime connection snapshot.
func (c *Client) ConnectionState() types.ConnectionState {
	return c.rt.State()
}

// SubscribeDelivery subscribes to a delivery's realtime channel, kicks off a
// REST snapshot load and enrolls the delivery in the background poller.
// Duplicate subscriptions for the same delivery return the existing id.
func (c *Client) SubscribeDelivery(ctx context.Context, deliveryUID string) string {
	id := c.rt.Subscribe("delivery:" + deliveryUID)

	c.mu.Lock()
	c.tracked[id] = deliveryUID
	c.mu.Unlock()

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.RefreshDelivery(ctx, deliveryUID); err != nil {
			c.emit(func(l Listener) { l.OnError(fmt.Sprintf("snapshot load for %s: %v", deliveryUID, err)) })
		}
	}()
	return id
}

// Unsubscribe drops a subscription by id. Unknown ids are a no-op.
func (c *Client) Unsubscribe(id string) {
	c.rt.Unsubscribe(id)
	c.mu.Lock()
	delete(c.tracked, id)
	c.mu.Unlock()
}

// RefreshDelivery fetches the authoritative REST snapshot for a delivery and
// merges it. A response that was overtaken by a newer refresh is discarded.
func (c *Client) RefreshDelivery(ctx context.Context, deliveryUID string) error {
	gen := c.runtime.BeginSnapshot(deliveryUID)
	delivery, err := c.api.Delivery(ctx, deliveryUID)
	if err != nil {
		return err
	}
	c.runtime.Post(store.SnapshotLoadedEvent{DeliveryUID: deliveryUID, Gen: gen, Delivery: *delivery})
	return nil
}

// LoadMessages fetches a delivery's conversation and replaces the local copy.
func (c *Client) LoadMessages(ctx context.Context, deliveryUID string) error {
	page, err := c.api.DeliveryMessages(ctx, deliveryUID)
	if err != nil {
		return err
	}
	c.runtime.Post(store.MessagesLoadedEvent{DeliveryUID: deliveryUID, Messages: page.Messages})
	return nil
}

// SendMessage posts a chat message and appends the server's echo to the
// conversation.
func (c *Client) SendMessage(ctx context.Context, deliveryUID, content string, msgType types.MessageType) error {
	if msgType == "" {
		msgType = types.MessageText
	}
	msg, err := c.api.SendDeliveryMessage(ctx, deliveryUID, types.SendMessageRequest{
		MessageType: msgType,
		Content:     content,
	})
	if err != nil {
		return err
	}
	c.runtime.Post(store.MessageSentEvent{Message: *msg})
	return nil
}

// LoadNotifications fetches a notification page and merges it. Page 1
// replaces the local list; later pages append. The server unread count wins.
func (c *Client) LoadNotifications(ctx context.Context, page int, unreadOnly bool) error {
	res, err := c.api.Notifications(ctx, page, unreadOnly)
	if err != nil {
		return err
	}
	c.queue.LoadPage(*res)
	return nil
}

// MarkRead marks one notification read, server first. Local state only
// changes when the REST call succeeded.
func (c *Client) MarkRead(ctx context.Context, uid string) error {
	if err := c.api.MarkNotificationRead(ctx, uid); err != nil {
		return err
	}
	c.queue.MarkRead(uid)
	return nil
}

// MarkAllRead marks every notification read, server first.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.api.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}
	c.queue.MarkAllRead()
	return nil
}

// DismissToast removes a toast. Safe to call for an already-gone toast.
func (c *Client) DismissToast(uid string) {
	c.queue.DismissToast(uid)
}

// Authenticated reports whether a usable session exists.
func (c *Client) Authenticated() bool {
	return c.sessions.Authenticated()
}

// Profile returns the authenticated user's profile, or nil.
func (c *Client) Profile() *types.Profile {
	return c.sessions.Profile()
}

// State returns a deep copy of the reconciled client state.
func (c *Client) State() store.State {
	return c.runtime.Snapshot()
}

// Notifications returns the durable notification list, newest first.
func (c *Client) Notifications() []types.Notification {
	return c.queue.Durable()
}

// Toasts returns the active toast queue.
func (c *Client) Toasts() []notify.Toast {
	return c.queue.Toasts()
}

// UnreadCount returns the unread notification count.
func (c *Client) UnreadCount() int {
	return c.queue.UnreadCount()
}

// InFlight returns the number of REST requests currently pending, for UI
// loading indicators.
func (c *Client) InFlight() int64 {
	return c.api.InFlight()
}

// emit schedules a listener callback on the callback dispatcher.
func (c *Client) emit(fn func(Listener)) {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l == nil {
		return
	}
	_ = c.callbacks.do(func() { fn(l) })
}

// pumpCommands applies reconciler effects: durable and toast notifications
// land in the queue, delivery changes fan out to the listener.
func (c *Client) pumpCommands() {
	defer c.bg.Done()
	for cmd := range c.runtime.Commands() {
		switch cmd := cmd.(type) {
		case store.AddDurableCommand:
			c.queue.AddDurable(cmd.Notification)
		case store.AddToastCommand:
			toast := c.queue.AddToast(cmd.Notification)
			c.emit(func(l Listener) { l.OnToast(toast) })
		case store.DeliveryChangedCommand:
			uid := cmd.DeliveryUID
			c.emit(func(l Listener) { l.OnDeliveryUpdate(uid) })
		}
	}
}

// sweepToasts removes toasts whose deadline has passed.
func (c *Client) sweepToasts() {
	defer c.bg.Done()
	ticker := time.NewTicker(toastSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			for _, t := range c.queue.ExpireDue(c.clk.Now()) {
				uid := t.Notification.UID
				c.emit(func(l Listener) { l.OnToastExpired(uid) })
			}
		}
	}
}

// pollSnapshots periodically re-fetches REST snapshots for every tracked
// delivery so realtime drift gets reconciled against the source of truth.
func (c *Client) pollSnapshots() {
	defer c.bg.Done()
	interval := c.cfg.SnapshotPollInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if !c.sessions.Authenticated() {
				continue
			}
			timeout := c.cfg.RequestTimeout()
			if timeout <= 0 {
				timeout = 15 * time.Second
			}
			for _, uid := range c.trackedDeliveries() {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				if err := c.RefreshDelivery(ctx, uid); err != nil {
					logger.Debug().Err(err).Str("delivery_uid", uid).Msg("snapshot poll failed")
				}
				cancel()
			}
		}
	}
}

func (c *Client) trackedDeliveries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.tracked))
	uids := make([]string, 0, len(c.tracked))
	for _, uid := range c.tracked {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		uids = append(uids, uid)
	}
	return uids
}
