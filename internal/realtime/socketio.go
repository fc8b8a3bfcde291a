package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	socket "github.com/zishang520/socket.io/clients/socket/v3"
	siotypes "github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/swiftparcel/client-go/pkg/logger"
	"github.com/swiftparcel/client-go/pkg/types"
)

// frameEvents are the inbound event names carried over the socket.
var frameEvents = []types.FrameType{
	types.FrameCourierLocation,
	types.FrameDeliveryStatus,
	types.FrameSystemNotify,
	types.FrameChatMessage,
}

// SocketIOTransport dials Socket.IO connections to the backend.
type SocketIOTransport struct {
	serverURL string
	path      string
	debug     bool
}

// NewSocketIOTransport creates a transport for the given server and mount path.
func NewSocketIOTransport(serverURL, path string, debug bool) *SocketIOTransport {
	return &SocketIOTransport{serverURL: serverURL, path: path, debug: debug}
}

// Dial opens a Socket.IO connection authenticated with the given token.
//
// Library-level reconnection is disabled: retry policy belongs to the Manager
// so that every attempt picks up the current session token.
func (t *SocketIOTransport) Dial(token string, cb Callbacks) (Conn, error) {
	opts := socket.DefaultOptions()
	opts.SetPath(t.path)
	opts.SetTransports(siotypes.NewSet(socket.Polling, socket.WebSocket))
	opts.SetReconnection(false)
	opts.SetAuth(map[string]interface{}{"token": token})

	if t.debug {
		logger.Debug().Str("url", t.serverURL).Str("path", t.path).Msg("dialing socket.io")
	}

	sock, err := socket.Connect(t.serverURL, opts)
	if err != nil {
		return nil, fmt.Errorf("socket.io connect: %w", err)
	}
	conn := &socketIOConn{sock: sock}

	sock.On(siotypes.EventName("connect"), func(args ...any) {
		if cb.OnConnect != nil {
			cb.OnConnect()
		}
	})
	sock.On(siotypes.EventName("connect_error"), func(args ...any) {
		err := fmt.Errorf("connect error")
		if len(args) > 0 {
			err = fmt.Errorf("connect error: %v", args[0])
		}
		if cb.OnConnectError != nil {
			cb.OnConnectError(err)
		}
	})
	sock.On(siotypes.EventName("disconnect"), func(args ...any) {
		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		if cb.OnDisconnect != nil {
			cb.OnDisconnect(reason)
		}
	})

	for _, frameType := range frameEvents {
		sock.On(siotypes.EventName(frameType), func(args ...any) {
			frame, err := frameFromArgs(frameType, args)
			if err != nil {
				logger.Warn().Err(err).Str("frame_type", string(frameType)).Msg("dropping malformed frame")
				return
			}
			if cb.OnFrame != nil {
				cb.OnFrame(frame)
			}
		})
	}

	return conn, nil
}

// frameFromArgs converts a raw Socket.IO event payload into a typed frame.
func frameFromArgs(frameType types.FrameType, args []any) (types.Frame, error) {
	if len(args) == 0 {
		return types.Frame{}, fmt.Errorf("missing payload")
	}
	payload, err := json.Marshal(args[0])
	if err != nil {
		return types.Frame{}, fmt.Errorf("encode payload: %w", err)
	}

	frame := types.Frame{Type: frameType, Payload: payload}
	if m, ok := args[0].(map[string]interface{}); ok {
		if channel, ok := m["channel"].(string); ok {
			frame.Channel = channel
		}
	}
	return frame, nil
}

// socketIOConn adapts a live socket to the Conn interface.
type socketIOConn struct {
	mu   sync.Mutex
	sock *socket.Socket
}

// Emit sends a named event to the server.
func (c *socketIOConn) Emit(event string, data map[string]any) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return fmt.Errorf("connection closed")
	}
	sock.Emit(event, data)
	return nil
}

// Ping measures one round-trip using an acked ping event.
func (c *socketIOConn) Ping() (time.Duration, error) {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return 0, fmt.Errorf("connection closed")
	}

	start := time.Now()
	done := make(chan struct{}, 1)
	sock.Emit("ping", map[string]any{"time": start.UnixMilli()}, func(args []any, err error) {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	select {
	case <-done:
		return time.Since(start), nil
	case <-time.After(5 * time.Second):
		return 0, fmt.Errorf("ping timeout")
	}
}

// Close disconnects the socket.
func (c *socketIOConn) Close() error {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()
	if sock != nil {
		sock.Disconnect()
	}
	return nil
}
