// Package api is the REST adapter for the SwiftParcel backend.
//
// Every outbound request reads the bearer token from the session store at
// send time. A 401 triggers a single-flight token refresh followed by exactly
// one replay of the original request; if the refresh itself fails the session
// is cleared and the failure surfaces as an authentication error.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	resty "resty.dev/v3"

	"github.com/swiftparcel/client-go/internal/session"
	"github.com/swiftparcel/client-go/pkg/logger"
	"github.com/swiftparcel/client-go/pkg/types"
)

const (
	loginPath         = "/api/v1/auth/login"
	refreshPath       = "/api/v1/auth/refresh"
	profilePath       = "/api/v1/auth/profile"
	notificationsPath = "/api/v1/notifications"
)

// Client wraps REST access to the backend.
type Client struct {
	rest     *resty.Client
	sessions *session.Store

	refreshGroup singleflight.Group
	inFlight     atomic.Int64

	// onForcedLogout fires after a failed refresh clears the session.
	onForcedLogout func()
}

// New creates a REST client bound to the given session store.
func New(baseURL string, timeout time.Duration, sessions *session.Store) *Client {
	c := &Client{
		rest:     resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		sessions: sessions,
	}
	c.rest.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		// Token is read at send time, not at construction time, so refreshed
		// tokens apply to requests already queued behind the refresh.
		if token := sessions.AccessToken(); token != "" {
			req.SetAuthToken(token)
		}
		return nil
	})
	return c
}

// SetForcedLogoutHandler registers a callback invoked when a token refresh
// fails terminally.
func (c *Client) SetForcedLogoutHandler(fn func()) {
	c.onForcedLogout = fn
}

// InFlight returns the number of requests currently awaiting a response.
// UI layers use it for loading indicators.
func (c *Client) InFlight() int64 {
	return c.inFlight.Load()
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.rest.Close()
}

// Login authenticates with email/password and installs the token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var tokens types.TokenResponse
	err := c.do(ctx, "POST", loginPath, types.LoginRequest{Email: email, Password: password}, &tokens)
	if err != nil {
		return err
	}
	c.sessions.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

// Profile fetches the authenticated user's identity and stores it.
func (c *Client) Profile(ctx context.Context) (*types.Profile, error) {
	var profile types.Profile
	if err := c.do(ctx, "GET", profilePath, nil, &profile); err != nil {
		return nil, err
	}
	c.sessions.SetProfile(&profile)
	return &profile, nil
}

// Notifications fetches one page of durable notifications.
func (c *Client) Notifications(ctx context.Context, page int, unreadOnly bool) (*types.NotificationPage, error) {
	values := url.Values{}
	if page > 0 {
		values.Set("page", fmt.Sprint(page))
	}
	if unreadOnly {
		values.Set("unread_only", "true")
	}
	path := notificationsPath
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var result types.NotificationPage
	if err := c.do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	if result.Page == 0 {
		result.Page = page
	}
	return &result, nil
}

// MarkNotificationRead marks one durable notification read server-side.
func (c *Client) MarkNotificationRead(ctx context.Context, uid string) error {
	path := fmt.Sprintf("%s/%s/read", notificationsPath, url.PathEscape(uid))
	return c.do(ctx, "PUT", path, nil, nil)
}

// MarkAllNotificationsRead marks every durable notification read server-side.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, "PUT", notificationsPath+"/mark-all-read", nil, nil)
}

// DeliveryMessages fetches the conversation for a delivery.
func (c *Client) DeliveryMessages(ctx context.Context, deliveryUID string) (*types.MessagePage, error) {
	path := fmt.Sprintf("/api/v1/deliveries/%s/messages", url.PathEscape(deliveryUID))
	var result types.MessagePage
	if err := c.do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendDeliveryMessage posts a chat message to a delivery conversation and
// returns the server-confirmed message.
func (c *Client) SendDeliveryMessage(ctx context.Context, deliveryUID string, req types.SendMessageRequest) (*types.ChatMessage, error) {
	path := fmt.Sprintf("/api/v1/deliveries/%s/messages", url.PathEscape(deliveryUID))
	var result types.ChatMessage
	if err := c.do(ctx, "POST", path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delivery fetches the tracking snapshot for one delivery.
func (c *Client) Delivery(ctx context.Context, deliveryUID string) (*types.Delivery, error) {
	path := fmt.Sprintf("/api/v1/deliveries/%s", url.PathEscape(deliveryUID))
	var result types.Delivery
	if err := c.do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EnsureFresh refreshes the token pair when the access token is expired or
// expires within window. Tokens without a readable expiry are left alone; a
// 401 on the next request handles them reactively.
func (c *Client) EnsureFresh(ctx context.Context, now time.Time, window time.Duration) error {
	if c.sessions.RefreshToken() == "" {
		return nil
	}
	if !c.sessions.ExpiringSoon(now, window) {
		return nil
	}
	return c.refresh(ctx)
}

// do executes one request with the 401-refresh-replay policy applied.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	res, err := c.execute(ctx, method, path, body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "request failed", Err: err}
	}

	if res.StatusCode() == 401 && c.sessions.RefreshToken() != "" {
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			// Refresh failed: clear the session and propagate the original 401.
			c.sessions.Clear()
			if c.onForcedLogout != nil {
				c.onForcedLogout()
			}
			return apiErrorFrom(res)
		}
		res, err = c.execute(ctx, method, path, body)
		if err != nil {
			return &Error{Kind: KindNetwork, Message: "request failed after refresh", Err: err}
		}
		if res.StatusCode() == 401 {
			// The refreshed token was rejected too. Do not loop.
			c.sessions.Clear()
			if c.onForcedLogout != nil {
				c.onForcedLogout()
			}
		}
	}

	if !res.IsSuccess() {
		return apiErrorFrom(res)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Bytes(), out); err != nil {
		return &Error{Kind: KindServer, Status: res.StatusCode(), Message: "malformed response body", Err: err}
	}
	return nil
}

// execute performs the raw HTTP exchange.
func (c *Client) execute(ctx context.Context, method, path string, body any) (*resty.Response, error) {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	return req.Execute(method, path)
}

// refresh exchanges the refresh token for a new token pair.
//
// Concurrent 401s collapse onto a single in-flight refresh; everyone waits on
// the same result instead of issuing independent refresh calls.
func (c *Client) refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("token-refresh", func() (any, error) {
		refreshToken := c.sessions.RefreshToken()
		if refreshToken == "" {
			return nil, &Error{Kind: KindAuth, Message: "no refresh token"}
		}

		res, err := c.execute(ctx, "POST", refreshPath, types.RefreshRequest{RefreshToken: refreshToken})
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Message: "refresh request failed", Err: err}
		}
		if !res.IsSuccess() {
			return nil, apiErrorFrom(res)
		}

		var tokens types.TokenResponse
		if err := json.Unmarshal(res.Bytes(), &tokens); err != nil {
			return nil, &Error{Kind: KindServer, Status: res.StatusCode(), Message: "malformed refresh response", Err: err}
		}
		if tokens.AccessToken == "" {
			return nil, &Error{Kind: KindAuth, Message: "refresh returned empty token"}
		}

		c.sessions.SetTokens(tokens.AccessToken, tokens.RefreshToken)
		logger.Debug().Msg("access token refreshed")
		return nil, nil
	})
	return err
}

// apiErrorFrom builds a classified error from a non-2xx response.
func apiErrorFrom(res *resty.Response) *Error {
	apiErr := &Error{
		Kind:   classify(res.StatusCode()),
		Status: res.StatusCode(),
	}
	var body types.APIError
	if err := json.Unmarshal(res.Bytes(), &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = res.Status()
	}
	return apiErr
}
