package types

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NotificationPage is one page of durable notifications.
//
// UnreadCount is the server-side authoritative value and overrides any count
// the client accumulated from realtime increments.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	TotalPages    int            `json:"total_pages"`
	UnreadCount   int            `json:"unread_count"`
}

// MessagePage is one page of chat messages for a delivery.
type MessagePage struct {
	Messages []ChatMessage `json:"messages"`
}

// SendMessageRequest is the body of POST /api/v1/deliveries/{uid}/messages.
type SendMessageRequest struct {
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
}

// APIError is the error body returned by the backend on non-2xx responses.
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
