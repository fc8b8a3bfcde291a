package types

import "time"

// ConnectionStatus describes the realtime connection lifecycle.
type ConnectionStatus string

const (
	// StatusDisconnected means no connection exists and none is being attempted.
	StatusDisconnected ConnectionStatus = "disconnected"
	// StatusConnecting means a connection or reconnection attempt is in flight.
	StatusConnecting ConnectionStatus = "connecting"
	// StatusConnected means the socket is live and authenticated.
	StatusConnected ConnectionStatus = "connected"
	// StatusError means the last attempt failed and a retry is scheduled.
	StatusError ConnectionStatus = "error"
)

// ConnectionQuality is a coarse signal derived from ping round-trips.
type ConnectionQuality string

const (
	QualityPoor      ConnectionQuality = "poor"
	QualityFair      ConnectionQuality = "fair"
	QualityGood      ConnectionQuality = "good"
	QualityExcellent ConnectionQuality = "excellent"
)

// ConnectionState is the externally visible connection snapshot.
type ConnectionState struct {
	Status            ConnectionStatus  `json:"status"`
	ReconnectAttempts int               `json:"reconnect_attempts"`
	LastPing          time.Time         `json:"last_ping"`
	Quality           ConnectionQuality `json:"connection_quality"`
}

// CourierLocation is a live courier position for one delivery.
//
// Entries replace each other by arrival order; embedded timestamps are
// informational only.
type CourierLocation struct {
	DeliveryUID string    `json:"delivery_uid"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Heading     float64   `json:"heading,omitempty"`
	Accuracy    float64   `json:"accuracy,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourierInfo identifies the courier assigned to a delivery.
type CourierInfo struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// DeliveryStatus is the latest known status for one delivery.
type DeliveryStatus struct {
	DeliveryUID string       `json:"delivery_uid"`
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	Courier     *CourierInfo `json:"courier_info,omitempty"`
}

// NotificationType classifies notifications for routing and display.
type NotificationType string

const (
	NotificationDeliveryStatus NotificationType = "delivery_status"
	NotificationPayment        NotificationType = "payment"
	NotificationSystem         NotificationType = "system"
	NotificationEmergency      NotificationType = "emergency"
)

// NotificationPriority orders notifications and selects toast durations.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification is a durable (notification center) or transient (toast) alert.
type Notification struct {
	UID         string               `json:"uid"`
	Type        NotificationType     `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Priority    NotificationPriority `json:"priority"`
	IsRead      bool                 `json:"is_read"`
	CreatedAt   time.Time            `json:"created_at"`
	ActionURL   string               `json:"action_url,omitempty"`
	Dismissible bool                 `json:"dismissible"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
}

// MessageType classifies chat message content.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessagePhoto    MessageType = "photo"
	MessageLocation MessageType = "location"
)

// ChatMessage is one entry in a delivery conversation.
//
// Conversations are append-only; ordering is arrival order.
type ChatMessage struct {
	MessageUID  string      `json:"message_uid"`
	DeliveryUID string      `json:"delivery_uid"`
	SenderUID   string      `json:"sender_uid"`
	SenderType  string      `json:"sender_type"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	IsRead      bool        `json:"is_read"`
}

// Profile is the authenticated user's identity as returned by the backend.
type Profile struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Delivery is the REST snapshot of one delivery used by the tracking view.
type Delivery struct {
	UID      string           `json:"uid"`
	Status   DeliveryStatus   `json:"status"`
	Location *CourierLocation `json:"courier_location,omitempty"`
}
