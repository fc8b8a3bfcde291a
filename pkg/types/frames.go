package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// FrameType identifies an inbound realtime event.
type FrameType string

const (
	FrameCourierLocation FrameType = "courier_location_update"
	FrameDeliveryStatus  FrameType = "delivery_status_changed"
	FrameSystemNotify    FrameType = "system_notification"
	FrameChatMessage     FrameType = "chat_message"
)

// Frame is the envelope carried on the realtime connection.
//
// Payload stays raw until the frame type is known; DecodePayload performs the
// typed decode.
type Frame struct {
	Type    FrameType       `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// CourierLocationPayload is the body of a courier_location_update frame.
type CourierLocationPayload struct {
	DeliveryUID string `json:"delivery_uid"`
	Location    struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Accuracy  float64 `json:"accuracy,omitempty"`
		Heading   float64 `json:"heading,omitempty"`
	} `json:"courier_location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryStatusPayload is the body of a delivery_status_changed frame.
type DeliveryStatusPayload struct {
	DeliveryUID     string       `json:"delivery_uid"`
	Status          string       `json:"status"`
	StatusTimestamp time.Time    `json:"status_timestamp"`
	Courier         *CourierInfo `json:"courier_info,omitempty"`
}

// SystemNotificationPayload is the body of a system_notification frame.
type SystemNotificationPayload struct {
	NotificationUID string               `json:"notification_uid"`
	Title           string               `json:"title"`
	Message         string               `json:"message"`
	Priority        NotificationPriority `json:"priority"`
	ActionURL       string               `json:"action_url,omitempty"`
	Metadata        map[string]any       `json:"metadata,omitempty"`
}

// ChatMessagePayload is the body of a chat_message frame.
type ChatMessagePayload struct {
	MessageUID  string    `json:"message_uid"`
	DeliveryUID string    `json:"delivery_uid"`
	SenderInfo  struct {
		UID  string `json:"uid"`
		Type string `json:"type"`
		Name string `json:"name,omitempty"`
	} `json:"sender_info"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
}

// DecodePayload decodes the frame payload into the type matching f.Type.
//
// The returned value is one of *CourierLocationPayload,
// *DeliveryStatusPayload, *SystemNotificationPayload or *ChatMessagePayload.
func (f Frame) DecodePayload() (any, error) {
	switch f.Type {
	case FrameCourierLocation:
		var p CourierLocationPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode courier location payload: %w", err)
		}
		return &p, nil
	case FrameDeliveryStatus:
		var p DeliveryStatusPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode delivery status payload: %w", err)
		}
		return &p, nil
	case FrameSystemNotify:
		var p SystemNotificationPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode system notification payload: %w", err)
		}
		return &p, nil
	case FrameChatMessage:
		var p ChatMessagePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode chat message payload: %w", err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}
