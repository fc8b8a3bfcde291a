package store

import (
	"fmt"

	"github.com/swiftparcel/client-go/pkg/types"
)

// applyFrame merges one inbound frame into the state.
//
// Frames are applied strictly in arrival order: a later-arriving frame for the
// same key replaces an earlier one even when its embedded timestamp is older.
// Changing that requires a sequence-number contract with the backend.
func applyFrame(s *State, evt FrameEvent) ([]Command, error) {
	payload, err := evt.Frame.DecodePayload()
	if err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case *types.CourierLocationPayload:
		s.CourierLocations[p.DeliveryUID] = types.CourierLocation{
			DeliveryUID: p.DeliveryUID,
			Latitude:    p.Location.Latitude,
			Longitude:   p.Location.Longitude,
			Heading:     p.Location.Heading,
			Accuracy:    p.Location.Accuracy,
			UpdatedAt:   p.UpdatedAt,
		}
		return []Command{DeliveryChangedCommand{DeliveryUID: p.DeliveryUID}}, nil

	case *types.DeliveryStatusPayload:
		s.DeliveryStatuses[p.DeliveryUID] = types.DeliveryStatus{
			DeliveryUID: p.DeliveryUID,
			Status:      p.Status,
			Timestamp:   p.StatusTimestamp,
			Courier:     p.Courier,
		}
		return []Command{
			DeliveryChangedCommand{DeliveryUID: p.DeliveryUID},
			AddDurableCommand{Notification: types.Notification{
				Type:        types.NotificationDeliveryStatus,
				Title:       "Delivery update",
				Message:     fmt.Sprintf("Delivery %s is now %s", p.DeliveryUID, p.Status),
				Priority:    types.PriorityNormal,
				CreatedAt:   evt.At,
				ActionURL:   "/track/" + p.DeliveryUID,
				Dismissible: true,
			}},
		}, nil

	case *types.SystemNotificationPayload:
		n := types.Notification{
			UID:         p.NotificationUID,
			Type:        types.NotificationSystem,
			Title:       p.Title,
			Message:     p.Message,
			Priority:    p.Priority,
			CreatedAt:   evt.At,
			ActionURL:   p.ActionURL,
			Dismissible: true,
			Metadata:    p.Metadata,
		}
		// System notifications land in both the center and the toast queue.
		return []Command{
			AddDurableCommand{Notification: n},
			AddToastCommand{Notification: n},
		}, nil

	case *types.ChatMessagePayload:
		msg := types.ChatMessage{
			MessageUID:  p.MessageUID,
			DeliveryUID: p.DeliveryUID,
			SenderUID:   p.SenderInfo.UID,
			SenderType:  p.SenderInfo.Type,
			MessageType: p.MessageType,
			Content:     p.Content,
			Timestamp:   p.Timestamp,
		}
		s.ChatMessages[p.DeliveryUID] = append(s.ChatMessages[p.DeliveryUID], msg)
		// Chat messages get a toast but never a durable entry; the message
		// itself lives in the conversation, not the notification center.
		return []Command{
			DeliveryChangedCommand{DeliveryUID: p.DeliveryUID},
			AddToastCommand{Notification: types.Notification{
				Type:        types.NotificationSystem,
				Title:       "New message",
				Message:     toastPreview(msg),
				Priority:    types.PriorityNormal,
				CreatedAt:   evt.At,
				ActionURL:   "/track/" + p.DeliveryUID,
				Dismissible: true,
				Metadata:    map[string]any{"delivery_uid": p.DeliveryUID, "message_uid": p.MessageUID},
			}},
		}, nil

	default:
		return nil, fmt.Errorf("unhandled frame type %q", evt.Frame.Type)
	}
}

// applySnapshot merges an authoritative REST snapshot for one delivery.
func applySnapshot(s *State, evt SnapshotLoadedEvent) []Command {
	d := evt.Delivery
	if d.Status.DeliveryUID != "" {
		s.DeliveryStatuses[d.Status.DeliveryUID] = d.Status
	}
	if d.Location != nil {
		s.CourierLocations[d.Location.DeliveryUID] = *d.Location
	}
	return []Command{DeliveryChangedCommand{DeliveryUID: evt.DeliveryUID}}
}

// toastPreview renders a short toast body for a chat message.
func toastPreview(msg types.ChatMessage) string {
	switch msg.MessageType {
	case types.MessagePhoto:
		return "Sent a photo"
	case types.MessageLocation:
		return "Shared a location"
	default:
		const maxPreview = 80
		if len(msg.Content) > maxPreview {
			return msg.Content[:maxPreview] + "…"
		}
		return msg.Content
	}
}
