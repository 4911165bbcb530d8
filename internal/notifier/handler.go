package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

// Topics are the event streams the notifier subscribes to.
var Topics = []string{domain.EventOrderCreated, domain.EventOrderStatusChanged}

type NotificationHandler struct {
	logger *slog.Logger
}

func NewNotificationHandler(logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{logger: logger}
}

func (h *NotificationHandler) Handle(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case domain.EventOrderCreated:
		var event domain.OrderCreatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("unmarshal order created event: %w", err)
		}
		h.logger.InfoContext(ctx, "customer notified",
			"kind", "order_confirmation",
			"event_id", event.EventID,
			"order_id", event.OrderID,
			"user_id", event.UserID,
			"items", len(event.Items),
			"total_price", event.TotalPrice.StringFixed(2),
			"message", fmt.Sprintf("Your order #%d has been received. Total: %s.", event.OrderID, event.TotalPrice.StringFixed(2)),
		)

	case domain.EventOrderStatusChanged:
		var event domain.OrderStatusChangedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("unmarshal order status changed event: %w", err)
		}
		h.logger.InfoContext(ctx, "customer notified",
			"kind", "order_status",
			"event_id", event.EventID,
			"order_id", event.OrderID,
			"user_id", event.UserID,
			"changed_by", event.ChangedBy,
			"status", event.Status,
			"message", statusMessage(event.OrderID, event.Status),
		)

	default:
		h.logger.WarnContext(ctx, "skipping event from unknown topic", "topic", topic)
	}

	return nil
}

func statusMessage(orderID int64, status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusInProgress:
		return fmt.Sprintf("Your order #%d is being prepared.", orderID)
	case domain.OrderStatusCompleted:
		return fmt.Sprintf("Your order #%d is complete. Enjoy your meal!", orderID)
	case domain.OrderStatusCancelled:
		return fmt.Sprintf("Your order #%d has been cancelled.", orderID)
	default:
		return fmt.Sprintf("Your order #%d is now %s.", orderID, status)
	}
}
