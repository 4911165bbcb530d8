package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

func newTestHandler() (*NotificationHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewNotificationHandler(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNotificationHandler_Handle(t *testing.T) {
	t.Run("logs order confirmation", func(t *testing.T) {
		h, buf := newTestHandler()
		payload, err := json.Marshal(domain.OrderCreatedEvent{
			EventID:    "evt-1",
			OrderID:    7,
			UserID:     "user-1",
			Items:      []domain.OrderItem{{DishID: 1, Quantity: 2}},
			TotalPrice: decimal.RequireFromString("24.98"),
			Timestamp:  time.Now(),
		})
		require.NoError(t, err)

		require.NoError(t, h.Handle(context.Background(), domain.EventOrderCreated, payload))

		entry := decodeLog(t, buf)
		assert.Equal(t, "customer notified", entry["msg"])
		assert.Equal(t, "order_confirmation", entry["kind"])
		assert.Equal(t, "24.98", entry["total_price"])
		assert.Equal(t, float64(7), entry["order_id"])
	})

	t.Run("logs status change", func(t *testing.T) {
		h, buf := newTestHandler()
		payload, err := json.Marshal(domain.OrderStatusChangedEvent{
			EventID: "evt-2",
			OrderID: 7,
			UserID:  "user-1",
			Status:  domain.OrderStatusCancelled,
		})
		require.NoError(t, err)

		require.NoError(t, h.Handle(context.Background(), domain.EventOrderStatusChanged, payload))

		entry := decodeLog(t, buf)
		assert.Equal(t, "order_status", entry["kind"])
		assert.Equal(t, "CANCELLED", entry["status"])
		assert.Equal(t, "Your order #7 has been cancelled.", entry["message"])
	})

	t.Run("fails on malformed payload", func(t *testing.T) {
		h, _ := newTestHandler()
		err := h.Handle(context.Background(), domain.EventOrderCreated, []byte("{"))
		assert.Error(t, err)
	})

	t.Run("skips unknown topics", func(t *testing.T) {
		h, buf := newTestHandler()
		require.NoError(t, h.Handle(context.Background(), "menu.updated", []byte("{}")))
		assert.Equal(t, "WARN", decodeLog(t, buf)["level"])
	})
}
