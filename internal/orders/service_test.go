package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

type cartRow struct {
	userID string
	line   domain.CheckoutLine
}

type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	cart   map[int64]cartRow
	orders map[int64]*domain.Order
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		cart:   map[int64]cartRow{},
		orders: map[int64]*domain.Order{},
	}
}

func (m *memoryStore) addCartItem(userID string, id, dishID int64, name string, qty int, price string) {
	m.cart[id] = cartRow{userID: userID, line: domain.CheckoutLine{
		CartItemID: id,
		DishID:     dishID,
		DishName:   name,
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(price),
	}}
}

func (m *memoryStore) CreateFromCart(_ context.Context, userID string, ids []int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lines []domain.CheckoutLine
	for _, id := range ids {
		if row, ok := m.cart[id]; ok && row.userID == userID {
			lines = append(lines, row.line)
		}
	}
	if len(lines) == 0 {
		return nil, domain.ErrNoValidItems
	}

	m.nextID++
	order := &domain.Order{
		ID:         m.nextID,
		UserID:     userID,
		TotalPrice: domain.OrderTotal(lines),
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	for i, l := range lines {
		order.Items = append(order.Items, domain.OrderItem{
			ID: int64(i + 1), DishID: l.DishID, DishName: l.DishName, Quantity: l.Quantity, UnitPrice: l.UnitPrice,
		})
		delete(m.cart, l.CartItemID)
	}
	m.orders[order.ID] = order

	copied := *order
	return &copied, nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	copied := *order
	return &copied, nil
}

func (m *memoryStore) List(_ context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := []domain.Order{}
	for _, o := range m.orders {
		if userID == "" || o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus, check func(string) error) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return "", fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err := check(order.UserID); err != nil {
		return order.UserID, err
	}
	order.Status = status
	return order.UserID, nil
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return p.err
}

// stalledPublisher blocks until the publish context ends, like a writer
// retrying against an unreachable broker.
type stalledPublisher struct {
	err error
}

func (p *stalledPublisher) Publish(ctx context.Context, _, _ string, _ any) error {
	<-ctx.Done()
	p.err = ctx.Err()
	return p.err
}

func newTestService(t *testing.T, store Store, publisher Publisher) *Service {
	t.Helper()
	svc, err := NewService(store, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

var (
	alice = domain.Actor{UserID: "alice"}
	bob   = domain.Actor{UserID: "bob"}
	staff = domain.Actor{UserID: "carol", Staff: true}
)

func TestService_CreateFromCart(t *testing.T) {
	ctx := context.Background()

	t.Run("totals the selected items and consumes them", func(t *testing.T) {
		store := newMemoryStore()
		store.addCartItem("alice", 1, 10, "Margherita", 2, "9.99")
		store.addCartItem("alice", 2, 11, "Tiramisu", 1, "5.00")
		store.addCartItem("alice", 3, 12, "Espresso", 1, "2.50")
		publisher := &recordingPublisher{}
		svc := newTestService(t, store, publisher)

		order, err := svc.CreateFromCart(ctx, alice, []int64{1, 2})
		require.NoError(t, err)

		assert.Equal(t, "24.98", order.TotalPrice.StringFixed(2))
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Equal(t, "alice", order.UserID)
		assert.Len(t, order.Items, 2)
		assert.NotContains(t, store.cart, int64(1))
		assert.NotContains(t, store.cart, int64(2))
		assert.Contains(t, store.cart, int64(3))

		require.Len(t, publisher.events, 1)
		assert.Equal(t, domain.EventOrderCreated, publisher.events[0].topic)
		assert.Equal(t, "1", publisher.events[0].key)
		event, ok := publisher.events[0].event.(domain.OrderCreatedEvent)
		require.True(t, ok)
		assert.NotEmpty(t, event.EventID)
		assert.True(t, event.TotalPrice.Equal(order.TotalPrice))
	})

	t.Run("ignores items owned by someone else", func(t *testing.T) {
		store := newMemoryStore()
		store.addCartItem("alice", 1, 10, "Margherita", 1, "9.99")
		store.addCartItem("bob", 2, 11, "Tiramisu", 1, "5.00")
		svc := newTestService(t, store, nil)

		order, err := svc.CreateFromCart(ctx, alice, []int64{1, 2, 999})
		require.NoError(t, err)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "9.99", order.TotalPrice.StringFixed(2))
		assert.Contains(t, store.cart, int64(2))
	})

	t.Run("fails when nothing resolves", func(t *testing.T) {
		store := newMemoryStore()
		store.addCartItem("bob", 2, 11, "Tiramisu", 1, "5.00")
		publisher := &recordingPublisher{}
		svc := newTestService(t, store, publisher)

		_, err := svc.CreateFromCart(ctx, alice, []int64{2})
		assert.ErrorIs(t, err, domain.ErrNoValidItems)
		assert.Empty(t, store.orders)
		assert.Empty(t, publisher.events)
	})

	t.Run("publish failures do not fail checkout", func(t *testing.T) {
		store := newMemoryStore()
		store.addCartItem("alice", 1, 10, "Margherita", 1, "9.99")
		svc := newTestService(t, store, &recordingPublisher{err: errors.New("broker down")})

		_, err := svc.CreateFromCart(ctx, alice, []int64{1})
		assert.NoError(t, err)
	})

	t.Run("stalled broker does not hold the checkout", func(t *testing.T) {
		store := newMemoryStore()
		store.addCartItem("alice", 1, 10, "Margherita", 1, "9.99")
		publisher := &stalledPublisher{}
		svc := newTestService(t, store, publisher)
		svc.publishTimeout = 20 * time.Millisecond

		start := time.Now()
		order, err := svc.CreateFromCart(ctx, alice, []int64{1})
		require.NoError(t, err)

		assert.Less(t, time.Since(start), 2*time.Second)
		assert.ErrorIs(t, publisher.err, context.DeadlineExceeded)
		assert.Contains(t, store.orders, order.ID)
	})
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *memoryStore, *recordingPublisher, int64) {
		store := newMemoryStore()
		store.addCartItem("alice", 1, 10, "Margherita", 1, "9.99")
		publisher := &recordingPublisher{}
		svc := newTestService(t, store, publisher)
		order, err := svc.CreateFromCart(ctx, alice, []int64{1})
		require.NoError(t, err)
		publisher.events = nil
		return svc, store, publisher, order.ID
	}

	t.Run("owner can update", func(t *testing.T) {
		svc, store, publisher, id := setup(t)

		require.NoError(t, svc.SetStatus(ctx, alice, id, domain.OrderStatusInProgress))
		assert.Equal(t, domain.OrderStatusInProgress, store.orders[id].Status)

		require.Len(t, publisher.events, 1)
		event := publisher.events[0].event.(domain.OrderStatusChangedEvent)
		assert.Equal(t, "alice", event.UserID)
		assert.Equal(t, domain.OrderStatusInProgress, event.Status)
	})

	t.Run("staff can update any order", func(t *testing.T) {
		svc, store, publisher, id := setup(t)

		require.NoError(t, svc.SetStatus(ctx, staff, id, domain.OrderStatusCompleted))
		assert.Equal(t, domain.OrderStatusCompleted, store.orders[id].Status)

		event := publisher.events[0].event.(domain.OrderStatusChangedEvent)
		assert.Equal(t, "alice", event.UserID)
		assert.Equal(t, "carol", event.ChangedBy)
	})

	t.Run("terminal statuses can be overwritten", func(t *testing.T) {
		svc, store, _, id := setup(t)

		require.NoError(t, svc.SetStatus(ctx, alice, id, domain.OrderStatusCancelled))
		require.NoError(t, svc.SetStatus(ctx, alice, id, domain.OrderStatusPending))
		assert.Equal(t, domain.OrderStatusPending, store.orders[id].Status)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		svc, store, publisher, id := setup(t)

		err := svc.SetStatus(ctx, bob, id, domain.OrderStatusCancelled)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, domain.OrderStatusPending, store.orders[id].Status)
		assert.Empty(t, publisher.events)
	})

	t.Run("forbidden is reported before an invalid status", func(t *testing.T) {
		svc, _, _, id := setup(t)

		err := svc.SetStatus(ctx, bob, id, "SHIPPED")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		svc, store, _, id := setup(t)

		err := svc.SetStatus(ctx, alice, id, "SHIPPED")
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
		assert.Equal(t, domain.OrderStatusPending, store.orders[id].Status)
	})

	t.Run("missing order", func(t *testing.T) {
		svc, _, _, _ := setup(t)

		err := svc.SetStatus(ctx, alice, 404, domain.OrderStatusCompleted)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_GetAndList(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addCartItem("alice", 1, 10, "Margherita", 1, "9.99")
	store.addCartItem("bob", 2, 11, "Tiramisu", 1, "5.00")
	svc := newTestService(t, store, nil)

	aliceOrder, err := svc.CreateFromCart(ctx, alice, []int64{1})
	require.NoError(t, err)
	_, err = svc.CreateFromCart(ctx, bob, []int64{2})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, aliceOrder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.Get(ctx, staff, aliceOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)

	mine, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.List(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
