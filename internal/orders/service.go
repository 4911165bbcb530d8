package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

var (
	tracer = otel.Tracer("fooddelivery/orders")
	meter  = otel.Meter("fooddelivery/orders")
)

type Store interface {
	CreateFromCart(ctx context.Context, userID string, cartItemIDs []int64) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, check func(ownerID string) error) (string, error)
}

// Publisher delivers order events. A nil Publisher disables publishing.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// publishTimeout bounds event delivery after an order change is committed.
const publishTimeout = 2 * time.Second

type Service struct {
	store          Store
	publisher      Publisher
	publishTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time

	ordersCreated  metric.Int64Counter
	statusChanges  metric.Int64Counter
	checkoutFailed metric.Int64Counter
}

func NewService(store Store, publisher Publisher, logger *slog.Logger) (*Service, error) {
	ordersCreated, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Number of orders created from carts"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.created counter: %w", err)
	}

	statusChanges, err := meter.Int64Counter("orders.status_changes",
		metric.WithDescription("Number of order status updates"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.status_changes counter: %w", err)
	}

	checkoutFailed, err := meter.Int64Counter("orders.checkout_rejected",
		metric.WithDescription("Checkouts rejected because no cart item resolved"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.checkout_rejected counter: %w", err)
	}

	return &Service{
		store:          store,
		publisher:      publisher,
		publishTimeout: publishTimeout,
		logger:         logger,
		now:            time.Now,
		ordersCreated:  ordersCreated,
		statusChanges:  statusChanges,
		checkoutFailed: checkoutFailed,
	}, nil
}

// CreateFromCart builds an order from the actor's cart items among
// cartItemIDs. It fails with domain.ErrNoValidItems when none resolve.
func (s *Service) CreateFromCart(ctx context.Context, actor domain.Actor, cartItemIDs []int64) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.CreateFromCart", trace.WithAttributes(
		attribute.String("user.id", actor.UserID),
		attribute.Int("cart.requested_items", len(cartItemIDs)),
	))
	defer span.End()

	order, err := s.store.CreateFromCart(ctx, actor.UserID, cartItemIDs)
	if err != nil {
		if errors.Is(err, domain.ErrNoValidItems) {
			s.checkoutFailed.Add(ctx, 1)
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.ordersCreated.Add(ctx, 1)

	s.publish(ctx, domain.EventOrderCreated, order.ID, domain.OrderCreatedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		UserID:     order.UserID,
		Items:      order.Items,
		TotalPrice: order.TotalPrice,
		Timestamp:  order.CreatedAt,
	})

	return order, nil
}

// SetStatus overwrites the order's status. The actor must own the order or be
// staff, and status must be one of domain.OrderStatuses.
func (s *Service) SetStatus(ctx context.Context, actor domain.Actor, orderID int64, status domain.OrderStatus) error {
	ctx, span := tracer.Start(ctx, "orders.SetStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(status)),
	))
	defer span.End()

	ownerID, err := s.store.UpdateStatus(ctx, orderID, status, func(ownerID string) error {
		if !actor.CanAccess(ownerID) {
			return domain.ErrForbidden
		}
		if !status.Valid() {
			return domain.ErrInvalidStatus
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))

	s.publish(ctx, domain.EventOrderStatusChanged, orderID, domain.OrderStatusChangedEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		UserID:    ownerID,
		ChangedBy: actor.UserID,
		Status:    status,
		Timestamp: s.now().UTC(),
	})

	return nil
}

// Get returns the order if the actor may see it. Orders owned by someone else
// are reported as not found to non-staff actors.
func (s *Service) Get(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	return order, nil
}

// List returns the actor's orders, or every order for staff.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if actor.Staff {
		return s.store.List(ctx, "")
	}
	return s.store.List(ctx, actor.UserID)
}

func (s *Service) publish(ctx context.Context, topic string, orderID int64, event any) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, topic, strconv.FormatInt(orderID, 10), event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "topic", topic, "order_id", orderID)
	}
}
