package cart

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

var (
	tracer = otel.Tracer("fooddelivery/cart")
	meter  = otel.Meter("fooddelivery/cart")
)

type Store interface {
	AddItems(ctx context.Context, userID string, entries []domain.AddItem) ([]domain.CartItem, error)
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	Remove(ctx context.Context, userID string, id int64) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	store      Store
	logger     *slog.Logger
	itemsAdded metric.Int64Counter
}

func NewService(store Store, logger *slog.Logger) (*Service, error) {
	itemsAdded, err := meter.Int64Counter("cart.items.added",
		metric.WithDescription("Number of dish units added to carts"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart.items.added counter: %w", err)
	}

	return &Service{
		store:      store,
		logger:     logger,
		itemsAdded: itemsAdded,
	}, nil
}

// AddItems merges entries into the actor's cart. Entries without a dish
// reference are skipped; the rest are applied atomically.
func (s *Service) AddItems(ctx context.Context, actor domain.Actor, entries []domain.AddItem) ([]domain.CartItem, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
	}

	valid := make([]domain.AddItem, 0, len(entries))
	for _, e := range entries {
		if e.DishID == 0 {
			s.logger.Debug("skipping cart entry without dish", "user_id", actor.UserID)
			continue
		}
		if e.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be a positive integer", domain.ErrValidation)
		}
		valid = append(valid, e)
	}

	if len(valid) == 0 {
		return []domain.CartItem{}, nil
	}

	ctx, span := tracer.Start(ctx, "cart.AddItems", trace.WithAttributes(
		attribute.String("user.id", actor.UserID),
		attribute.Int("cart.entries", len(valid)),
	))
	defer span.End()

	items, err := s.store.AddItems(ctx, actor.UserID, valid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var units int64
	for _, e := range valid {
		units += int64(e.Quantity)
	}
	s.itemsAdded.Add(ctx, units)

	return items, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.CartItem, error) {
	return s.store.List(ctx, actor.UserID)
}

func (s *Service) Remove(ctx context.Context, actor domain.Actor, id int64) error {
	return s.store.Remove(ctx, actor.UserID, id)
}

func (s *Service) Clear(ctx context.Context, actor domain.Actor) (int64, error) {
	return s.store.Clear(ctx, actor.UserID)
}
