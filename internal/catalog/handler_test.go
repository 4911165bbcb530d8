package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

type memoryStore struct {
	nextID      int64
	restaurants map[int64]domain.Restaurant
	dishes      map[int64]domain.Dish
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		restaurants: map[int64]domain.Restaurant{},
		dishes:      map[int64]domain.Dish{},
	}
}

func (m *memoryStore) CreateRestaurant(_ context.Context, rest *domain.Restaurant) error {
	m.nextID++
	rest.ID = m.nextID
	m.restaurants[rest.ID] = *rest
	return nil
}

func (m *memoryStore) ListRestaurants(context.Context) ([]domain.Restaurant, error) {
	out := []domain.Restaurant{}
	for _, r := range m.restaurants {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) GetRestaurant(_ context.Context, id int64) (*domain.Restaurant, error) {
	r, ok := m.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("restaurant %d: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (m *memoryStore) UpdateRestaurant(_ context.Context, rest *domain.Restaurant) error {
	if _, ok := m.restaurants[rest.ID]; !ok {
		return fmt.Errorf("restaurant %d: %w", rest.ID, domain.ErrNotFound)
	}
	m.restaurants[rest.ID] = *rest
	return nil
}

func (m *memoryStore) DeleteRestaurant(_ context.Context, id int64) error {
	if _, ok := m.restaurants[id]; !ok {
		return fmt.Errorf("restaurant %d: %w", id, domain.ErrNotFound)
	}
	delete(m.restaurants, id)
	for dishID, d := range m.dishes {
		if d.RestaurantID == id {
			delete(m.dishes, dishID)
		}
	}
	return nil
}

func (m *memoryStore) CreateDish(_ context.Context, dish *domain.Dish) error {
	if _, ok := m.restaurants[dish.RestaurantID]; !ok {
		return fmt.Errorf("%w: restaurant %d does not exist", domain.ErrIntegrity, dish.RestaurantID)
	}
	m.nextID++
	dish.ID = m.nextID
	m.dishes[dish.ID] = *dish
	return nil
}

func (m *memoryStore) ListDishes(context.Context) ([]domain.Dish, error) {
	out := []domain.Dish{}
	for _, d := range m.dishes {
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryStore) GetDish(_ context.Context, id int64) (*domain.Dish, error) {
	d, ok := m.dishes[id]
	if !ok {
		return nil, fmt.Errorf("dish %d: %w", id, domain.ErrNotFound)
	}
	return &d, nil
}

func (m *memoryStore) UpdateDish(_ context.Context, dish *domain.Dish) error {
	if _, ok := m.dishes[dish.ID]; !ok {
		return fmt.Errorf("dish %d: %w", dish.ID, domain.ErrNotFound)
	}
	m.dishes[dish.ID] = *dish
	return nil
}

func (m *memoryStore) DeleteDish(_ context.Context, id int64) error {
	if _, ok := m.dishes[id]; !ok {
		return fmt.Errorf("dish %d: %w", id, domain.ErrNotFound)
	}
	delete(m.dishes, id)
	return nil
}

func newTestMux(store Store) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))).
		Register(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Restaurants(t *testing.T) {
	store := newMemoryStore()
	mux := newTestMux(store)

	rec := do(mux, http.MethodPost, "/restaurants/", `{"name": "Luigi's", "address": "1 Main St"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Restaurant
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == 0 || created.Description != nil {
		t.Fatalf("unexpected restaurant: %+v", created)
	}

	if rec := do(mux, http.MethodPost, "/restaurants/", `{"name": "", "address": "1 Main St"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty name, got %d", rec.Code)
	}

	rec = do(mux, http.MethodPut, fmt.Sprintf("/restaurants/%d", created.ID), `{"name": "Luigi's Pizzeria", "address": "2 Main St", "description": "Since 1990"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := store.restaurants[created.ID]; got.Name != "Luigi's Pizzeria" || got.Description == nil || *got.Description != "Since 1990" {
		t.Errorf("restaurant not updated: %+v", got)
	}

	if rec := do(mux, http.MethodGet, "/restaurants/999", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	if rec := do(mux, http.MethodDelete, fmt.Sprintf("/restaurants/%d", created.ID), ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/restaurants/", ""); strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestHandler_Dishes(t *testing.T) {
	store := newMemoryStore()
	mux := newTestMux(store)
	do(mux, http.MethodPost, "/restaurants/", `{"name": "Luigi's", "address": "1 Main St"}`)

	t.Run("creates available dish by default", func(t *testing.T) {
		rec := do(mux, http.MethodPost, "/dishes/", `{"restaurant": 1, "name": "Margherita", "price": "9.99"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var dish domain.Dish
		if err := json.NewDecoder(rec.Body).Decode(&dish); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !dish.IsAvailable {
			t.Error("expected dish to be available")
		}
		if dish.Price.StringFixed(2) != "9.99" {
			t.Errorf("expected price 9.99, got %s", dish.Price)
		}
	})

	t.Run("accepts numeric price and explicit availability", func(t *testing.T) {
		rec := do(mux, http.MethodPost, "/dishes/", `{"restaurant": 1, "name": "Tiramisu", "price": 5, "is_available": false}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var dish domain.Dish
		if err := json.NewDecoder(rec.Body).Decode(&dish); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if dish.IsAvailable {
			t.Error("expected dish to be unavailable")
		}
	})

	t.Run("rejects negative price", func(t *testing.T) {
		rec := do(mux, http.MethodPost, "/dishes/", `{"restaurant": 1, "name": "Refund", "price": "-1.00"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown restaurant", func(t *testing.T) {
		rec := do(mux, http.MethodPost, "/dishes/", `{"restaurant": 42, "name": "Ghost", "price": "1.00"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("deleting restaurant removes its dishes", func(t *testing.T) {
		if rec := do(mux, http.MethodDelete, "/restaurants/1", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if len(store.dishes) != 0 {
			t.Errorf("expected no dishes, got %d", len(store.dishes))
		}
	})
}
