package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
	"github.com/joao-fontenele/fooddelivery/internal/httpx"
)

// Store is the persistence the catalog handlers need.
type Store interface {
	CreateRestaurant(ctx context.Context, rest *domain.Restaurant) error
	ListRestaurants(ctx context.Context) ([]domain.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error)
	UpdateRestaurant(ctx context.Context, rest *domain.Restaurant) error
	DeleteRestaurant(ctx context.Context, id int64) error

	CreateDish(ctx context.Context, dish *domain.Dish) error
	ListDishes(ctx context.Context) ([]domain.Dish, error)
	GetDish(ctx context.Context, id int64) (*domain.Dish, error)
	UpdateDish(ctx context.Context, dish *domain.Dish) error
	DeleteDish(ctx context.Context, id int64) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /restaurants/{$}", wrap(h.HandleListRestaurants))
	mux.HandleFunc("POST /restaurants/{$}", wrap(h.HandleCreateRestaurant))
	mux.HandleFunc("GET /restaurants/{id}", wrap(h.HandleGetRestaurant))
	mux.HandleFunc("PUT /restaurants/{id}", wrap(h.HandleUpdateRestaurant))
	mux.HandleFunc("DELETE /restaurants/{id}", wrap(h.HandleDeleteRestaurant))

	mux.HandleFunc("GET /dishes/{$}", wrap(h.HandleListDishes))
	mux.HandleFunc("POST /dishes/{$}", wrap(h.HandleCreateDish))
	mux.HandleFunc("GET /dishes/{id}", wrap(h.HandleGetDish))
	mux.HandleFunc("PUT /dishes/{id}", wrap(h.HandleUpdateDish))
	mux.HandleFunc("DELETE /dishes/{id}", wrap(h.HandleDeleteDish))
}

type restaurantRequest struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description *string `json:"description"`
}

func (h *Handler) HandleListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.store.ListRestaurants(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to list restaurants")
		return
	}

	h.logger.Info("restaurants listed", "count", len(restaurants))
	httpx.WriteJSON(w, h.logger, http.StatusOK, restaurants)
}

func (h *Handler) HandleCreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req restaurantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	rest := &domain.Restaurant{Name: req.Name, Address: req.Address, Description: req.Description}
	if err := validateRestaurant(rest); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "invalid restaurant")
		return
	}

	if err := h.store.CreateRestaurant(r.Context(), rest); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to create restaurant")
		return
	}

	h.logger.Info("restaurant created", "restaurant_id", rest.ID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, rest)
}

func (h *Handler) HandleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	rest, err := h.store.GetRestaurant(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to get restaurant", "restaurant_id", id)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, rest)
}

func (h *Handler) HandleUpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	var req restaurantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	rest := &domain.Restaurant{ID: id, Name: req.Name, Address: req.Address, Description: req.Description}
	if err := validateRestaurant(rest); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "invalid restaurant")
		return
	}

	if err := h.store.UpdateRestaurant(r.Context(), rest); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to update restaurant", "restaurant_id", id)
		return
	}

	h.logger.Info("restaurant updated", "restaurant_id", id)
	httpx.WriteJSON(w, h.logger, http.StatusOK, rest)
}

func (h *Handler) HandleDeleteRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteRestaurant(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to delete restaurant", "restaurant_id", id)
		return
	}

	h.logger.Info("restaurant deleted", "restaurant_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type dishRequest struct {
	RestaurantID int64           `json:"restaurant"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	IsAvailable  *bool           `json:"is_available"`
}

func (req dishRequest) toDish(id int64) *domain.Dish {
	dish := &domain.Dish{
		ID:           id,
		RestaurantID: req.RestaurantID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		IsAvailable:  true,
	}
	if req.IsAvailable != nil {
		dish.IsAvailable = *req.IsAvailable
	}
	return dish
}

func (h *Handler) HandleListDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.store.ListDishes(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to list dishes")
		return
	}

	h.logger.Info("dishes listed", "count", len(dishes))
	httpx.WriteJSON(w, h.logger, http.StatusOK, dishes)
}

func (h *Handler) HandleCreateDish(w http.ResponseWriter, r *http.Request) {
	var req dishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	dish := req.toDish(0)
	if err := validateDish(dish); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "invalid dish")
		return
	}

	if err := h.store.CreateDish(r.Context(), dish); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to create dish")
		return
	}

	h.logger.Info("dish created", "dish_id", dish.ID, "restaurant_id", dish.RestaurantID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, dish)
}

func (h *Handler) HandleGetDish(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	dish, err := h.store.GetDish(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to get dish", "dish_id", id)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, dish)
}

func (h *Handler) HandleUpdateDish(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	var req dishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	dish := req.toDish(id)
	if err := validateDish(dish); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "invalid dish")
		return
	}

	if err := h.store.UpdateDish(r.Context(), dish); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to update dish", "dish_id", id)
		return
	}

	h.logger.Info("dish updated", "dish_id", id)
	httpx.WriteJSON(w, h.logger, http.StatusOK, dish)
}

func (h *Handler) HandleDeleteDish(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteDish(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to delete dish", "dish_id", id)
		return
	}

	h.logger.Info("dish deleted", "dish_id", id)
	w.WriteHeader(http.StatusNoContent)
}
