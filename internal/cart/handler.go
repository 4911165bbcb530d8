package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/fooddelivery/internal/auth"
	"github.com/joao-fontenele/fooddelivery/internal/domain"
	"github.com/joao-fontenele/fooddelivery/internal/httpx"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /cart/{$}", wrap(h.HandleList))
	mux.HandleFunc("POST /cart/{$}", wrap(h.HandleAdd))
	mux.HandleFunc("DELETE /cart/{$}", wrap(h.HandleClear))
	mux.HandleFunc("DELETE /cart/{id}", wrap(h.HandleRemove))
}

// addItemRequest takes numbers or numeric strings, so {"dish": "3"} works.
type addItemRequest struct {
	Dish     json.Number `json:"dish"`
	Quantity json.Number `json:"quantity"`
}

func (req addItemRequest) entry() (domain.AddItem, error) {
	dish, err := integer(req.Dish, 0)
	if err != nil {
		return domain.AddItem{}, fmt.Errorf("dish: %w", err)
	}
	quantity, err := integer(req.Quantity, 1)
	if err != nil {
		return domain.AddItem{}, fmt.Errorf("quantity: %w", err)
	}
	return domain.AddItem{DishID: dish, Quantity: int(quantity)}, nil
}

// integer parses n, returning def when the field was absent.
func integer(n json.Number, def int64) (int64, error) {
	if n == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", n.String())
	}
	return v, nil
}

// decodeAddItems accepts either a single object or an array of objects.
func decodeAddItems(body io.Reader) ([]domain.AddItem, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var reqs []addItemRequest
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
	} else {
		var single addItemRequest
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		reqs = []addItemRequest{single}
	}

	entries := make([]domain.AddItem, 0, len(reqs))
	for _, req := range reqs {
		entry, err := req.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	entries, err := decodeAddItems(r.Body)
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.svc.AddItems(r.Context(), actor, entries)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to add items to cart", "user_id", actor.UserID)
		return
	}

	h.logger.Info("cart items added", "user_id", actor.UserID, "count", len(items))
	httpx.WriteJSON(w, h.logger, http.StatusCreated, items)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	items, err := h.svc.List(r.Context(), actor)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to list cart", "user_id", actor.UserID)
		return
	}

	h.logger.Info("cart listed", "user_id", actor.UserID, "count", len(items))
	httpx.WriteJSON(w, h.logger, http.StatusOK, items)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Remove(r.Context(), actor, id); err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to remove cart item", "user_id", actor.UserID, "cart_item_id", id)
		return
	}

	h.logger.Info("cart item removed", "user_id", actor.UserID, "cart_item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	removed, err := h.svc.Clear(r.Context(), actor)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to clear cart", "user_id", actor.UserID)
		return
	}

	h.logger.Info("cart cleared", "user_id", actor.UserID, "removed", removed)
	w.WriteHeader(http.StatusNoContent)
}
