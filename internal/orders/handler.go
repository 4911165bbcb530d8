package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

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
	mux.HandleFunc("GET /orders/{$}", wrap(h.HandleList))
	mux.HandleFunc("POST /orders/{$}", wrap(h.HandleCreate))
	mux.HandleFunc("GET /orders/{id}", wrap(h.HandleGet))
	mux.HandleFunc("PUT /orders/{id}/status", wrap(h.HandleUpdateStatus))
	mux.HandleFunc("PUT /orders/{id}/status/{$}", wrap(h.HandleUpdateStatus))
}

type createOrderRequest struct {
	CartItemIDs []int64 `json:"cart_item_ids"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.CreateFromCart(r.Context(), actor, req.CartItemIDs)
	if err != nil {
		if errors.Is(err, domain.ErrNoValidItems) {
			h.logger.Warn("order rejected", "user_id", actor.UserID, "requested", len(req.CartItemIDs))
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "No valid cart items found")
			return
		}
		httpx.WriteDomainError(w, h.logger, err, "failed to create order", "user_id", actor.UserID)
		return
	}

	h.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total_price", order.TotalPrice.StringFixed(2))
	httpx.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to get order", "order_id", id)
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status json.RawMessage `json:"status"`
}

// status returns the requested status. A value that is not a JSON string is
// returned verbatim so it fails validation like any other unknown status.
func (req updateStatusRequest) status() domain.OrderStatus {
	var s string
	if err := json.Unmarshal(req.Status, &s); err != nil {
		return domain.OrderStatus(req.Status)
	}
	return domain.OrderStatus(s)
}

type updateStatusResponse struct {
	ID     int64              `json:"id"`
	Status domain.OrderStatus `json:"status"`
}

type invalidStatusResponse struct {
	Detail        string               `json:"detail"`
	ValidStatuses []domain.OrderStatus `json:"valid_statuses"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	status := req.status()
	err = h.svc.SetStatus(r.Context(), actor, id, status)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForbidden):
		h.logger.Warn("order status change forbidden", "order_id", id, "user_id", actor.UserID)
		httpx.WriteError(w, h.logger, http.StatusForbidden, "You don't have permission to modify this order.")
		return
	case errors.Is(err, domain.ErrInvalidStatus):
		valid := domain.OrderStatuses()
		httpx.WriteJSON(w, h.logger, http.StatusBadRequest, invalidStatusResponse{
			Detail:        fmt.Sprintf("Invalid status %q. Valid values: %v", status, valid),
			ValidStatuses: valid,
		})
		return
	default:
		httpx.WriteDomainError(w, h.logger, err, "failed to update order status", "order_id", id)
		return
	}

	h.logger.Info("order status updated", "order_id", id, "status", status, "user_id", actor.UserID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, updateStatusResponse{ID: id, Status: status})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}

	orders, err := h.svc.List(r.Context(), actor)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders), "user_id", actor.UserID, "staff", actor.Staff)
	httpx.WriteJSON(w, h.logger, http.StatusOK, orders)
}
