package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
	"github.com/joao-fontenele/fooddelivery/internal/storage"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateFromCart turns the user's cart items among cartItemIDs into a PENDING
// order. Items that do not exist or belong to someone else are ignored. The
// order, its items and the removal of the cart rows commit together.
func (r *OrderRepository) CreateFromCart(ctx context.Context, userID string, cartItemIDs []int64) (*domain.Order, error) {
	if len(cartItemIDs) == 0 {
		return nil, domain.ErrNoValidItems
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	lines, err := lockCheckoutLines(ctx, tx, userID, cartItemIDs)
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, domain.ErrNoValidItems
	}

	order := &domain.Order{
		UserID:     userID,
		TotalPrice: domain.OrderTotal(lines),
		Status:     domain.OrderStatusPending,
		Items:      make([]domain.OrderItem, 0, len(lines)),
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total_price, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, order.UserID, order.TotalPrice, order.Status).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", storage.Translate(err))
	}

	consumed := make([]int64, 0, len(lines))
	for _, line := range lines {
		item := domain.OrderItem{
			DishID:    line.DishID,
			DishName:  line.DishName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, dish_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, order.ID, item.DishID, item.Quantity, item.UnitPrice).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", storage.Translate(err))
		}
		order.Items = append(order.Items, item)
		consumed = append(consumed, line.CartItemID)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = ANY($1)
	`, pq.Array(consumed)); err != nil {
		return nil, fmt.Errorf("delete cart items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

// lockCheckoutLines reads the selected cart rows with their current dish
// prices. Cart rows are locked for update and dish rows for share, so the
// prices cannot change and the items cannot be checked out twice before the
// transaction ends.
func lockCheckoutLines(ctx context.Context, tx *sql.Tx, userID string, cartItemIDs []int64) ([]domain.CheckoutLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ci.id, ci.dish_id, d.name, ci.quantity, d.price
		FROM cart_items ci
		JOIN dishes d ON d.id = ci.dish_id
		WHERE ci.user_id = $1 AND ci.id = ANY($2)
		ORDER BY ci.id
		FOR UPDATE OF ci
		FOR SHARE OF d
	`, userID, pq.Array(cartItemIDs))
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []domain.CheckoutLine
	for rows.Next() {
		var line domain.CheckoutLine
		if err := rows.Scan(&line.CartItemID, &line.DishID, &line.DishName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_price, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.TotalPrice, &order.Status, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, storage.Translate(err))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.dish_id, d.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN dishes d ON d.id = oi.dish_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.DishID, &item.DishName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// List returns orders newest first. An empty userID lists every order.
func (r *OrderRepository) List(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `
		SELECT id, user_id, total_price, status, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if userID != "" {
		query = `
		SELECT id, user_id, total_price, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
		args = append(args, userID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalPrice, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.id, oi.dish_id, d.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN dishes d ON d.id = oi.dish_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID int64
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ID, &item.DishID, &item.DishName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		if order, ok := orderMap[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// UpdateStatus locks the order row, lets check veto the change based on the
// owner, and then overwrites the status. It returns the owner's user id.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, check func(ownerID string) error) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var ownerID string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&ownerID)
	if err != nil {
		return "", fmt.Errorf("order %d: %w", id, storage.Translate(err))
	}

	if err := check(ownerID); err != nil {
		return ownerID, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id); err != nil {
		return ownerID, fmt.Errorf("update order status: %w", storage.Translate(err))
	}

	if err := tx.Commit(); err != nil {
		return ownerID, err
	}

	return ownerID, nil
}
