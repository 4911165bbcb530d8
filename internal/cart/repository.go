package cart

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
	"github.com/joao-fontenele/fooddelivery/internal/storage"
)

const selectCartItems = `
	SELECT ci.id, ci.user_id, ci.dish_id, ci.quantity, d.name, r.name, d.price
	FROM cart_items ci
	JOIN dishes d ON d.id = ci.dish_id
	JOIN restaurants r ON r.id = d.restaurant_id
`

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// AddItems merges every entry into the user's cart inside one transaction and
// returns the resulting rows in entry order.
func (r *CartRepository) AddItems(ctx context.Context, userID string, entries []domain.AddItem) ([]domain.CartItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Upserts run in dish order so concurrent batches lock rows consistently.
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].DishID < entries[order[b]].DishID
	})

	ids := make([]int64, len(entries))
	for _, i := range order {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO cart_items (user_id, dish_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, dish_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id
		`, userID, entries[i].DishID, entries[i].Quantity).Scan(&ids[i])
		if err != nil {
			return nil, fmt.Errorf("upsert cart item for dish %d: %w", entries[i].DishID, storage.Translate(err))
		}
	}

	byID, err := queryCartItems(ctx, tx, selectCartItems+`WHERE ci.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	index := make(map[int64]domain.CartItem, len(byID))
	for _, item := range byID {
		index[item.ID] = item
	}

	items := make([]domain.CartItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, index[id])
	}

	return items, nil
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return queryCartItems(ctx, r.db, selectCartItems+`WHERE ci.user_id = $1 ORDER BY ci.id`, userID)
}

func (r *CartRepository) Remove(ctx context.Context, userID string, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("cart item %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryCartItems(ctx context.Context, q querier, query string, args ...any) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.DishID, &item.Quantity,
			&item.DishInfo.Name, &item.DishInfo.RestaurantName, &item.DishInfo.Price,
		); err != nil {
			return nil, err
		}
		item.DishInfo.ID = item.DishID
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
