package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
	"github.com/joao-fontenele/fooddelivery/internal/storage"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *domain.Restaurant) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO restaurants (name, address, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`, rest.Name, rest.Address, rest.Description).Scan(&rest.ID)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", storage.Translate(err))
	}
	return nil
}

func (r *CatalogRepository) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, description
		FROM restaurants
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	restaurants := []domain.Restaurant{}
	for rows.Next() {
		var rest domain.Restaurant
		if err := rows.Scan(&rest.ID, &rest.Name, &rest.Address, &rest.Description); err != nil {
			return nil, err
		}
		restaurants = append(restaurants, rest)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return restaurants, nil
}

func (r *CatalogRepository) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	rest := &domain.Restaurant{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, description
		FROM restaurants
		WHERE id = $1
	`, id).Scan(&rest.ID, &rest.Name, &rest.Address, &rest.Description)
	if err != nil {
		return nil, fmt.Errorf("restaurant %d: %w", id, storage.Translate(err))
	}

	return rest, nil
}

func (r *CatalogRepository) UpdateRestaurant(ctx context.Context, rest *domain.Restaurant) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE restaurants SET name = $1, address = $2, description = $3
		WHERE id = $4
	`, rest.Name, rest.Address, rest.Description, rest.ID)
	if err != nil {
		return fmt.Errorf("update restaurant: %w", storage.Translate(err))
	}
	return requireAffected(result, "restaurant", rest.ID)
}

func (r *CatalogRepository) DeleteRestaurant(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM restaurants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete restaurant: %w", storage.Translate(err))
	}
	return requireAffected(result, "restaurant", id)
}

func (r *CatalogRepository) CreateDish(ctx context.Context, dish *domain.Dish) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO dishes (restaurant_id, name, description, price, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, dish.RestaurantID, dish.Name, dish.Description, dish.Price, dish.IsAvailable).Scan(&dish.ID)
	if err != nil {
		return fmt.Errorf("insert dish: %w", storage.Translate(err))
	}
	return nil
}

func (r *CatalogRepository) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, description, price, is_available
		FROM dishes
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	dishes := []domain.Dish{}
	for rows.Next() {
		var dish domain.Dish
		if err := rows.Scan(&dish.ID, &dish.RestaurantID, &dish.Name, &dish.Description, &dish.Price, &dish.IsAvailable); err != nil {
			return nil, err
		}
		dishes = append(dishes, dish)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dishes, nil
}

func (r *CatalogRepository) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	dish := &domain.Dish{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, name, description, price, is_available
		FROM dishes
		WHERE id = $1
	`, id).Scan(&dish.ID, &dish.RestaurantID, &dish.Name, &dish.Description, &dish.Price, &dish.IsAvailable)
	if err != nil {
		return nil, fmt.Errorf("dish %d: %w", id, storage.Translate(err))
	}

	return dish, nil
}

func (r *CatalogRepository) UpdateDish(ctx context.Context, dish *domain.Dish) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE dishes
		SET restaurant_id = $1, name = $2, description = $3, price = $4, is_available = $5
		WHERE id = $6
	`, dish.RestaurantID, dish.Name, dish.Description, dish.Price, dish.IsAvailable, dish.ID)
	if err != nil {
		return fmt.Errorf("update dish: %w", storage.Translate(err))
	}
	return requireAffected(result, "dish", dish.ID)
}

func (r *CatalogRepository) DeleteDish(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dish: %w", storage.Translate(err))
	}
	return requireAffected(result, "dish", id)
}

func requireAffected(result sql.Result, kind string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
