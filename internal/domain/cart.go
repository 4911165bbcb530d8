package domain

import "github.com/shopspring/decimal"

// DishInfo is the read-only dish summary attached to cart items.
type DishInfo struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	RestaurantName string          `json:"restaurant_name"`
	Price          decimal.Decimal `json:"price"`
}

type CartItem struct {
	ID       int64    `json:"id"`
	UserID   string   `json:"-"`
	DishID   int64    `json:"-"`
	Quantity int      `json:"quantity"`
	DishInfo DishInfo `json:"dish_info"`
}

// AddItem is one requested cart addition. A zero DishID means the entry
// carried no dish reference.
type AddItem struct {
	DishID   int64 `json:"dish"`
	Quantity int   `json:"quantity"`
}
