package domain

import "github.com/shopspring/decimal"

type Restaurant struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description *string `json:"description"`
}

type Dish struct {
	ID           int64           `json:"id"`
	RestaurantID int64           `json:"restaurant"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	IsAvailable  bool            `json:"is_available"`
}
