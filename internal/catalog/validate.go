package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

const (
	maxNameLen    = 100
	maxAddressLen = 255
)

func validateRestaurant(rest *domain.Restaurant) error {
	rest.Name = strings.TrimSpace(rest.Name)
	rest.Address = strings.TrimSpace(rest.Address)

	if rest.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(rest.Name) > maxNameLen {
		return fmt.Errorf("%w: name must be at most %d characters", domain.ErrValidation, maxNameLen)
	}
	if rest.Address == "" {
		return fmt.Errorf("%w: address is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(rest.Address) > maxAddressLen {
		return fmt.Errorf("%w: address must be at most %d characters", domain.ErrValidation, maxAddressLen)
	}
	return nil
}

func validateDish(dish *domain.Dish) error {
	dish.Name = strings.TrimSpace(dish.Name)

	if dish.RestaurantID <= 0 {
		return fmt.Errorf("%w: restaurant is required", domain.ErrValidation)
	}
	if dish.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(dish.Name) > maxNameLen {
		return fmt.Errorf("%w: name must be at most %d characters", domain.ErrValidation, maxNameLen)
	}
	if dish.Price.IsNegative() {
		return fmt.Errorf("%w: price must be greater than or equal to 0", domain.ErrValidation)
	}
	if dish.Price.Exponent() < -2 && !dish.Price.Equal(dish.Price.Round(2)) {
		return fmt.Errorf("%w: price must have at most 2 decimal places", domain.ErrValidation)
	}
	return nil
}
