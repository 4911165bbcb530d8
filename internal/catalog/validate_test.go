package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

func TestValidateRestaurant(t *testing.T) {
	tests := []struct {
		name    string
		rest    domain.Restaurant
		wantErr bool
	}{
		{"valid", domain.Restaurant{Name: "Luigi's", Address: "1 Main St"}, false},
		{"trims name", domain.Restaurant{Name: "  Luigi's  ", Address: "1 Main St"}, false},
		{"missing name", domain.Restaurant{Name: "  ", Address: "1 Main St"}, true},
		{"missing address", domain.Restaurant{Name: "Luigi's"}, true},
		{"name too long", domain.Restaurant{Name: strings.Repeat("a", 101), Address: "1 Main St"}, true},
		{"address too long", domain.Restaurant{Name: "Luigi's", Address: strings.Repeat("a", 256)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest := tt.rest
			err := validateRestaurant(&rest)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "Luigi's", rest.Name)
		})
	}
}

func TestValidateDish(t *testing.T) {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name    string
		dish    domain.Dish
		wantErr bool
	}{
		{"valid", domain.Dish{RestaurantID: 1, Name: "Margherita", Price: price("9.99")}, false},
		{"free dish", domain.Dish{RestaurantID: 1, Name: "Water", Price: price("0")}, false},
		{"trailing zeros", domain.Dish{RestaurantID: 1, Name: "Soup", Price: price("4.5000")}, false},
		{"missing restaurant", domain.Dish{Name: "Margherita", Price: price("9.99")}, true},
		{"missing name", domain.Dish{RestaurantID: 1, Price: price("9.99")}, true},
		{"negative price", domain.Dish{RestaurantID: 1, Name: "Margherita", Price: price("-1")}, true},
		{"too many decimals", domain.Dish{RestaurantID: 1, Name: "Margherita", Price: price("9.999")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dish := tt.dish
			err := validateDish(&dish)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
