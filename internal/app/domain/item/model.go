package item

import (
	"fmt"
	"math"
)

// Item is a named, priced catalogue entry. ID is assigned by the store.
type Item struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Price int64  `json:"price" db:"price"`
}

// Validate checks that the item fits the persisted column types.
func (i Item) Validate() error {
	if i.Price < math.MinInt32 || i.Price > math.MaxInt32 {
		return fmt.Errorf("price %d out of range for a 32-bit integer", i.Price)
	}
	return nil
}
