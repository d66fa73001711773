package cart

import (
	"context"
	"fmt"
)

// Item is one cart line as seen by the engine.
type Item struct {
	// ProductID is the storefront variant identifier the line was added with.
	ProductID string `json:"id"`

	// Quantity is the line quantity.
	Quantity int `json:"quantity"`
}

// Snapshot is a point-in-time read of the external cart.
type Snapshot struct {
	// TotalMinor is the cart total in the smallest currency unit (cents).
	TotalMinor int64 `json:"total_price"`

	// ItemCount is the total number of units in the cart.
	ItemCount int `json:"item_count"`

	// Items are the cart lines.
	Items []Item `json:"items"`

	// Token identifies the cart session; stable until the cart is reset.
	Token string `json:"token"`
}

// TotalMajor returns the total in currency major units.
func (s Snapshot) TotalMajor() float64 {
	return float64(s.TotalMinor) / 100
}

// Has reports whether the cart holds a line for productID.
func (s Snapshot) Has(productID string) bool {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// SameTotals reports whether two snapshots agree on total and item count,
// the comparison used to skip passes when nothing relevant changed.
func (s Snapshot) SameTotals(other Snapshot) bool {
	return s.TotalMinor == other.TotalMinor && s.ItemCount == other.ItemCount
}

// Reader reads the current cart.
type Reader interface {
	Read(ctx context.Context) (Snapshot, error)
}

// Accessor reads the cart and issues line mutations against it.
//
// All operations may fail; callers treat failures as non-fatal.
type Accessor interface {
	Reader

	// Add adds qty units of productID.
	Add(ctx context.Context, productID string, qty int) error

	// Remove sets the quantity of productID to zero.
	Remove(ctx context.Context, productID string) error
}

// StatusError is returned when the cart service answers with a non-2xx status.
type StatusError struct {
	Op          string
	StatusCode  int
	Description string
}

func (e *StatusError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("cart %s failed with status %d: %s", e.Op, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("cart %s failed with status %d", e.Op, e.StatusCode)
}
