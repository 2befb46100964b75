package store

import "storefront/internal/domain"

// Pure line item list mutations shared by the store implementations. All of
// them preserve insertion order.

// MergeAdd appends item to the list, or, when its product id is already
// present, increments the existing entry's quantity in place. Quantities
// below one are treated as one so the cart invariant holds.
func MergeAdd(items []domain.LineItem, item domain.LineItem) []domain.LineItem {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return items
		}
	}
	return append(items, item)
}

// WithQuantity replaces the matching item's quantity, keeping its position.
// A quantity below one or an unknown product id leaves the list unchanged;
// the second return reports whether anything changed.
func WithQuantity(items []domain.LineItem, productID string, quantity int) ([]domain.LineItem, bool) {
	if quantity < 1 {
		return items, false
	}
	for i := range items {
		if items[i].ProductID == productID {
			if items[i].Quantity == quantity {
				return items, false
			}
			items[i].Quantity = quantity
			return items, true
		}
	}
	return items, false
}

// Without removes the matching item. Unknown product ids are a no-op.
func Without(items []domain.LineItem, productID string) ([]domain.LineItem, bool) {
	for i := range items {
		if items[i].ProductID == productID {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
