package store

import (
	"encoding/json"

	"storefront/internal/domain"
)

// The cart is persisted as a single record holding the serialized line item
// sequence. Absence of the record means an empty cart, and corrupt contents
// degrade to an empty cart rather than fail hard.

func EncodeItems(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(items)
}

func DecodeItems(raw []byte) []domain.LineItem {
	if len(raw) == 0 {
		return []domain.LineItem{}
	}
	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return []domain.LineItem{}
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return items
}
