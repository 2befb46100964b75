package store

import "storefront/internal/domain"

// Store owns the persisted cart state. It is the sole source of truth across
// restarts: every mutating operation leaves the persisted record and the
// returned view consistent, then notifies subscribers.
//
// Load never fails on absent or unreadable data; both degrade to an empty
// cart. Mutations return *domain.PersistenceError when the write cannot land.
type Store interface {
	Load(cartID string) (domain.Cart, error)
	Add(cartID string, item domain.LineItem) (domain.Cart, error)
	SetQuantity(cartID, productID string, quantity int) (domain.Cart, error)
	Remove(cartID, productID string) (domain.Cart, error)
	Clear(cartID string) error

	SaveProfile(customerRef, ciphertext string) error
	Profile(customerRef string) (string, bool)

	// Subscribe registers a callback fired after every cart mutation. The
	// store is externally invalidatable (another tab, another process), so
	// readers re-read on notification instead of caching.
	Subscribe(fn func(cartID string))
}
