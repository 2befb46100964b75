package memory

import (
	"slices"
	"sync"

	"storefront/internal/domain"
	storepkg "storefront/internal/store"
)

// Store keeps carts in process memory. It backs tests and the dev/fallback
// mode; durability across restarts comes from the postgres store.
type Store struct {
	mu sync.RWMutex

	carts    map[string][]domain.LineItem
	profiles map[string]string

	subscribers []func(cartID string)
}

func NewStore() *Store {
	return &Store{
		carts:    make(map[string][]domain.LineItem),
		profiles: make(map[string]string),
	}
}

func (s *Store) Load(cartID string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.carts[cartID]
	if !ok {
		return domain.Cart{ID: cartID, Items: []domain.LineItem{}}, nil
	}
	return domain.Cart{ID: cartID, Items: slices.Clone(items)}, nil
}

func (s *Store) Add(cartID string, item domain.LineItem) (domain.Cart, error) {
	s.mu.Lock()
	items := storepkg.MergeAdd(s.carts[cartID], item)
	s.carts[cartID] = items
	cart := domain.Cart{ID: cartID, Items: slices.Clone(items)}
	s.mu.Unlock()

	s.notify(cartID)
	return cart, nil
}

func (s *Store) SetQuantity(cartID, productID string, quantity int) (domain.Cart, error) {
	s.mu.Lock()
	items, changed := storepkg.WithQuantity(s.carts[cartID], productID, quantity)
	s.carts[cartID] = items
	cart := domain.Cart{ID: cartID, Items: slices.Clone(items)}
	s.mu.Unlock()

	if changed {
		s.notify(cartID)
	}
	return cart, nil
}

func (s *Store) Remove(cartID, productID string) (domain.Cart, error) {
	s.mu.Lock()
	items, changed := storepkg.Without(s.carts[cartID], productID)
	s.carts[cartID] = items
	cart := domain.Cart{ID: cartID, Items: slices.Clone(items)}
	s.mu.Unlock()

	if changed {
		s.notify(cartID)
	}
	return cart, nil
}

func (s *Store) Clear(cartID string) error {
	s.mu.Lock()
	// The record is removed entirely, not set to an empty list.
	delete(s.carts, cartID)
	s.mu.Unlock()

	s.notify(cartID)
	return nil
}

func (s *Store) SaveProfile(customerRef, ciphertext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[customerRef] = ciphertext
	return nil
}

func (s *Store) Profile(customerRef string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.profiles[customerRef]
	return v, ok
}

func (s *Store) Subscribe(fn func(cartID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(cartID string) {
	s.mu.RLock()
	subs := slices.Clone(s.subscribers)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(cartID)
	}
}
