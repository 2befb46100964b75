package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"storefront/internal/domain"
	storepkg "storefront/internal/store"
)

// Store persists each cart as a single jsonb record. The row is the source
// of truth; nothing is cached in memory, so a read immediately following a
// write observes that write regardless of which process performed it.
type Store struct {
	db *sql.DB

	mu          sync.Mutex
	subscribers []func(cartID string)
}

func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`create table if not exists carts(
			id text primary key,
			items jsonb not null,
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists customer_profiles(
			customer_ref text primary key,
			profile_enc text not null,
			updated_at timestamptz not null default now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Load(cartID string) (domain.Cart, error) {
	var raw []byte
	err := s.db.QueryRow(`select items from carts where id = $1`, cartID).Scan(&raw)
	if err != nil {
		// Absent and unreadable both degrade to an empty cart.
		return domain.Cart{ID: cartID, Items: []domain.LineItem{}}, nil
	}
	return domain.Cart{ID: cartID, Items: storepkg.DecodeItems(raw)}, nil
}

func (s *Store) Add(cartID string, item domain.LineItem) (domain.Cart, error) {
	return s.mutate(cartID, "add", func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return storepkg.MergeAdd(items, item), true
	})
}

func (s *Store) SetQuantity(cartID, productID string, quantity int) (domain.Cart, error) {
	return s.mutate(cartID, "set quantity", func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return storepkg.WithQuantity(items, productID, quantity)
	})
}

func (s *Store) Remove(cartID, productID string) (domain.Cart, error) {
	return s.mutate(cartID, "remove", func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return storepkg.Without(items, productID)
	})
}

// mutate reads, transforms and rewrites the cart record in one transaction
// so the persisted record and returned view never diverge.
func (s *Store) mutate(cartID, op string, fn func([]domain.LineItem) ([]domain.LineItem, bool)) (domain.Cart, error) {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return domain.Cart{}, &domain.PersistenceError{Op: op, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRow(`select items from carts where id = $1 for update`, cartID).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, &domain.PersistenceError{Op: op, Err: err}
	}
	items := storepkg.DecodeItems(raw)

	items, changed := fn(items)
	if !changed {
		return domain.Cart{ID: cartID, Items: items}, nil
	}

	encoded, err := storepkg.EncodeItems(items)
	if err != nil {
		return domain.Cart{}, &domain.PersistenceError{Op: op, Err: err}
	}
	_, err = tx.Exec(
		`insert into carts(id, items, updated_at) values ($1, $2::jsonb, now())
		 on conflict (id) do update
		 set items = excluded.items, updated_at = now()`,
		cartID, string(encoded),
	)
	if err != nil {
		return domain.Cart{}, &domain.PersistenceError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return domain.Cart{}, &domain.PersistenceError{Op: op, Err: err}
	}

	s.notify(cartID)
	return domain.Cart{ID: cartID, Items: items}, nil
}

func (s *Store) Clear(cartID string) error {
	if _, err := s.db.Exec(`delete from carts where id = $1`, cartID); err != nil {
		return &domain.PersistenceError{Op: "clear", Err: err}
	}
	s.notify(cartID)
	return nil
}

func (s *Store) SaveProfile(customerRef, ciphertext string) error {
	_, err := s.db.Exec(
		`insert into customer_profiles(customer_ref, profile_enc, updated_at)
		 values ($1, $2, now())
		 on conflict (customer_ref) do update
		 set profile_enc = excluded.profile_enc, updated_at = now()`,
		customerRef, ciphertext,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "save profile", Err: err}
	}
	return nil
}

func (s *Store) Profile(customerRef string) (string, bool) {
	var v string
	err := s.db.QueryRow(
		`select profile_enc from customer_profiles where customer_ref = $1`,
		customerRef,
	).Scan(&v)
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *Store) Subscribe(fn func(cartID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(cartID string) {
	s.mu.Lock()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(cartID)
	}
}
