package memory

import (
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func lamp(qty int) domain.LineItem {
	return domain.LineItem{
		ProductID: "prod-lamp",
		Name:      "Desk Lamp",
		UnitPrice: decimal.NewFromInt(350),
		Quantity:  qty,
	}
}

func TestLoad_UnknownCartIsEmpty(t *testing.T) {
	store := NewStore()
	cart, err := store.Load("cart-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cart.Empty() {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}
}

func TestAdd_MergesOnProductID(t *testing.T) {
	store := NewStore()
	if _, err := store.Add("cart-1", lamp(2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := store.Add("cart-1", lamp(3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one merged line item, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", cart.Items[0].Quantity)
	}
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	store := NewStore()
	first := lamp(1)
	second := domain.LineItem{ProductID: "prod-rug", Name: "Rug", UnitPrice: decimal.NewFromInt(900), Quantity: 1}
	_, _ = store.Add("cart-1", first)
	_, _ = store.Add("cart-1", second)
	_, _ = store.Add("cart-1", lamp(1)) // merge must not reorder

	cart, _ := store.Load("cart-1")
	if cart.Items[0].ProductID != "prod-lamp" || cart.Items[1].ProductID != "prod-rug" {
		t.Fatalf("unexpected order: %s, %s", cart.Items[0].ProductID, cart.Items[1].ProductID)
	}
}

func TestSetQuantity_BelowOneIsNoOp(t *testing.T) {
	store := NewStore()
	_, _ = store.Add("cart-1", lamp(2))

	for _, q := range []int{0, -1} {
		cart, err := store.SetQuantity("cart-1", "prod-lamp", q)
		if err != nil {
			t.Fatalf("set quantity: %v", err)
		}
		if cart.Items[0].Quantity != 2 {
			t.Fatalf("quantity %d should be ignored, got %d", q, cart.Items[0].Quantity)
		}
	}
}

func TestSetQuantity_ReplacesInPlace(t *testing.T) {
	store := NewStore()
	_, _ = store.Add("cart-1", lamp(2))
	cart, err := store.SetQuantity("cart-1", "prod-lamp", 7)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if cart.Items[0].Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", cart.Items[0].Quantity)
	}
}

func TestRemove_UnknownProductIsNoOp(t *testing.T) {
	store := NewStore()
	_, _ = store.Add("cart-1", lamp(1))
	cart, err := store.Remove("cart-1", "prod-unknown")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected untouched cart, got %d items", len(cart.Items))
	}
}

func TestClear_ThenLoadIsEmpty(t *testing.T) {
	store := NewStore()
	_, _ = store.Add("cart-1", lamp(1))
	if err := store.Clear("cart-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cart, _ := store.Load("cart-1")
	if !cart.Empty() {
		t.Fatalf("expected empty cart after clear")
	}
}

func TestSubscribe_NotifiedOnMutations(t *testing.T) {
	store := NewStore()
	var notified []string
	store.Subscribe(func(cartID string) { notified = append(notified, cartID) })

	_, _ = store.Add("cart-1", lamp(1))
	_, _ = store.SetQuantity("cart-1", "prod-lamp", 3)
	_ = store.Clear("cart-1")

	if len(notified) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notified))
	}
	for _, id := range notified {
		if id != "cart-1" {
			t.Fatalf("unexpected cart id %q", id)
		}
	}
}

func TestSubscribe_NoOpMutationsStaySilent(t *testing.T) {
	store := NewStore()
	_, _ = store.Add("cart-1", lamp(1))

	var count int
	store.Subscribe(func(string) { count++ })

	_, _ = store.SetQuantity("cart-1", "prod-lamp", 0)
	_, _ = store.Remove("cart-1", "prod-unknown")

	if count != 0 {
		t.Fatalf("expected no notifications for no-ops, got %d", count)
	}
}
