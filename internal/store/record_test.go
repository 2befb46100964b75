package store

import (
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func TestRecordRoundTrip(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "p1", Name: "Lamp", UnitPrice: decimal.RequireFromString("349.99"), Quantity: 2},
		{ProductID: "p2", Name: "Rug", UnitPrice: decimal.NewFromInt(900), ImageRef: "/media/rug.jpg", Quantity: 1},
	}
	raw, err := EncodeItems(items)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// A fresh process reading the persisted record sees the same sequence.
	decoded := DecodeItems(raw)
	if len(decoded) != 2 {
		t.Fatalf("expected 2 items, got %d", len(decoded))
	}
	if decoded[0].ProductID != "p1" || decoded[0].Quantity != 2 {
		t.Fatalf("unexpected first item: %+v", decoded[0])
	}
	if !decoded[0].UnitPrice.Equal(decimal.RequireFromString("349.99")) {
		t.Fatalf("unit price lost precision: %s", decoded[0].UnitPrice)
	}
	if decoded[1].ImageRef != "/media/rug.jpg" {
		t.Fatalf("unexpected second item: %+v", decoded[1])
	}
}

func TestDecodeItems_AbsentAndCorruptDegradeToEmpty(t *testing.T) {
	for name, raw := range map[string][]byte{
		"absent":     nil,
		"empty":      {},
		"corrupt":    []byte("{not json"),
		"wrong type": []byte(`{"a":1}`),
		"null":       []byte("null"),
	} {
		items := DecodeItems(raw)
		if items == nil || len(items) != 0 {
			t.Fatalf("%s: expected empty item list, got %#v", name, items)
		}
	}
}

func TestEncodeItems_NilEncodesAsEmptyList(t *testing.T) {
	raw, err := EncodeItems(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected [], got %s", raw)
	}
}
