package secretbox

import (
	"encoding/base64"
	"testing"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := New(testKey())
	if err != nil {
		t.Fatalf("failed to create box: %v", err)
	}
	ciphertext, err := box.Seal(`{"email":"a@b.c","city":"Lusaka"}`)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	plaintext, err := box.Open(ciphertext)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if plaintext != `{"email":"a@b.c","city":"Lusaka"}` {
		t.Fatalf("unexpected plaintext: %s", plaintext)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := New("not-base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := New(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatal("expected error for wrong key length")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	box, err := New(testKey())
	if err != nil {
		t.Fatalf("failed to create box: %v", err)
	}
	ciphertext, err := box.Seal("payload")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	tampered := "A" + ciphertext[1:]
	if _, err := box.Open(tampered); err == nil {
		t.Fatal("expected tampered ciphertext to fail")
	}
}
