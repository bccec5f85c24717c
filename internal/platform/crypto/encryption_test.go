package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestSealRoundTripWithExplicitKey(t *testing.T) {
	sealer, err := New(strings.Repeat("ab", 32), "")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if !sealer.Configured() {
		t.Fatal("expected sealer to be configured")
	}

	sealed, err := sealer.Seal([]byte("refreshToken=abc"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("refreshToken")) {
		t.Fatal("sealed payload leaks plaintext")
	}
	plain, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plain) != "refreshToken=abc" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestDerivedKeyIsStable(t *testing.T) {
	first, err := New("", "a-session-secret")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	second, err := New("", "a-session-secret")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	sealed, err := first.SealJSON(map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("seal json: %v", err)
	}
	var out map[string]string
	if err := second.OpenJSON(sealed, &out); err != nil {
		t.Fatalf("open json with second sealer: %v", err)
	}
	if out["k"] != "v" {
		t.Fatalf("unexpected payload %#v", out)
	}
}

func TestOpenRejectsTamperedPayload(t *testing.T) {
	sealer, err := New("", "secret")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := sealer.Seal([]byte("value"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := sealer.Open(sealed); err == nil {
		t.Fatal("expected tampered payload to fail")
	}
	if _, err := sealer.Open([]byte{1, 2}); err != ErrSealedTooShort {
		t.Fatalf("expected ErrSealedTooShort, got %v", err)
	}
}

func TestUnconfiguredSealerPassesThrough(t *testing.T) {
	sealer, err := New("", "")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if sealer.Configured() {
		t.Fatal("expected passthrough sealer")
	}
	sealed, err := sealer.Seal([]byte("plain"))
	if err != nil || string(sealed) != "plain" {
		t.Fatalf("expected passthrough, got %q err=%v", sealed, err)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("abcd", ""); err == nil {
		t.Fatal("expected short key to be rejected")
	}
}
