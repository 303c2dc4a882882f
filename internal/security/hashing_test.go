package security

import (
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	password := []byte("secret123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !h.Verify(password, hash) {
		t.Fatal("Verify should accept the right password")
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash([]byte("secret123"))
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
	if h.Verify([]byte("wrong"), hash) {
		t.Fatal("Verify with wrong password should fail")
	}
}

func TestHasher_VerifyMalformedDigest(t *testing.T) {
	h := NewHasher(4)
	if h.Verify([]byte("secret123"), "not-a-bcrypt-digest") {
		t.Fatal("Verify against malformed digest should fail")
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(4); h.Cost != 4 {
		t.Errorf("Cost want 4, got %d", h.Cost)
	}
	testCases := []struct {
		in, want int
	}{
		{0, 10},
		{-1, 10},
		{3, 4},
		{12, 12},
		{31, 31},
		{99, 31},
	}
	for _, tc := range testCases {
		if got := clampCost(tc.in); got != tc.want {
			t.Errorf("clampCost(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHasher_DummyDigestStable(t *testing.T) {
	h := NewHasher(4)
	d1 := h.DummyDigest()
	d2 := h.DummyDigest()
	if d1 == "" {
		t.Fatal("DummyDigest returned empty")
	}
	if d1 != d2 {
		t.Error("DummyDigest must be computed once")
	}
	for _, guess := range []string{"", "password", "Secret123!"} {
		if h.Verify([]byte(guess), d1) {
			t.Errorf("dummy digest matched %q", guess)
		}
	}
}

func TestNewHasher_ComputesDummyDigest(t *testing.T) {
	h := NewHasher(4)
	if h.dummyDigest == "" {
		t.Fatal("dummy digest should exist right after NewHasher")
	}
	if got := h.DummyDigest(); got != h.dummyDigest {
		t.Error("DummyDigest should return the digest computed at construction")
	}
}
