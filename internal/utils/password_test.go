package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Hash(t *testing.T) {
	password := "testpassword123"

	hash, err := BcryptHasher{}.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hash == "" {
		t.Error("Hash() returned empty string")
	}

	if hash == password {
		t.Error("Hash() should not return plaintext password")
	}

	if len(hash) < 50 {
		t.Errorf("hash seems too short: %d chars", len(hash))
	}
}

func TestBcryptHasher_Hash_DifferentHashes(t *testing.T) {
	password := "testpassword"

	hash1, _ := BcryptHasher{}.Hash(password)
	hash2, _ := BcryptHasher{}.Hash(password)

	if hash1 == hash2 {
		t.Error("same password should produce different hashes (due to salt)")
	}
}

func TestBcryptHasher_Verify(t *testing.T) {
	password := "correctpassword"
	hash, _ := BcryptHasher{}.Hash(password)

	tests := []struct {
		name     string
		password string
		expected bool
	}{
		{"correct password", "correctpassword", true},
		{"wrong password", "wrongpassword", false},
		{"empty password", "", false},
		{"similar password", "correctpassword1", false},
		{"case sensitive", "CorrectPassword", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BcryptHasher{}.Verify(tt.password, hash)
			if result != tt.expected {
				t.Errorf("Verify(%q) = %v, expected %v", tt.password, result, tt.expected)
			}
		})
	}
}

func TestBcryptHasher_Verify_InvalidHash(t *testing.T) {
	result := BcryptHasher{}.Verify("password", "invalid_hash")
	if result {
		t.Error("Verify should return false for invalid hash")
	}
}

func TestBcryptHasher_Verify_EmptyHash(t *testing.T) {
	result := BcryptHasher{}.Verify("password", "")
	if result {
		t.Error("Verify should return false for empty hash")
	}
}

func TestBcryptHasher_CustomCost(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != bcrypt.MinCost {
		t.Errorf("cost = %d, expected %d", cost, bcrypt.MinCost)
	}
	if !h.Verify("secret1", hash) {
		t.Error("Verify should accept the original password")
	}
	if h.Verify("secret2", hash) {
		t.Error("Verify should reject a different password")
	}
}
