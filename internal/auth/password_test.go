package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	const secret = "builder-login-7-glyphs"

	encoded, err := HashPassword(secret)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("hash = %q, want argon2id PHC encoding", encoded)
	}

	ok, err := VerifyPassword(secret, encoded)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("the hashed password should verify")
	}

	ok, err = VerifyPassword("builder-login-8-glyphs", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("a different password should not verify")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("repeat-me")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	b, err := HashPassword("repeat-me")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if a == b {
		t.Error("hashing the same password twice should produce distinct salts")
	}
}

func TestVerifyPassword_MalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=3,p=1",                // missing salt and key
		"$scrypt$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",    // wrong algorithm
		"$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA",     // bad salt encoding
		"$argon2id$v=19$m=sixty-four,t=3,p=1$c2FsdA$aA", // bad params
	} {
		if _, err := VerifyPassword("anything", encoded); !errors.Is(err, errMalformedHash) {
			t.Errorf("VerifyPassword(%q) error = %v, want errMalformedHash", encoded, err)
		}
	}
}

func TestHashPassword_CostSettings(t *testing.T) {
	encoded, err := HashPassword("cost-check")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 {
		t.Fatalf("fields = %d, want 6 in %q", len(fields), encoded)
	}
	if fields[3] != "m=65536,t=3,p=1" {
		t.Errorf("cost settings = %q, want m=65536,t=3,p=1", fields[3])
	}
}
