package service

import (
	"os"
	"testing"
)

func TestJWTRoundtrip(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	InitJWT()

	token, err := GenerateJWT("0xABCDEF0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	addr, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if addr != "0xabcdef0000000000000000000000000000000001" {
		t.Fatalf("expected lowercased address, got %s", addr)
	}
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	InitJWT()

	if _, err := ParseJWT("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := ParseJWT(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}
