package main

import (
	"testing"
	"time"

	"github.com/totegamma/concrnt-console/jwt"
)

const testPrivateKey = "8c0b1d9f6d0e3f1c4b7a2e5d9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b"

func TestMintTokenVerifies(t *testing.T) {
	token, err := mintToken(testPrivateKey, "example.com", "concrnt", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	_, claims, err := jwt.Verify(token)
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if claims.Audience != "example.com" || claims.Subject != "concrnt" || claims.JWTID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if err := inspectToken(token, true); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
}

func TestMintTokenRejectsBadKey(t *testing.T) {
	if _, err := mintToken("zz", "example.com", "concrnt", time.Hour); err == nil {
		t.Fatalf("expected an error for a malformed key")
	}
}

func TestLoginURL(t *testing.T) {
	got := loginURL("https://console.example/", "a.b.c")
	if got != "https://console.example/login?claim=1&token=a.b.c" {
		t.Fatalf("unexpected url %q", got)
	}
}
