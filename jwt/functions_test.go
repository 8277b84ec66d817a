package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/totegamma/concrnt-console"
)

const testPrivateKey = "8c0b1d9f6d0e3f1c4b7a2e5d9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b"

func compose(t *testing.T, payload any, enc *base64.Encoding) string {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"CONCRNT","typ":"JWT"}`))
	return header + "." + enc.EncodeToString(b) + ".c2lnbmF0dXJl"
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	// "~~~" and "???" produce '+', '/', '-' and '_' depending on the alphabet
	payload := map[string]any{
		"iss":   "con1example",
		"note":  "~~~???>>>",
		"count": float64(3),
	}

	encodings := map[string]*base64.Encoding{
		"raw url": base64.RawURLEncoding,
		"url":     base64.URLEncoding,
		"std":     base64.StdEncoding,
		"raw std": base64.RawStdEncoding,
	}

	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			got, err := DecodePayload(compose(t, payload, enc))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, payload) {
				t.Fatalf("expected %v got %v", payload, got)
			}
		})
	}
}

func TestDecodeClaims(t *testing.T) {
	token := compose(t, map[string]any{
		"iss": "con1issuer",
		"aud": "example.com",
		"sub": "concrnt",
		"exp": 1700000000,
		"iat": "1690000000",
	}, base64.RawURLEncoding)

	header, claims, err := Decode(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if header.Algorithm != "CONCRNT" {
		t.Fatalf("unexpected header %+v", header)
	}
	if claims.Identity("iss") != "con1issuer" || claims.Identity("aud") != "example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ExpirationTime != "1700000000" || claims.IssuedAt != "1690000000" {
		t.Fatalf("numeric claims not normalized: %+v", claims)
	}
}

func TestDecodeMalformed(t *testing.T) {
	notJSON := "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig"
	notObject := "a." + base64.RawURLEncoding.EncodeToString([]byte(`[1,2]`)) + ".sig"
	null := "a." + base64.RawURLEncoding.EncodeToString([]byte(`null`)) + ".sig"
	number := "a." + base64.RawURLEncoding.EncodeToString([]byte(` 42`)) + ".sig"

	tests := map[string]string{
		"empty":          "",
		"single segment": "abcdef",
		"empty payload":  "abc..sig",
		"bad base64":     "abc.!!!!.sig",
		"not json":       notJSON,
		"not object":     notObject,
		"null payload":   null,
		"number payload": number,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(token)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed from Decode, got %v", err)
			}
			_, err = DecodePayload(token)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed from DecodePayload, got %v", err)
			}
		})
	}
}

func TestDecodeToleratesBrokenHeader(t *testing.T) {
	token := "%%%." + base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"con1x"}`))
	_, claims, err := Decode(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if claims.Issuer != "con1x" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
}

func TestCreateAndVerify(t *testing.T) {
	ccid, err := concrnt.PrivKeyToAddr(testPrivateKey, "con")
	if err != nil {
		t.Fatalf("PrivKeyToAddr failed: %v", err)
	}

	token, err := Create(Claims{
		Issuer:         ccid,
		Subject:        "concrnt",
		Audience:       "example.com",
		ExpirationTime: ExpiresIn(time.Hour),
	}, testPrivateKey)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, claims, err := Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Issuer != ccid {
		t.Fatalf("expected issuer %s got %s", ccid, claims.Issuer)
	}

	split := strings.Split(token, ".")
	forged := split[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"`+ccid+`","aud":"evil.com"}`)) + "." + split[2]
	if _, _, err := Verify(forged); err == nil {
		t.Fatalf("expected verification failure for forged payload")
	}
}

func TestVerifyExpired(t *testing.T) {
	ccid, err := concrnt.PrivKeyToAddr(testPrivateKey, "con")
	if err != nil {
		t.Fatalf("PrivKeyToAddr failed: %v", err)
	}

	token, err := Create(Claims{
		Issuer:         ccid,
		ExpirationTime: ExpiresIn(-time.Minute),
	}, testPrivateKey)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, _, err := Verify(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestDecodeSignedPayload(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"signer":"con1signer","type":"affiliation","domain":"example.com"}`))

	payload, raw, err := DecodeSignedPayload(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Signer != "con1signer" || payload.Domain != "example.com" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if !strings.Contains(string(raw), `"signer"`) {
		t.Fatalf("expected raw document to be returned")
	}

	missing := base64.StdEncoding.EncodeToString([]byte(`{"type":"affiliation"}`))
	if _, _, err := DecodeSignedPayload(missing); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for missing signer, got %v", err)
	}
}
