package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/totegamma/concrnt-console"
)

// ErrMalformed is returned for tokens that cannot be decoded.
var ErrMalformed = errors.New("malformed token")

var toURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

// DecodeSegment decodes base64 in either alphabet, padded or not.
func DecodeSegment(seg string) ([]byte, error) {
	normalized := toURLAlphabet.Replace(strings.TrimRight(strings.TrimSpace(seg), "="))
	b, err := base64.RawURLEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return b, nil
}

// DecodePayload returns the raw JSON object carried in the middle segment.
func DecodePayload(token string) (map[string]any, error) {
	split := strings.Split(strings.TrimSpace(token), ".")
	if len(split) < 2 || split[1] == "" {
		return nil, fmt.Errorf("%w: expected dot separated segments", ErrMalformed)
	}

	payloadBytes, err := DecodeSegment(split[1])
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	err = json.Unmarshal(payloadBytes, &payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}

	return payload, nil
}

// Decode reads header and claims without checking the signature.
// A broken header is tolerated; only the payload matters to callers.
func Decode(token string) (Header, Claims, error) {
	split := strings.Split(strings.TrimSpace(token), ".")
	if len(split) < 2 || split[1] == "" {
		return Header{}, Claims{}, fmt.Errorf("%w: expected dot separated segments", ErrMalformed)
	}

	var header Header
	if headerBytes, err := DecodeSegment(split[0]); err == nil {
		_ = json.Unmarshal(headerBytes, &header)
	}

	payloadBytes, err := DecodeSegment(split[1])
	if err != nil {
		return Header{}, Claims{}, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(payloadBytes), []byte("{")) {
		return Header{}, Claims{}, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}

	var claims Claims
	err = json.Unmarshal(payloadBytes, &claims)
	if err != nil {
		return Header{}, Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return header, claims, nil
}

// Create creates a client signed JWT
func Create(claims Claims, privatekey string) (string, error) {
	header := Header{
		Type:      "JWT",
		Algorithm: "CONCRNT",
	}
	headerStr, err := json.Marshal(header)
	if err != nil {
		return "", err
	}

	payloadStr, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	headerB64 := base64.RawURLEncoding.EncodeToString(headerStr)
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadStr)
	target := headerB64 + "." + payloadB64

	signatureBytes, err := concrnt.SignBytes([]byte(target), privatekey)
	if err != nil {
		return "", err
	}
	signatureB64 := base64.RawURLEncoding.EncodeToString(signatureBytes)

	return target + "." + signatureB64, nil
}

// Verify checks is jwt signature valid and not expired.
// The portal itself never calls this; it backs `token inspect --verify`.
func Verify(jwt string) (*Header, *Claims, error) {

	split := strings.Split(jwt, ".")
	if len(split) != 3 {
		return nil, nil, fmt.Errorf("%w: expected three segments", ErrMalformed)
	}

	header, claims, err := Decode(jwt)
	if err != nil {
		return nil, nil, err
	}

	if header.Type != "JWT" || header.Algorithm != "CONCRNT" {
		return nil, nil, fmt.Errorf("unsupported JWT type")
	}

	if claims.ExpirationTime != "" {
		exp, err := claims.ExpirationTime.Int64()
		if err != nil {
			return nil, nil, err
		}
		if exp < time.Now().Unix() {
			return nil, nil, fmt.Errorf("jwt is already expired")
		}
	}

	signatureBytes, err := DecodeSegment(split[2])
	if err != nil {
		return nil, nil, err
	}

	keyID := header.KeyID
	if keyID == "" {
		keyID = claims.Issuer
	}

	err = concrnt.VerifySignature([]byte(split[0]+"."+split[1]), signatureBytes, keyID)
	if err != nil {
		return nil, nil, err
	}

	return &header, &claims, nil
}

// ExpiresIn formats an expiration claim relative to now.
func ExpiresIn(d time.Duration) NumericString {
	return NumericString(strconv.FormatInt(time.Now().Add(d).Unix(), 10))
}
