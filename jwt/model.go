package jwt

import (
	"encoding/json"
	"strconv"
)

// Header is jwt header type
type Header struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
	KeyID     string `json:"kid,omitempty"`
}

// Claims is jwt payload type
type Claims struct {
	Issuer         string        `json:"iss,omitempty"`
	Subject        string        `json:"sub,omitempty"`
	Audience       string        `json:"aud,omitempty"`
	ExpirationTime NumericString `json:"exp,omitempty"`
	IssuedAt       NumericString `json:"iat,omitempty"`
	JWTID          string        `json:"jti,omitempty"`
}

// Identity returns the claim naming the token holder.
// Which claim carries it differs between server revisions.
func (c Claims) Identity(field string) string {
	switch field {
	case "aud":
		return c.Audience
	case "sub":
		return c.Subject
	default:
		return c.Issuer
	}
}

// NumericString accepts both `"1700000000"` and `1700000000`.
type NumericString string

func (n *NumericString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = NumericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NumericString(num.String())
	return nil
}

func (n NumericString) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}
