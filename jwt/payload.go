package jwt

import (
	"encoding/json"
	"fmt"

	"github.com/totegamma/concrnt-console"
)

// DecodeSignedPayload reads the base64 encoded registration document.
// The signature travelling next to it is never checked here.
func DecodeSignedPayload(encoded string) (concrnt.AffiliationPayload, []byte, error) {
	raw, err := DecodeSegment(encoded)
	if err != nil {
		return concrnt.AffiliationPayload{}, nil, err
	}

	var payload concrnt.AffiliationPayload
	err = json.Unmarshal(raw, &payload)
	if err != nil {
		return concrnt.AffiliationPayload{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Signer == "" {
		return concrnt.AffiliationPayload{}, nil, fmt.Errorf("%w: signer is missing", ErrMalformed)
	}

	return payload, raw, nil
}
