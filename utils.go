package concrnt

import (
	"fmt"
	"strings"

	"github.com/cosmos/cosmos-sdk/types/bech32"
)

func hasChar(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}

func IsCCID(keyID string) bool {
	return len(keyID) == 42 && keyID[:3] == "con" && !hasChar(keyID, '.')
}

func IsCKID(keyID string) bool {
	return len(keyID) == 42 && keyID[:3] == "cck" && !hasChar(keyID, '.')
}

// ValidateCCID checks the shape and the bech32 checksum of a CCID.
func ValidateCCID(ccid string) error {
	if !IsCCID(ccid) {
		return fmt.Errorf("not a ccid: %q", ccid)
	}
	hrp, _, err := bech32.DecodeAndConvert(ccid)
	if err != nil {
		return fmt.Errorf("invalid ccid %q: %v", ccid, err)
	}
	if hrp != "con" {
		return fmt.Errorf("invalid ccid prefix %q", hrp)
	}
	return nil
}

// ParseTags splits a comma separated tag list ("_admin, _root").
func ParseTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
