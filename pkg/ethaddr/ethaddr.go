// Package ethaddr validates and canonicalizes EVM addresses.
package ethaddr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IsHex reports whether s looks like a 0x-prefixed 20-byte hex address.
func IsHex(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// Checksum returns the EIP-55 mixed-case form of addr.
func Checksum(addr string) (string, error) {
	if !IsHex(addr) {
		return "", fmt.Errorf("ethaddr: invalid address %q", addr)
	}
	lower := strings.ToLower(addr[2:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// Valid reports whether addr is well-formed and, when mixed-case,
// carries a correct EIP-55 checksum. All-lower and all-upper hex are
// accepted as checksum-agnostic.
func Valid(addr string) bool {
	if !IsHex(addr) {
		return false
	}
	body := addr[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	sum, err := Checksum(addr)
	return err == nil && sum == addr
}

// Equal compares two addresses case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Canonical returns the lower-case form used as a map/correlation key.
func Canonical(addr string) string {
	return strings.ToLower(addr)
}
