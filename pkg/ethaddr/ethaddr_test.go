package ethaddr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Checksummed vectors from EIP-55.
var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	"0x4D884A7E2459bD7DDad48Ab7e125a528DfeE60Fd",
}

func TestChecksum(t *testing.T) {
	for _, addr := range checksummed {
		got, err := Checksum(strings.ToLower(addr))
		require.NoError(t, err, addr)
		assert.Equal(t, addr, got)
	}
}

func TestChecksumRejectsMalformed(t *testing.T) {
	for _, addr := range []string{"", "0x", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0xZZeb6053F3E94C9b9A09f33669435E7Ef1BeAed"} {
		_, err := Checksum(addr)
		assert.Error(t, err, addr)
	}
}

func TestValid(t *testing.T) {
	for _, addr := range checksummed {
		assert.True(t, Valid(addr), addr)
		assert.True(t, Valid(strings.ToLower(addr)), "lower "+addr)
		assert.True(t, Valid("0x"+strings.ToUpper(addr[2:])), "upper "+addr)
	}
	// Single flipped case letter breaks the checksum.
	bad := strings.Replace(checksummed[0], "aA", "aa", 1)
	assert.False(t, Valid(bad))
	assert.False(t, Valid("0x123"))
	assert.False(t, Valid("not an address"))
}

func TestEqualAndCanonical(t *testing.T) {
	a := checksummed[0]
	assert.True(t, Equal(a, strings.ToLower(a)))
	assert.False(t, Equal(a, checksummed[1]))
	assert.Equal(t, strings.ToLower(a), Canonical(a))
}
