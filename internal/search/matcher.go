package search

import (
	"fmt"
	"math/big"
	"math/bits"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Matches reports whether addr equals target on every bit position the
// mask selects: (addr & mask) == (target & mask). A zero mask matches
// any address; an all-ones mask requires exact equality.
func Matches(addr, target, mask common.Address) bool {
	for i := 0; i < common.AddressLength; i++ {
		if (addr[i]^target[i])&mask[i] != 0 {
			return false
		}
	}
	return true
}

// MaskBits returns the number of significant (set) bits in mask.
func MaskBits(mask common.Address) int {
	n := 0
	for _, b := range mask {
		n += bits.OnesCount8(b)
	}
	return n
}

// MaskDifficulty returns the expected number of attempts to find a
// single match under mask: 2^popcount(mask). Returns nil for a zero
// mask, where the first candidate always matches.
func MaskDifficulty(mask common.Address) *big.Int {
	k := MaskBits(mask)
	if k == 0 {
		return nil
	}
	return new(big.Int).Lsh(big.NewInt(1), uint(k))
}

// ParseAddress parses a 160-bit address literal. Unlike
// common.HexToAddress it rejects anything that is not exactly 40 hex
// digits (optional 0x prefix) instead of silently truncating.
func ParseAddress(s string) (common.Address, error) {
	bare := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(bare) != common.AddressLength*2 {
		return common.Address{}, fmt.Errorf("want %d hex digits, got %d", common.AddressLength*2, len(bare))
	}
	if !isHex(bare) {
		return common.Address{}, fmt.Errorf("invalid hex digits in %q", s)
	}
	return common.HexToAddress(bare), nil
}

// ParseHash parses a 256-bit hash literal with the same strictness as
// ParseAddress.
func ParseHash(s string) (common.Hash, error) {
	bare := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(bare) != common.HashLength*2 {
		return common.Hash{}, fmt.Errorf("want %d hex digits, got %d", common.HashLength*2, len(bare))
	}
	if !isHex(bare) {
		return common.Hash{}, fmt.Errorf("invalid hex digits in %q", s)
	}
	return common.HexToHash(bare), nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return len(s) > 0
}
