// Package util holds small helpers shared by tests and parsers.
package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RandomBytes returns n bytes read from crypto/rand.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomInt returns a uniform integer in [min, max).
func RandomInt(min, max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		panic(err)
	}
	return min + int(n.Int64())
}

// TrimHex drops a leading 0x or 0X.
func TrimHex(s string) string {
	if HasHexPrefix(s) {
		return s[2:]
	}
	return s
}

// HasHexPrefix reports whether s starts with 0x or 0X.
func HasHexPrefix(s string) bool {
	return len(s) >= 2 && strings.EqualFold(s[:2], "0x")
}
