// Package field contains helpers to represent token values as elements of
// the BN254 scalar field, the field every circuit signal lives in.
package field

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/utils"
	"github.com/vocdoni/tokenzk/util"
)

// SerializedFieldSize is the size in bytes of a serialized field element.
const SerializedFieldSize = 32 // bytes

// Modulus returns the order of the BN254 scalar field:
// 21888242871839275222246405745257275088548364400416034343698204186575808495617
func Modulus() *big.Int {
	return ecc.BN254.ScalarField()
}

// IsCanonical returns true if v is not nil and 0 <= v < p.
func IsCanonical(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && utils.CheckBigIntInField(v)
}

// Parse decodes a decimal or 0x prefixed hexadecimal string into a
// canonical field element. Values outside of the field are rejected instead
// of being reduced, so two different inputs never collapse into the same
// signal.
func Parse(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	v, ok := new(big.Int), false
	if hex := util.TrimHex(s); hex != s {
		v, ok = v.SetString(hex, 16)
	} else {
		v, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if !IsCanonical(v) {
		return nil, fmt.Errorf("value %s is not an element of the scalar field", v)
	}
	return v, nil
}

// ParseOwner decodes an owner identifier. It accepts an Ethereum address
// (0x followed by 40 hex chars) or any value accepted by Parse.
func ParseOwner(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if len(s) == 2+2*common.AddressLength && common.IsHexAddress(s) {
		return FromAddress(common.HexToAddress(s)), nil
	}
	return Parse(s)
}

// FromAddress returns the scalar representation of an Ethereum address. An
// address is 160 bits long so it always fits in the field.
func FromAddress(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

// BigToFF function returns the finite field representation of the big.Int
// provided. It uses the curve scalar field to represent the provided number.
func BigToFF(iv *big.Int) *big.Int {
	baseField := Modulus()
	z := big.NewInt(0)
	if c := iv.Cmp(baseField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, baseField)
}

// Bytes returns the 32 bytes big-endian representation of the field element
// of v, padded with zeros at the beginning.
func Bytes(v *big.Int) []byte {
	b := make([]byte, SerializedFieldSize)
	return BigToFF(v).FillBytes(b)
}
