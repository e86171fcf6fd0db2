package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. Note that a nil pointer value marshals as the empty
// string.
type BigInt big.Int

// NewInt returns a new BigInt set to the value of x.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// MarshalText returns the decimal string representation of the big number.
// If the receiver is nil, we return "0".
func (i *BigInt) MarshalText() ([]byte, error) {
	if i == nil {
		return []byte("0"), nil
	}
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText parses the text representation into the big number.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	// if the value is empty, set it to zero
	if len(data) == 0 {
		(*big.Int)(i).SetInt64(0)
		return nil
	}
	if _, ok := (*big.Int)(i).SetString(string(data), 0); !ok {
		return fmt.Errorf("invalid big number %q", data)
	}
	return nil
}

// MarshalCBOR encodes the number as its decimal string.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.String())
}

// UnmarshalCBOR decodes a number encoded by MarshalCBOR.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}

// MathBigInt converts b to a math/big *Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// String returns the decimal representation of the number.
func (i *BigInt) String() string {
	if i == nil {
		return "0"
	}
	return (*big.Int)(i).String()
}

// Equal helps us with go-cmp.
func (i *BigInt) Equal(j *BigInt) bool {
	return (*big.Int)(i).Cmp((*big.Int)(j)) == 0
}

// BigIntSlice converts a slice of math/big numbers into BigInt values.
func BigIntSlice(in []*big.Int) []*BigInt {
	out := make([]*BigInt, len(in))
	for k, v := range in {
		out[k] = (*BigInt)(v)
	}
	return out
}

// MathBigIntSlice converts a slice of BigInt values into math/big numbers.
func MathBigIntSlice(in []*BigInt) []*big.Int {
	out := make([]*big.Int, len(in))
	for k, v := range in {
		out[k] = v.MathBigInt()
	}
	return out
}
