// Package mimc implements the native counterpart of the in-circuit MiMC
// sponge used to derive token state identifiers.
package mimc

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/vocdoni/tokenzk/crypto/field"
)

// MaxInputs is the maximum number of elements accepted by Hash.
const MaxInputs = 256

// Hash returns the MiMC (Miyaguchi-Preneel) hash over BN254 of the inputs
// provided. Every input must be a canonical field element, otherwise the
// circuit would reduce it and produce a different digest.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > MaxInputs {
		return nil, fmt.Errorf("too many inputs")
	} else if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	hasher := mimc.NewMiMC()
	var buf [field.SerializedFieldSize]byte
	for i, input := range inputs {
		if !field.IsCanonical(input) {
			return nil, fmt.Errorf("input %d is not a field element", i)
		}
		input.FillBytes(buf[:])
		if _, err := hasher.Write(buf[:]); err != nil {
			return nil, fmt.Errorf("hash input %d: %w", i, err)
		}
	}
	return new(big.Int).SetBytes(hasher.Sum(nil)), nil
}
