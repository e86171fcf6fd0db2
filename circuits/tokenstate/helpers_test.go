package tokenstate

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/crypto/hash/mimc"
)

var (
	testKeysOnce sync.Once
	testKeysVal  *Keys
	testKeysErr  error

	testOwner = big.NewInt(123456789)
)

// testKeys runs the development setup once for the whole package.
func testKeys(t *testing.T) *Keys {
	testKeysOnce.Do(func() {
		testKeysVal, testKeysErr = CompileAndSetup()
	})
	qt.Assert(t, testKeysErr, qt.IsNil)
	return testKeysVal
}

func testProver(t *testing.T) *Prover {
	p, err := NewProverFromKeys(testKeys(t))
	qt.Assert(t, err, qt.IsNil)
	return p
}

// validState returns the reference valid state.
func validState() *TokenState {
	return NewTokenState(1000000, 2000000, 500000, 12345, uint64(time.Now().Unix()), testOwner)
}

// rawAssignment returns the circuit assignment of a state skipping the
// native checks, with validity forced to one and the state identifier
// computed natively.
func rawAssignment(t *testing.T, s *TokenState) *Circuit {
	stateID, err := mimc.Hash(s.Owner, s.TotalSupply, s.BlockNumber)
	qt.Assert(t, err, qt.IsNil)
	return &Circuit{
		Validity:     1,
		StateID:      stateID,
		Cap:          s.Cap,
		BlockNumber:  s.BlockNumber,
		Timestamp:    s.Timestamp,
		TotalSupply:  s.TotalSupply,
		OwnerBalance: s.OwnerBalance,
		Owner:        s.Owner,
	}
}

func fpModulus() *big.Int {
	return fp.Modulus()
}
