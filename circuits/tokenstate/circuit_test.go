package tokenstate

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/circuits"
)

func TestCircuitValidState(t *testing.T) {
	assert := test.NewAssert(t)
	state := validState()
	eval, err := Evaluate(state)
	qt.Assert(t, err, qt.IsNil)
	assert.ProverSucceeded(&Circuit{}, Assignment(state, eval.PublicSignals),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}

func TestCircuitBoundaries(t *testing.T) {
	c := qt.New(t)
	field := circuits.Curve.ScalarField()
	// supply equal to cap and balance equal to supply hold
	state := NewTokenState(2000000, 2000000, 2000000, 1, 1, testOwner)
	c.Assert(test.IsSolved(&Circuit{}, rawAssignment(t, state), field), qt.IsNil)
	// the largest value that fits in the comparison width
	maxValue := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), circuits.ComparisonBits), big.NewInt(1))
	state = &TokenState{
		TotalSupply:  maxValue,
		Cap:          maxValue,
		OwnerBalance: big.NewInt(0),
		BlockNumber:  big.NewInt(1),
		Timestamp:    big.NewInt(1),
		Owner:        testOwner,
	}
	c.Assert(test.IsSolved(&Circuit{}, rawAssignment(t, state), field), qt.IsNil)
}

func TestCircuitInvalidStates(t *testing.T) {
	assert := test.NewAssert(t)
	overflow := new(big.Int).Lsh(big.NewInt(1), circuits.ComparisonBits)
	tests := []struct {
		name  string
		state *TokenState
	}{
		{"cap zero", NewTokenState(0, 0, 0, 12345, 1, testOwner)},
		{"supply over cap", NewTokenState(2500000, 2000000, 500000, 12345, 1, testOwner)},
		{"balance over supply", NewTokenState(1000000, 2000000, 1000001, 12345, 1, testOwner)},
		{"cap out of range", &TokenState{
			TotalSupply:  big.NewInt(1),
			Cap:          overflow,
			OwnerBalance: big.NewInt(1),
			BlockNumber:  big.NewInt(1),
			Timestamp:    big.NewInt(1),
			Owner:        testOwner,
		}},
		{"timestamp out of range", &TokenState{
			TotalSupply:  big.NewInt(1),
			Cap:          big.NewInt(2),
			OwnerBalance: big.NewInt(1),
			BlockNumber:  big.NewInt(1),
			Timestamp:    new(big.Int).Lsh(big.NewInt(1), circuits.TimestampBits),
			Owner:        testOwner,
		}},
		// a supply that wraps around the field looks smaller than the cap
		// to a native comparison, but fails the range check
		{"supply wrapping the field", &TokenState{
			TotalSupply:  new(big.Int).Sub(circuits.Curve.ScalarField(), big.NewInt(1)),
			Cap:          big.NewInt(2000000),
			OwnerBalance: big.NewInt(0),
			BlockNumber:  big.NewInt(1),
			Timestamp:    big.NewInt(1),
			Owner:        testOwner,
		}},
	}
	for _, tc := range tests {
		assert.Run(func(assert *test.Assert) {
			assert.ProverFailed(&Circuit{}, rawAssignment(t, tc.state),
				test.WithCurves(ecc.BN254),
				test.WithBackends(backend.GROTH16))
		}, tc.name)
	}
}

func TestCircuitBindsPublicSignals(t *testing.T) {
	c := qt.New(t)
	field := circuits.Curve.ScalarField()
	state := validState()

	// validity zero is never accepted, even for a valid state
	assignment := rawAssignment(t, state)
	assignment.Validity = 0
	c.Assert(test.IsSolved(&Circuit{}, assignment, field), qt.IsNotNil)

	// wrong state identifier
	assignment = rawAssignment(t, state)
	assignment.StateID = big.NewInt(42)
	c.Assert(test.IsSolved(&Circuit{}, assignment, field), qt.IsNotNil)

	// the identifier depends on the block number
	other := validState()
	other.BlockNumber = big.NewInt(12346)
	assignment = rawAssignment(t, state)
	assignment.StateID = rawAssignment(t, other).StateID
	c.Assert(test.IsSolved(&Circuit{}, assignment, field), qt.IsNotNil)
}
