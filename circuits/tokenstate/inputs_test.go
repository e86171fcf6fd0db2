package tokenstate

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/crypto/hash/mimc"
)

func TestEvaluate(t *testing.T) {
	c := qt.New(t)

	state := NewTokenState(1000000, 2000000, 500000, 12345, 1700000000, testOwner)
	eval, err := Evaluate(state)
	c.Assert(err, qt.IsNil)
	c.Assert(eval.PublicSignals, qt.HasLen, circuits.NumPublicSignals)
	c.Assert(eval.PublicSignals.Validity().Int64(), qt.Equals, int64(1))
	c.Assert(eval.PublicSignals.Cap().Int64(), qt.Equals, int64(2000000))
	c.Assert(eval.PublicSignals.BlockNumber().Int64(), qt.Equals, int64(12345))
	c.Assert(eval.PublicSignals.Timestamp().Int64(), qt.Equals, int64(1700000000))

	expected, err := mimc.Hash(testOwner, big.NewInt(1000000), big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(eval.StateID.Cmp(expected), qt.Equals, 0)
	c.Assert(eval.PublicSignals.StateID().Cmp(expected), qt.Equals, 0)

	// the private values never show up in the public signals
	for _, s := range eval.PublicSignals {
		c.Assert(s.Cmp(state.TotalSupply) == 0 && s.Cmp(state.OwnerBalance) == 0, qt.IsFalse)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	c := qt.New(t)
	first, err := Evaluate(validState())
	c.Assert(err, qt.IsNil)
	second, err := Evaluate(validState())
	c.Assert(err, qt.IsNil)
	c.Assert(first.StateID.Cmp(second.StateID), qt.Equals, 0)

	// a different block changes the identifier
	other := validState()
	other.BlockNumber = big.NewInt(12346)
	third, err := Evaluate(other)
	c.Assert(err, qt.IsNil)
	c.Assert(first.StateID.Cmp(third.StateID), qt.Not(qt.Equals), 0)
}

func TestEvaluateNamedChecks(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name  string
		state *TokenState
		check string
	}{
		{"supply over cap", NewTokenState(2500000, 2000000, 500000, 12345, 1, testOwner), CheckSupplyWithinCap},
		{"cap zero", NewTokenState(0, 0, 0, 12345, 1, testOwner), CheckCapNonZero},
		{"balance over supply", NewTokenState(100, 200, 101, 12345, 1, testOwner), CheckBalanceWithinSupply},
		{"cap too large", &TokenState{
			TotalSupply:  big.NewInt(1),
			Cap:          new(big.Int).Lsh(big.NewInt(1), circuits.ComparisonBits),
			OwnerBalance: big.NewInt(0),
			BlockNumber:  big.NewInt(1),
			Timestamp:    big.NewInt(1),
			Owner:        testOwner,
		}, CheckCapRange},
		{"timestamp too large", &TokenState{
			TotalSupply:  big.NewInt(1),
			Cap:          big.NewInt(1),
			OwnerBalance: big.NewInt(0),
			BlockNumber:  big.NewInt(1),
			Timestamp:    new(big.Int).Lsh(big.NewInt(1), circuits.TimestampBits),
			Owner:        testOwner,
		}, CheckTimestampRange},
	}
	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			_, err := Evaluate(tc.state)
			c.Assert(err, qt.IsNotNil)
			c.Assert(errors.Is(err, circuits.ErrInvalidState), qt.IsTrue)
			c.Assert(circuits.UnsatisfiedCheck(err), qt.Equals, tc.check)
		})
	}
}

func TestEvaluateRejectsNonFieldValues(t *testing.T) {
	c := qt.New(t)
	state := validState()
	state.Owner = new(big.Int).Set(circuits.Curve.ScalarField())
	_, err := Evaluate(state)
	c.Assert(errors.Is(err, circuits.ErrInvalidState), qt.IsTrue)

	state = validState()
	state.Timestamp = nil
	_, err = Evaluate(state)
	c.Assert(errors.Is(err, circuits.ErrInvalidState), qt.IsTrue)

	_, err = Evaluate(nil)
	c.Assert(errors.Is(err, circuits.ErrInvalidState), qt.IsTrue)
}

func TestTokenStateJSON(t *testing.T) {
	c := qt.New(t)

	input := `{
		"totalSupply": "1000000",
		"cap": 2000000,
		"ownerBalance": "500000",
		"blockNumber": "12345",
		"timestamp": "0x6553f100",
		"owner": "0x00000000000000000000000000000000075bcd15"
	}`
	state := &TokenState{}
	c.Assert(json.Unmarshal([]byte(input), state), qt.IsNil)
	c.Assert(state.TotalSupply.Int64(), qt.Equals, int64(1000000))
	c.Assert(state.Cap.Int64(), qt.Equals, int64(2000000))
	c.Assert(state.Timestamp.Int64(), qt.Equals, int64(1700000000))
	c.Assert(state.Owner.Cmp(testOwner), qt.Equals, 0)

	data, err := json.Marshal(state)
	c.Assert(err, qt.IsNil)
	decoded := &TokenState{}
	c.Assert(json.Unmarshal(data, decoded), qt.IsNil)
	c.Assert(decoded.Cap.Cmp(state.Cap), qt.Equals, 0)
	c.Assert(decoded.Owner.Cmp(state.Owner), qt.Equals, 0)

	// values outside the field are rejected
	bad := `{"totalSupply":"1","cap":"1","ownerBalance":"1","blockNumber":"1","timestamp":"1",
		"owner":"21888242871839275222246405745257275088548364400416034343698204186575808495617"}`
	err = json.Unmarshal([]byte(bad), &TokenState{})
	c.Assert(err, qt.ErrorMatches, "owner: .*")

	// missing values are rejected
	err = json.Unmarshal([]byte(`{"cap":"1"}`), &TokenState{})
	c.Assert(err, qt.ErrorMatches, "totalSupply: .*")
}
