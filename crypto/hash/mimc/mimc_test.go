package mimc

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/crypto/field"
)

func TestHash(t *testing.T) {
	c := qt.New(t)

	a, err := Hash(big.NewInt(123456789), big.NewInt(1000000), big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(field.IsCanonical(a), qt.IsTrue)

	// deterministic
	b, err := Hash(big.NewInt(123456789), big.NewInt(1000000), big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Cmp(b), qt.Equals, 0)

	// order matters
	b, err = Hash(big.NewInt(1000000), big.NewInt(123456789), big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Cmp(b), qt.Not(qt.Equals), 0)

	// a different block produces a different identifier
	b, err = Hash(big.NewInt(123456789), big.NewInt(1000000), big.NewInt(12346))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Cmp(b), qt.Not(qt.Equals), 0)
}

func TestHashInvalidInputs(t *testing.T) {
	c := qt.New(t)

	_, err := Hash()
	c.Assert(err, qt.ErrorMatches, "no inputs provided")

	_, err = Hash(field.Modulus())
	c.Assert(err, qt.ErrorMatches, "input 0 is not a field element")

	_, err = Hash(big.NewInt(1), nil)
	c.Assert(err, qt.ErrorMatches, "input 1 is not a field element")

	_, err = Hash(make([]*big.Int, MaxInputs+1)...)
	c.Assert(err, qt.ErrorMatches, "too many inputs")
}
