// Package tokenstate implements the token state circuit: a Groth16 circuit
// over BN254 that proves a token state is consistent (cap > 0,
// totalSupply <= cap, ownerBalance <= totalSupply) without revealing the
// supply, the balance or the owner. It also includes the native evaluation
// of the same checks, the prover and the verifier.
package tokenstate

import (
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/gnark-crypto-primitives/utils"
	"github.com/vocdoni/tokenzk/circuits"
)

// HashFn is the in-circuit hash used to derive the state identifier.
var HashFn = utils.MiMCHasher

// Circuit is the token state circuit. The order of the public fields defines
// the order of the public signals.
type Circuit struct {
	// PUBLIC INPUTS
	Validity    frontend.Variable `gnark:",public"`
	StateID     frontend.Variable `gnark:",public"`
	Cap         frontend.Variable `gnark:",public"`
	BlockNumber frontend.Variable `gnark:",public"`
	Timestamp   frontend.Variable `gnark:",public"`

	// SECRET INPUTS
	TotalSupply  frontend.Variable
	OwnerBalance frontend.Variable
	Owner        frontend.Variable
}

// Define declares the circuit constraints. Every named check is added to
// the constraint system, the predicates are folded into the validity signal
// and the validity signal is constrained to one, so an invalid state has no
// witness at all.
func (c *Circuit) Define(api frontend.API) error {
	validity := frontend.Variable(1)
	for _, check := range Checks {
		if holds := check.define(api, c); holds != nil {
			validity = api.And(validity, holds)
		}
	}
	api.AssertIsEqual(c.Validity, validity)
	api.AssertIsEqual(c.Validity, 1)

	stateID, err := HashFn(api, c.Owner, c.TotalSupply, c.BlockNumber)
	if err != nil {
		circuits.FrontendError(api, "failed to hash the state identifier", err)
		return err
	}
	api.AssertIsEqual(c.StateID, stateID)
	return nil
}
