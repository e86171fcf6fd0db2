// Package circom proves token states with the circom version of the token
// state circuit, using its wasm witness calculator and its zkey proving key
// through rapidsnark. Proofs are returned in the same format as the gnark
// backend, so both can be verified and submitted the same way.
package circom

import (
	"encoding/json"
	"fmt"

	"github.com/iden3/go-rapidsnark/witness"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
)

// Inputs returns the circuit inputs of the state provided, in the format
// expected by the witness calculator. Every value is encoded as a decimal
// string, as snarkjs input.json files do.
func Inputs(s *tokenstate.TokenState) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("nil token state")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error encoding inputs: %w", err)
	}
	inputs, err := witness.ParseInputs(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing inputs: %w", err)
	}
	return inputs, nil
}
