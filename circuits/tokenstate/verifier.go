package tokenstate

import (
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/log"
)

// Verify checks the proof against the public signals and the verifying key
// provided. It is a pure function: it returns true only if the proof is a
// valid proof of the circuit for exactly these signals. Malformed proofs
// (points out of the curve, wrong coordinates) return false. Errors are
// reserved for signals with the wrong shape (ErrShapeMismatch) and for a
// missing verifying key.
func Verify(proof *circuits.Proof, signals circuits.PublicSignals, vk groth16.VerifyingKey) (bool, error) {
	if vk == nil {
		return false, fmt.Errorf("missing verifying key")
	}
	if err := signals.Validate(); err != nil {
		return false, err
	}
	if proof == nil {
		return false, nil
	}
	gnarkProof, err := proof.ToGnark()
	if err != nil {
		log.Debugw("malformed token state proof", "error", err.Error())
		return false, nil
	}
	publicWitness, err := PublicWitness(signals)
	if err != nil {
		return false, err
	}
	if err := groth16.Verify(gnarkProof, vk, publicWitness); err != nil {
		log.Debugw("token state proof rejected", "error", err.Error())
		return false, nil
	}
	return true, nil
}

// Verifier verifies token state proofs with a fixed verifying key.
type Verifier struct {
	vk groth16.VerifyingKey
}

// NewVerifier returns a verifier for the verifying key provided.
func NewVerifier(vk groth16.VerifyingKey) (*Verifier, error) {
	if vk == nil {
		return nil, fmt.Errorf("missing verifying key")
	}
	return &Verifier{vk: vk}, nil
}

// Verify checks the proof against the signals provided, see Verify.
func (v *Verifier) Verify(proof *circuits.Proof, signals circuits.PublicSignals) (bool, error) {
	return Verify(proof, signals, v.vk)
}

// VerifyingKey returns the verifying key of the verifier.
func (v *Verifier) VerifyingKey() groth16.VerifyingKey {
	return v.vk
}
