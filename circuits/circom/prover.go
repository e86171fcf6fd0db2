package circom

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/witness"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
)

// Prover generates proofs of the circom token state circuit. The circuit
// definition artifact is the wasm witness calculator, the proving key is the
// zkey file and the verifying key is the snarkjs verification_key.json.
type Prover struct {
	wasm []byte
	zkey []byte
	vkey []byte
}

// NewProver returns a prover for the artifacts provided. The verification
// key is optional, it is only needed by Verify.
func NewProver(wasm, zkey, vkey []byte) (*Prover, error) {
	if len(wasm) == 0 || len(zkey) == 0 {
		return nil, fmt.Errorf("%w: missing wasm circuit or zkey", circuits.ErrProvingFailure)
	}
	return &Prover{wasm: wasm, zkey: zkey, vkey: vkey}, nil
}

// NewProverFromArtifacts loads the artifacts from the store and returns a
// prover for them.
func NewProverFromArtifacts(artifacts *circuits.CircuitArtifacts, store *circuits.ArtifactStore) (*Prover, error) {
	if err := artifacts.LoadAll(store); err != nil {
		return nil, fmt.Errorf("failed to load circom artifacts: %w", err)
	}
	return NewProver(artifacts.CircuitDefinition(), artifacts.ProvingKey(), artifacts.VerifyingKey())
}

// GenerateProof checks the state natively, calculates the witness with the
// wasm circuit and proves it with rapidsnark. Invalid states fail with the
// name of the failing check before reaching the witness calculator.
func (p *Prover) GenerateProof(ctx context.Context, s *tokenstate.TokenState) (*circuits.ProofWithSignals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := tokenstate.Evaluate(s); err != nil {
		return nil, err
	}
	inputs, err := Inputs(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrInvalidState, err)
	}
	startTime := time.Now()
	calc, err := witness.NewCircom2WitnessCalculator(p.wasm, true)
	if err != nil {
		return nil, fmt.Errorf("%w: witness calculator: %v", circuits.ErrProvingFailure, err)
	}
	wtns, err := calc.CalculateWTNSBin(inputs, true)
	if err != nil {
		// the wasm circuit asserts every check, so a failure here means the
		// circuit rejects the state
		return nil, &circuits.ConstraintUnsatisfied{Check: "circuit", Detail: err.Error()}
	}
	proofJSON, pubJSON, err := prover.Groth16ProverRaw(p.zkey, wtns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrProvingFailure, err)
	}
	result, err := DecodeProof(proofJSON, pubJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrProvingFailure, err)
	}
	log.Debugw("circom token state proof generated",
		"stateId", result.PublicSignals.StateID().String(),
		"took", time.Since(startTime).String())
	return result, nil
}

// Verify checks a proof with the snarkjs verification key of the prover.
func (p *Prover) Verify(proof *circuits.Proof, signals circuits.PublicSignals) (bool, error) {
	if len(p.vkey) == 0 {
		return false, fmt.Errorf("missing verification key")
	}
	if err := signals.Validate(); err != nil {
		return false, err
	}
	if proof == nil {
		return false, nil
	}
	proofJSON, err := json.Marshal(proof)
	if err != nil {
		return false, nil
	}
	pubJSON, err := json.Marshal(signals)
	if err != nil {
		return false, err
	}
	return circuits.VerifyCircomProof(p.vkey, string(proofJSON), string(pubJSON))
}

// DecodeProof decodes the proof.json and public.json contents produced by
// snarkjs or rapidsnark.
func DecodeProof(proofJSON, pubJSON string) (*circuits.ProofWithSignals, error) {
	proof := &circuits.Proof{}
	if err := json.Unmarshal([]byte(proofJSON), proof); err != nil {
		return nil, fmt.Errorf("error decoding proof: %w", err)
	}
	var signals circuits.PublicSignals
	if err := json.Unmarshal([]byte(pubJSON), &signals); err != nil {
		return nil, fmt.Errorf("error decoding public signals: %w", err)
	}
	if err := signals.Validate(); err != nil {
		return nil, err
	}
	return &circuits.ProofWithSignals{Proof: proof, PublicSignals: signals}, nil
}
