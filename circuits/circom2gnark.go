package circuits

import (
	"fmt"

	"github.com/vocdoni/circom2gnark/parser"
)

// Circom2GnarkProof function is a wrapper to convert a circom proof to a gnark
// proof, it receives the circom proof and the public signals as strings, as
// snarkjs returns them. Then, it parses the inputs to the gnark format. It
// returns a parser.CircomProof and a list of public signals or an error.
func Circom2GnarkProof(circomProof, pubSignals string) (*parser.CircomProof, []string, error) {
	// transform to gnark format
	proofData, err := parser.UnmarshalCircomProofJSON([]byte(circomProof))
	if err != nil {
		return nil, nil, err
	}
	pubSignalsData, err := parser.UnmarshalCircomPublicSignalsJSON([]byte(pubSignals))
	if err != nil {
		return nil, nil, err
	}
	return proofData, pubSignalsData, nil
}

// VerifyCircomProof verifies a snarkjs proof of the token state circom
// circuit with its snarkjs verification key. As with the gnark verifier,
// a well formed proof that does not verify returns false without error;
// errors are reserved for inputs that cannot be decoded or that do not have
// the expected number of public signals.
func VerifyCircomProof(vkey []byte, circomProof, pubSignals string) (bool, error) {
	proof, signals, err := Circom2GnarkProof(circomProof, pubSignals)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if _, err := ParsePublicSignals(signals); err != nil {
		return false, err
	}
	if len(signals) != NumPublicSignals {
		return false, fmt.Errorf("%w: expected %d signals, got %d", ErrShapeMismatch, NumPublicSignals, len(signals))
	}
	return verifyCircom(vkey, proof, signals)
}

// verifyCircom checks a decoded snarkjs proof against the verification key,
// whatever the number of public signals the key declares.
func verifyCircom(vkey []byte, proof *parser.CircomProof, signals []string) (bool, error) {
	vk, err := parser.UnmarshalCircomVerificationKeyJSON(vkey)
	if err != nil {
		return false, fmt.Errorf("invalid verification key: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(proof, vk, signals)
	if err != nil {
		// points that do not decode are a cryptographic mismatch
		return false, nil
	}
	ok, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		return false, nil
	}
	return ok, nil
}
