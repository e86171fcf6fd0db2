package api

import (
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/state"
	"github.com/vocdoni/tokenzk/storage"
	"github.com/vocdoni/tokenzk/types"
)

// ProofRequest is the request to prove a token state. If Submit is true, the
// proof is submitted to the registry once generated.
type ProofRequest struct {
	State  *tokenstate.TokenState `json:"state"`
	Submit bool                   `json:"submit,omitempty"`
}

// ProofSubmission carries a proof and the public signals it was generated
// for, as produced by the prover or snarkjs.
type ProofSubmission struct {
	Proof         *circuits.Proof        `json:"proof"`
	PublicSignals circuits.PublicSignals `json:"publicSignals"`
}

// VerifyResponse is the response of the pure verification endpoint.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// SubmissionResponse is the response to a registry submission.
type SubmissionResponse struct {
	StateID *types.BigInt `json:"stateId"`
	Outcome string        `json:"outcome"`
}

// StateResponse is the verification status of a state. Record and
// InclusionProof are only set if the state is verified.
type StateResponse struct {
	StateID        *types.BigInt          `json:"stateId"`
	Verified       bool                   `json:"verified"`
	Record         *storage.VerifiedState `json:"record,omitempty"`
	InclusionProof *state.ArboProof       `json:"inclusionProof,omitempty"`
}

// StatesResponse is the list of verified state identifiers.
type StatesResponse struct {
	States []*types.BigInt `json:"states"`
}

// RegistryRootResponse is the root and size of the verified set.
type RegistryRootResponse struct {
	Root types.HexBytes `json:"root"`
	Size int            `json:"size"`
}
