package storage

import (
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/types"
)

// VerifiedState is the registry record of a token state whose proof was
// accepted. It is written once and never updated.
type VerifiedState struct {
	StateID       *types.BigInt   `json:"stateId" cbor:"0,keyasint,omitempty"`
	PublicSignals []*types.BigInt `json:"publicSignals" cbor:"1,keyasint,omitempty"`
	Proof         *circuits.Proof `json:"proof" cbor:"2,keyasint,omitempty"`
	VerifiedAt    int64           `json:"verifiedAt" cbor:"3,keyasint,omitempty"`
}

// Signals returns the public signals of the record.
func (vs *VerifiedState) Signals() circuits.PublicSignals {
	return circuits.PublicSignals(types.MathBigIntSlice(vs.PublicSignals))
}

// ProofJobStatus is the processing status of a proof job.
type ProofJobStatus string

const (
	ProofJobPending ProofJobStatus = "pending"
	ProofJobDone    ProofJobStatus = "done"
	ProofJobFailed  ProofJobStatus = "failed"
)

// ProofJob is a request to prove a token state, queued until the sequencer
// processes it. Once done, it carries the proof and its public signals; if
// it failed, the error and the name of the failing check, if any.
type ProofJob struct {
	ID            string                 `json:"id" cbor:"0,keyasint,omitempty"`
	State         *tokenstate.TokenState `json:"state" cbor:"1,keyasint,omitempty"`
	Status        ProofJobStatus         `json:"status" cbor:"2,keyasint,omitempty"`
	Submit        bool                   `json:"submit" cbor:"3,keyasint,omitempty"`
	Proof         *circuits.Proof        `json:"proof,omitempty" cbor:"4,keyasint,omitempty"`
	PublicSignals []*types.BigInt        `json:"publicSignals,omitempty" cbor:"5,keyasint,omitempty"`
	Error         string                 `json:"error,omitempty" cbor:"6,keyasint,omitempty"`
	FailedCheck   string                 `json:"failedCheck,omitempty" cbor:"7,keyasint,omitempty"`
	Outcome       string                 `json:"outcome,omitempty" cbor:"8,keyasint,omitempty"`
	CreatedAt     int64                  `json:"createdAt" cbor:"9,keyasint,omitempty"`
	UpdatedAt     int64                  `json:"updatedAt" cbor:"10,keyasint,omitempty"`
}

// Result returns the proof and signals of a done job, or nil.
func (j *ProofJob) Result() *circuits.ProofWithSignals {
	if j.Status != ProofJobDone || j.Proof == nil {
		return nil
	}
	return &circuits.ProofWithSignals{
		Proof:         j.Proof,
		PublicSignals: circuits.PublicSignals(types.MathBigIntSlice(j.PublicSignals)),
	}
}
