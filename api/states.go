package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/registry"
	"github.com/vocdoni/tokenzk/storage"
	"github.com/vocdoni/tokenzk/types"
)

// decodeSubmission decodes a proof and its public signals from the request
// body. Signals that are not field elements are reported as malformed
// signals, anything else that does not decode as a malformed body.
func decodeSubmission(body io.Reader) (*ProofSubmission, *Error) {
	sub := &ProofSubmission{}
	if err := json.NewDecoder(body).Decode(sub); err != nil {
		if errors.Is(err, circuits.ErrShapeMismatch) {
			apiErr := ErrMalformedSignals.WithErr(err)
			return nil, &apiErr
		}
		apiErr := ErrMalformedBody.Withf("could not decode request body: %v", err)
		return nil, &apiErr
	}
	if sub.Proof == nil {
		apiErr := ErrMalformedProof.With("missing proof")
		return nil, &apiErr
	}
	if err := sub.PublicSignals.Validate(); err != nil {
		apiErr := ErrMalformedSignals.WithErr(err)
		return nil, &apiErr
	}
	return sub, nil
}

// verify checks a proof against its public signals without changing the
// registry.
// POST /verify
func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	sub, apiErr := decodeSubmission(r.Body)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	valid, err := a.verifier.Verify(sub.Proof, sub.PublicSignals)
	if err != nil {
		ErrMalformedSignals.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &VerifyResponse{Valid: valid})
}

// submitState submits a proof to the registry. Proofs that do not verify are
// rejected with ErrProofRejected; a state that was already verified is not
// an error.
// POST /states
func (a *API) submitState(w http.ResponseWriter, r *http.Request) {
	sub, apiErr := decodeSubmission(r.Body)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	outcome, err := a.registry.Submit(sub.Proof, sub.PublicSignals)
	if err != nil {
		if errors.Is(err, registry.ErrMalformedSignals) {
			ErrMalformedSignals.WithErr(err).Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not submit state: %v", err).Write(w)
		return
	}
	if outcome == registry.OutcomeRejected {
		ErrProofRejected.Withf("state %s", sub.PublicSignals.StateID().String()).Write(w)
		return
	}
	httpWriteJSON(w, &SubmissionResponse{
		StateID: (*types.BigInt)(sub.PublicSignals.StateID()),
		Outcome: string(outcome),
	})
}

// state returns the verification status of a state, with its record and
// its inclusion proof in the verified set if it is verified.
// GET /states/{stateId}
func (a *API) state(w http.ResponseWriter, r *http.Request) {
	stateID, err := stateIDFromURL(r)
	if err != nil {
		ErrMalformedStateID.WithErr(err).Write(w)
		return
	}
	resp := &StateResponse{StateID: (*types.BigInt)(stateID)}
	record, err := a.registry.VerifiedState(stateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpWriteJSON(w, resp)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	resp.Verified = true
	resp.Record = record
	if resp.InclusionProof, err = a.registry.InclusionProof(stateID); err != nil {
		ErrGenericInternalServerError.Withf("could not generate inclusion proof: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, resp)
}

// states returns the identifiers of every verified state.
// GET /states
func (a *API) states(w http.ResponseWriter, r *http.Request) {
	ids, err := a.registry.VerifiedStates()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &StatesResponse{States: types.BigIntSlice(ids)})
}

// registryRoot returns the root of the verified set.
// GET /registry/root
func (a *API) registryRoot(w http.ResponseWriter, r *http.Request) {
	root, err := a.registry.Root()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	size, err := a.registry.Size()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &RegistryRootResponse{Root: root, Size: size})
}

// verifierContract returns the Solidity verifier of the registry verifying
// key.
// GET /verifier.sol
func (a *API) verifierContract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := a.verifier.VerifyingKey().ExportSolidity(w); err != nil {
		ErrGenericInternalServerError.Withf("could not export verifier: %v", err).Write(w)
	}
}
