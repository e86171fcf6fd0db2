package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/storage"
)

// newProofJob queues the proof of a token state. The proof is generated by
// the sequencer; the job returned can be polled until it is done or failed.
// POST /proofs
func (a *API) newProofJob(w http.ResponseWriter, r *http.Request) {
	req := &ProofRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.State == nil {
		ErrMissingTokenState.Write(w)
		return
	}
	job, err := a.storage.PushProofJob(req.State, req.Submit)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not push proof job: %v", err).Write(w)
		return
	}
	log.Infow("new proof job", "id", job.ID, "blockNumber", req.State.BlockNumber.String(), "submit", req.Submit)
	httpWriteJSON(w, job)
}

// proofJob returns a proof job, with its proof once it is done.
// GET /proofs/{proofId}
func (a *API) proofJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.storage.ProofJob(chi.URLParam(r, ProofURLParam))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrProofJobNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, job)
}
