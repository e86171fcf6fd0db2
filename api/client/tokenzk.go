package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/vocdoni/tokenzk/api"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/storage"
)

// Error is an error response of the API.
type Error struct {
	Message    string `json:"error"`
	Code       int    `json:"code"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d (%s)", errCodeNot200, e.Code, e.Message)
}

// Is reports whether target is the API error definition with the same
// code, so errors.Is(err, api.ErrProofRejected) holds for client errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(api.Error)
	return ok && t.Code == e.Code
}

// responseError builds the error of a response with a non 200 status.
func responseError(data []byte, status int) error {
	apiErr := &Error{HTTPStatus: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == 0 {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return apiErr
}

// call performs a request and decodes the JSON response into out, if not
// nil.
func (c *HTTPclient) call(ctx context.Context, method string, body, out any, urlPath ...string) error {
	data, status, err := c.Request(ctx, method, body, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return responseError(data, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

// NewProofJob queues the proof of a token state. If submit is true, the
// proof is submitted to the registry once generated.
func (c *HTTPclient) NewProofJob(state *tokenstate.TokenState, submit bool) (*storage.ProofJob, error) {
	job := &storage.ProofJob{}
	if err := c.call(context.Background(), HTTPPOST, &api.ProofRequest{State: state, Submit: submit}, job, api.ProofsEndpoint); err != nil {
		return nil, err
	}
	return job, nil
}

// ProofJob returns a proof job.
func (c *HTTPclient) ProofJob(id string) (*storage.ProofJob, error) {
	return c.proofJob(context.Background(), id)
}

func (c *HTTPclient) proofJob(ctx context.Context, id string) (*storage.ProofJob, error) {
	job := &storage.ProofJob{}
	if err := c.call(ctx, HTTPGET, nil, job, api.ProofsEndpoint, id); err != nil {
		return nil, err
	}
	return job, nil
}

// WaitProofJob polls a proof job until it is no longer pending or the
// context is done.
func (c *HTTPclient) WaitProofJob(ctx context.Context, id string, interval time.Duration) (*storage.ProofJob, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.proofJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status != storage.ProofJobPending {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Verify checks a proof against its public signals without changing the
// registry.
func (c *HTTPclient) Verify(proof *circuits.Proof, signals circuits.PublicSignals) (bool, error) {
	resp := &api.VerifyResponse{}
	sub := &api.ProofSubmission{Proof: proof, PublicSignals: signals}
	if err := c.call(context.Background(), HTTPPOST, sub, resp, api.VerifyEndpoint); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// SubmitState submits a proof to the registry and returns the outcome. A
// rejected proof returns an *Error with the rejection code.
func (c *HTTPclient) SubmitState(proof *circuits.Proof, signals circuits.PublicSignals) (*api.SubmissionResponse, error) {
	resp := &api.SubmissionResponse{}
	sub := &api.ProofSubmission{Proof: proof, PublicSignals: signals}
	if err := c.call(context.Background(), HTTPPOST, sub, resp, api.StatesEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// State returns the verification status of a state.
func (c *HTTPclient) State(stateID *big.Int) (*api.StateResponse, error) {
	resp := &api.StateResponse{}
	if err := c.call(context.Background(), HTTPGET, nil, resp, api.StatesEndpoint, stateID.String()); err != nil {
		return nil, err
	}
	return resp, nil
}

// States returns the identifiers of the verified states.
func (c *HTTPclient) States() ([]*big.Int, error) {
	resp := &api.StatesResponse{}
	if err := c.call(context.Background(), HTTPGET, nil, resp, api.StatesEndpoint); err != nil {
		return nil, err
	}
	ids := make([]*big.Int, len(resp.States))
	for i, id := range resp.States {
		ids[i] = id.MathBigInt()
	}
	return ids, nil
}

// RegistryRoot returns the root and size of the verified set.
func (c *HTTPclient) RegistryRoot() (*api.RegistryRootResponse, error) {
	resp := &api.RegistryRootResponse{}
	if err := c.call(context.Background(), HTTPGET, nil, resp, api.RegistryRootEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// VerifierContract returns the Solidity source of the registry verifier.
func (c *HTTPclient) VerifierContract() ([]byte, error) {
	data, status, err := c.Request(context.Background(), HTTPGET, nil, api.VerifierContractEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, responseError(data, status)
	}
	return data, nil
}
