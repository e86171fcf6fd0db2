package api_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/api"
	"github.com/vocdoni/tokenzk/api/client"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/registry"
	"github.com/vocdoni/tokenzk/sequencer"
	"github.com/vocdoni/tokenzk/state"
	"github.com/vocdoni/tokenzk/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

var testOwner = big.NewInt(123456789)

// testServer starts the whole service stack on an httptest server and
// returns a client connected to it.
func testServer(t *testing.T) (*client.HTTPclient, string) {
	c := qt.New(t)
	keys, err := tokenstate.CompileAndSetup()
	c.Assert(err, qt.IsNil)
	prover, err := tokenstate.NewProverFromKeys(keys)
	c.Assert(err, qt.IsNil)
	verifier, err := tokenstate.NewVerifier(keys.VerifyingKey)
	c.Assert(err, qt.IsNil)

	database := metadb.NewTest(t)
	stg := storage.New(database)
	set, err := state.New(database)
	c.Assert(err, qt.IsNil)
	reg, err := registry.New(verifier, stg, set)
	c.Assert(err, qt.IsNil)

	seq, err := sequencer.New(stg, prover, reg)
	c.Assert(err, qt.IsNil)
	seq.TickInterval = 10 * time.Millisecond
	c.Assert(seq.Start(context.Background()), qt.IsNil)
	t.Cleanup(func() { _ = seq.Stop() })

	a, err := api.New(&api.APIConfig{Storage: stg, Registry: reg, Verifier: verifier})
	c.Assert(err, qt.IsNil)
	server := httptest.NewServer(a.Router())
	t.Cleanup(server.Close)

	cli, err := client.New(server.URL)
	c.Assert(err, qt.IsNil)
	return cli, server.URL
}

func waitJob(c *qt.C, cli *client.HTTPclient, id string) *storage.ProofJob {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	job, err := cli.WaitProofJob(ctx, id, 50*time.Millisecond)
	c.Assert(err, qt.IsNil)
	return job
}

func apiErrorCode(c *qt.C, err error) int {
	var apiErr *client.Error
	c.Assert(errors.As(err, &apiErr), qt.IsTrue, qt.Commentf("error: %v", err))
	return apiErr.Code
}

func TestAPI(t *testing.T) {
	c := qt.New(t)
	cli, url := testServer(t)

	// prove a valid state without submitting it
	state := tokenstate.NewTokenState(1000000, 2000000, 500000, 12345, 1700000000, testOwner)
	job, err := cli.NewProofJob(state, false)
	c.Assert(err, qt.IsNil)
	c.Assert(job.Status, qt.Equals, storage.ProofJobPending)
	job = waitJob(c, cli, job.ID)
	c.Assert(job.Status, qt.Equals, storage.ProofJobDone)
	result := job.Result()
	c.Assert(result, qt.IsNotNil)
	stateID := result.PublicSignals.StateID()

	// pure verification
	valid, err := cli.Verify(result.Proof, result.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsTrue)
	tampered := result.PublicSignals.Clone()
	tampered[circuits.SignalBlockNumber] = big.NewInt(12346)
	valid, err = cli.Verify(result.Proof, tampered)
	c.Assert(err, qt.IsNil)
	c.Assert(valid, qt.IsFalse)

	// verification does not change the registry
	status, err := cli.State(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(status.Verified, qt.IsFalse)

	// rejected and malformed submissions
	_, err = cli.SubmitState(result.Proof, tampered)
	c.Assert(apiErrorCode(c, err), qt.Equals, api.ErrProofRejected.Code)
	c.Assert(errors.Is(err, api.ErrProofRejected), qt.IsTrue)
	_, err = cli.SubmitState(result.Proof, result.PublicSignals[:4])
	c.Assert(apiErrorCode(c, err), qt.Equals, api.ErrMalformedSignals.Code)
	root, err := cli.RegistryRoot()
	c.Assert(err, qt.IsNil)
	c.Assert(root.Size, qt.Equals, 0)

	// the valid submission is verified once
	sub, err := cli.SubmitState(result.Proof, result.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(sub.Outcome, qt.Equals, string(registry.OutcomeVerified))
	c.Assert(sub.StateID.MathBigInt().Cmp(stateID), qt.Equals, 0)
	sub, err = cli.SubmitState(result.Proof, result.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(sub.Outcome, qt.Equals, string(registry.OutcomeAlreadyVerified))

	status, err = cli.State(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(status.Verified, qt.IsTrue)
	c.Assert(status.Record.Signals().Equal(result.PublicSignals), qt.IsTrue)
	c.Assert(status.InclusionProof, qt.IsNotNil)
	ok, err := status.InclusionProof.Verify()
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ids, err := cli.States()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 1)
	c.Assert(ids[0].Cmp(stateID), qt.Equals, 0)
	root, err = cli.RegistryRoot()
	c.Assert(err, qt.IsNil)
	c.Assert(root.Size, qt.Equals, 1)
	c.Assert([]byte(root.Root), qt.DeepEquals, []byte(status.InclusionProof.Root))

	// the submission counter is exported
	resp, err := http.Get(url + api.MetricsEndpoint)
	c.Assert(err, qt.IsNil)
	metrics, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Body.Close(), qt.IsNil)
	c.Assert(string(metrics), qt.Contains, `tokenzk_registry_submissions_total{outcome="verified"}`)
}

func TestAPIProveAndSubmit(t *testing.T) {
	c := qt.New(t)
	cli, _ := testServer(t)

	state := tokenstate.NewTokenState(1, 10, 1, 7, 1700000000, testOwner)
	job, err := cli.NewProofJob(state, true)
	c.Assert(err, qt.IsNil)
	job = waitJob(c, cli, job.ID)
	c.Assert(job.Status, qt.Equals, storage.ProofJobDone)
	c.Assert(job.Outcome, qt.Equals, string(registry.OutcomeVerified))

	status, err := cli.State(job.Result().PublicSignals.StateID())
	c.Assert(err, qt.IsNil)
	c.Assert(status.Verified, qt.IsTrue)

	// an invalid state fails with the name of the violated check
	invalid := tokenstate.NewTokenState(2500000, 2000000, 500000, 12345, 1700000000, testOwner)
	job, err = cli.NewProofJob(invalid, true)
	c.Assert(err, qt.IsNil)
	job = waitJob(c, cli, job.ID)
	c.Assert(job.Status, qt.Equals, storage.ProofJobFailed)
	c.Assert(job.FailedCheck, qt.Equals, tokenstate.CheckSupplyWithinCap)
}

func TestAPIErrors(t *testing.T) {
	c := qt.New(t)
	cli, url := testServer(t)

	_, err := cli.ProofJob("0192f5c6-7d1c-7000-8000-000000000000")
	c.Assert(apiErrorCode(c, err), qt.Equals, api.ErrProofJobNotFound.Code)
	_, err = cli.ProofJob("not-a-job")
	c.Assert(apiErrorCode(c, err), qt.Equals, api.ErrProofJobNotFound.Code)

	status, err := cli.State(big.NewInt(42))
	c.Assert(err, qt.IsNil)
	c.Assert(status.Verified, qt.IsFalse)
	c.Assert(status.Record, qt.IsNil)

	for _, tc := range []struct {
		name, method, path, body string
		code                     int
	}{
		{"malformed state id", http.MethodGet, "/states/notanumber", "", api.ErrMalformedStateID.Code},
		{"unknown route", http.MethodGet, "/tokens", "", api.ErrResourceNotFound.Code},
		{"malformed body", http.MethodPost, api.StatesEndpoint, "{", api.ErrMalformedBody.Code},
		{"missing proof", http.MethodPost, api.VerifyEndpoint, `{"publicSignals":["1","2","3","4","5"]}`, api.ErrMalformedProof.Code},
		{"signal out of field", http.MethodPost, api.VerifyEndpoint,
			`{"publicSignals":["21888242871839275222246405745257275088548364400416034343698204186575808495617"]}`,
			api.ErrMalformedSignals.Code},
		{"missing token state", http.MethodPost, api.ProofsEndpoint, `{"submit":true}`, api.ErrMissingTokenState.Code},
		{"token state out of field", http.MethodPost, api.ProofsEndpoint,
			`{"state":{"totalSupply":"1","cap":"1","ownerBalance":"1","blockNumber":"1","timestamp":"1",
			"owner":"21888242871839275222246405745257275088548364400416034343698204186575808495617"}}`,
			api.ErrMalformedBody.Code},
	} {
		c.Run(tc.name, func(c *qt.C) {
			req, err := http.NewRequest(tc.method, url+tc.path, strings.NewReader(tc.body))
			c.Assert(err, qt.IsNil)
			resp, err := http.DefaultClient.Do(req)
			c.Assert(err, qt.IsNil)
			data, err := io.ReadAll(resp.Body)
			c.Assert(err, qt.IsNil)
			c.Assert(resp.Body.Close(), qt.IsNil)
			c.Assert(resp.StatusCode, qt.Not(qt.Equals), http.StatusOK)
			c.Assert(string(data), qt.Contains, `"code":`+strconv.Itoa(tc.code))
		})
	}

	contract, err := cli.VerifierContract()
	c.Assert(err, qt.IsNil)
	c.Assert(string(contract), qt.Contains, "pragma solidity")
}
