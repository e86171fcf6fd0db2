package registry

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/state"
	"github.com/vocdoni/tokenzk/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

// acceptAll is a verifier that accepts every well formed submission.
type acceptAll struct{}

func (acceptAll) Verify(_ *circuits.Proof, signals circuits.PublicSignals) (bool, error) {
	return true, signals.Validate()
}

func newTestRegistry(t *testing.T, verifier Verifier) *Registry {
	database := metadb.NewTest(t)
	set, err := state.New(database)
	qt.Assert(t, err, qt.IsNil)
	r, err := New(verifier, storage.New(database), set)
	qt.Assert(t, err, qt.IsNil)
	return r
}

func testSignals(stateID int64) circuits.PublicSignals {
	return circuits.PublicSignals{
		big.NewInt(1),
		big.NewInt(stateID),
		big.NewInt(2000000),
		big.NewInt(12345),
		big.NewInt(1700000000),
	}
}

func testProof() *circuits.Proof {
	return &circuits.Proof{
		A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
		B: [2][2]*big.Int{{big.NewInt(3), big.NewInt(4)}, {big.NewInt(5), big.NewInt(6)}},
		C: [2]*big.Int{big.NewInt(7), big.NewInt(8)},
	}
}

func TestSubmitProof(t *testing.T) {
	c := qt.New(t)
	keys, err := tokenstate.CompileAndSetup()
	c.Assert(err, qt.IsNil)
	prover, err := tokenstate.NewProverFromKeys(keys)
	c.Assert(err, qt.IsNil)
	verifier, err := tokenstate.NewVerifier(keys.VerifyingKey)
	c.Assert(err, qt.IsNil)
	r := newTestRegistry(t, verifier)

	var events []*StateVerified
	c.Assert(r.Subscribe(func(e *StateVerified) { events = append(events, e) }), qt.IsNil)

	state := tokenstate.NewTokenState(1000000, 2000000, 500000, 12345, 1700000000, big.NewInt(123456789))
	result, err := prover.GenerateProof(context.Background(), state)
	c.Assert(err, qt.IsNil)
	stateID := result.PublicSignals.StateID()

	ok, err := r.Status(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
	emptyRoot, err := r.Root()
	c.Assert(err, qt.IsNil)

	// a tampered submission is rejected and leaves the registry unchanged
	tampered := result.PublicSignals.Clone()
	tampered[circuits.SignalCap] = big.NewInt(3000000)
	outcome, err := r.Submit(result.Proof, tampered)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, OutcomeRejected)
	ok, err = r.Status(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
	root, err := r.Root()
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(root), qt.DeepEquals, []byte(emptyRoot))
	c.Assert(events, qt.HasLen, 0)

	// the timestamp is bound to the proof, a rewritten one is rejected
	forged := result.PublicSignals.Clone()
	forged[circuits.SignalTimestamp] = big.NewInt(4102444800)
	outcome, err = r.Submit(result.Proof, forged)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, OutcomeRejected)
	ok, err = r.Status(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	// the valid submission is verified once
	outcome, err = r.Submit(result.Proof, result.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, OutcomeVerified)
	c.Assert(events, qt.HasLen, 1)
	c.Assert(events[0].StateID.Cmp(stateID), qt.Equals, 0)
	c.Assert(events[0].Outcome, qt.Equals, OutcomeVerified)

	ok, err = r.Status(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	record, err := r.VerifiedState(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(record.Signals().Equal(result.PublicSignals), qt.IsTrue)
	c.Assert(record.Signals().Timestamp().Int64(), qt.Equals, int64(1700000000))
	c.Assert(record.Proof.Equal(result.Proof), qt.IsTrue)

	root, err = r.Root()
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(root), qt.Not(qt.DeepEquals), []byte(emptyRoot))
	inclusion, err := r.InclusionProof(stateID)
	c.Assert(err, qt.IsNil)
	ok, err = inclusion.Verify()
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// a second submission of the same proof is informational
	outcome, err = r.Submit(result.Proof, result.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, OutcomeAlreadyVerified)
	c.Assert(events, qt.HasLen, 1)
	sameRoot, err := r.Root()
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(sameRoot), qt.DeepEquals, []byte(root))

	// a new proof of the same state is also already verified
	again, err := prover.GenerateProof(context.Background(), state)
	c.Assert(err, qt.IsNil)
	outcome, err = r.Submit(again.Proof, again.PublicSignals)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, OutcomeAlreadyVerified)
	c.Assert(events, qt.HasLen, 1)
}

func TestSubmitMalformed(t *testing.T) {
	c := qt.New(t)
	r := newTestRegistry(t, acceptAll{})

	_, err := r.Submit(testProof(), testSignals(1)[:4])
	c.Assert(errors.Is(err, ErrMalformedSignals), qt.IsTrue)
	c.Assert(errors.Is(err, circuits.ErrShapeMismatch), qt.IsTrue)

	outOfField := testSignals(1)
	outOfField[circuits.SignalTimestamp] = new(big.Int).Set(circuits.Curve.ScalarField())
	_, err = r.Submit(testProof(), outOfField)
	c.Assert(errors.Is(err, ErrMalformedSignals), qt.IsTrue)

	size, err := r.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, 0)
	ids, err := r.VerifiedStates()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 0)
}

func TestConcurrentSubmissions(t *testing.T) {
	c := qt.New(t)
	r := newTestRegistry(t, acceptAll{})

	var mu sync.Mutex
	events := 0
	c.Assert(r.Subscribe(func(*StateVerified) {
		mu.Lock()
		events++
		mu.Unlock()
	}), qt.IsNil)

	const submitters = 10
	outcomes := make([]Outcome, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := r.Submit(testProof(), testSignals(77))
			if err != nil {
				t.Errorf("submit: %v", err)
			}
			outcomes[i] = outcome
		}()
	}
	wg.Wait()

	verified := 0
	for _, o := range outcomes {
		switch o {
		case OutcomeVerified:
			verified++
		case OutcomeAlreadyVerified:
		default:
			c.Fatalf("unexpected outcome %q", o)
		}
	}
	c.Assert(verified, qt.Equals, 1)
	c.Assert(events, qt.Equals, 1)
}

func TestUnsubscribe(t *testing.T) {
	c := qt.New(t)
	r := newTestRegistry(t, acceptAll{})

	events := 0
	handler := func(*StateVerified) { events++ }
	c.Assert(r.Subscribe(handler), qt.IsNil)

	_, err := r.Submit(testProof(), testSignals(1))
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.Equals, 1)

	c.Assert(r.Unsubscribe(handler), qt.IsNil)
	_, err = r.Submit(testProof(), testSignals(2))
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.Equals, 1)

	// both states are in the registry
	for _, id := range []int64{1, 2} {
		ok, err := r.Status(big.NewInt(id))
		c.Assert(err, qt.IsNil)
		c.Assert(ok, qt.IsTrue)
	}
}

func TestSubmitWritesMissingRecord(t *testing.T) {
	c := qt.New(t)
	r := newTestRegistry(t, acceptAll{})

	// the set holds the state but the record write never happened
	stateID := big.NewInt(5)
	c.Assert(r.set.Add(stateID, testSignals(5)), qt.IsNil)
	root, err := r.Root()
	c.Assert(err, qt.IsNil)
	ok, err := r.Status(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	outcome, err := r.Submit(testProof(), testSignals(5))
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, OutcomeVerified)
	ok, err = r.Status(stateID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	sameRoot, err := r.Root()
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(sameRoot), qt.DeepEquals, []byte(root))
	size, err := r.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, 1)
}
