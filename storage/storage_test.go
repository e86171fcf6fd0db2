package storage

import (
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"go.vocdoni.io/dvote/db/metadb"
)

func testProof() *circuits.Proof {
	return &circuits.Proof{
		A: [2]*big.Int{big.NewInt(1), big.NewInt(2)},
		B: [2][2]*big.Int{{big.NewInt(3), big.NewInt(4)}, {big.NewInt(5), big.NewInt(6)}},
		C: [2]*big.Int{big.NewInt(7), big.NewInt(8)},
	}
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

func testState() *tokenstate.TokenState {
	return tokenstate.NewTokenState(1000000, 2000000, 500000, 12345, 1700000000, big.NewInt(123456789))
}

func TestVerifiedStates(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	id := big.NewInt(42)
	ok, err := stg.HasVerifiedState(id)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
	_, err = stg.VerifiedState(id)
	c.Assert(err, qt.Equals, ErrNotFound)

	record := NewVerifiedState(testProof(), testSignals(42))
	c.Assert(stg.SetVerifiedState(record), qt.IsNil)

	ok, err = stg.HasVerifiedState(id)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	stored, err := stg.VerifiedState(id)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.StateID.MathBigInt().Cmp(id), qt.Equals, 0)
	c.Assert(stored.Signals().Equal(testSignals(42)), qt.IsTrue)
	c.Assert(stored.Proof.Equal(testProof()), qt.IsTrue)
	c.Assert(stored.VerifiedAt, qt.Equals, record.VerifiedAt)

	// records are immutable
	other := NewVerifiedState(testProof(), testSignals(42))
	other.VerifiedAt = record.VerifiedAt + 100
	c.Assert(stg.SetVerifiedState(other), qt.Equals, ErrKeyAlreadyExists)
	stored, err = stg.VerifiedState(id)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.VerifiedAt, qt.Equals, record.VerifiedAt)

	c.Assert(stg.SetVerifiedState(NewVerifiedState(testProof(), testSignals(43))), qt.IsNil)
	ids, err := stg.ListVerifiedStates()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 2)
	c.Assert(ids[0].Int64(), qt.Equals, int64(42))
	c.Assert(ids[1].Int64(), qt.Equals, int64(43))
	count, err := stg.CountVerifiedStates()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 2)
}

func TestProofQueue(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.NextProofJob()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	first, err := stg.PushProofJob(testState(), false)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Status, qt.Equals, ProofJobPending)
	second, err := stg.PushProofJob(testState(), true)
	c.Assert(err, qt.IsNil)

	pending, err := stg.CountPendingProofJobs()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.Equals, 2)

	// jobs come out in arrival order and reserved jobs are skipped
	job, err := stg.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.ID, qt.Equals, first.ID)
	c.Assert(job.State.Cap.Cmp(testState().Cap), qt.Equals, 0)
	job2, err := stg.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job2.ID, qt.Equals, second.ID)
	c.Assert(job2.Submit, qt.IsTrue)
	_, err = stg.NextProofJob()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	// done
	result := &circuits.ProofWithSignals{Proof: testProof(), PublicSignals: testSignals(7)}
	c.Assert(stg.MarkProofJobDone(job.ID, result, ""), qt.IsNil)
	done, err := stg.ProofJob(job.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(done.Status, qt.Equals, ProofJobDone)
	c.Assert(done.Result().Proof.Equal(testProof()), qt.IsTrue)
	c.Assert(done.Result().PublicSignals.Equal(testSignals(7)), qt.IsTrue)

	// failed with a named check
	jobErr := &circuits.ConstraintUnsatisfied{Check: tokenstate.CheckSupplyWithinCap}
	c.Assert(stg.MarkProofJobFailed(job2.ID, jobErr), qt.IsNil)
	failed, err := stg.ProofJob(job2.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(failed.Status, qt.Equals, ProofJobFailed)
	c.Assert(failed.FailedCheck, qt.Equals, tokenstate.CheckSupplyWithinCap)
	c.Assert(failed.Result(), qt.IsNil)

	pending, err = stg.CountPendingProofJobs()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.Equals, 0)

	_, err = stg.ProofJob("not-a-uuid")
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)
}

func TestReleaseProofJob(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	stg := New(database)

	pushed, err := stg.PushProofJob(testState(), false)
	c.Assert(err, qt.IsNil)
	job, err := stg.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.ID, qt.Equals, pushed.ID)

	c.Assert(stg.ReleaseProofJob(job.ID), qt.IsNil)
	job, err = stg.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.ID, qt.Equals, pushed.ID)

	// a new storage over the same database releases the reservations left
	// by the previous one
	stg = New(database)
	job, err = stg.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.ID, qt.Equals, pushed.ID)
}
