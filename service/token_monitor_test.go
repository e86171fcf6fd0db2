package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tokenzk/storage"
	"github.com/vocdoni/tokenzk/token"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestTokenMonitor(t *testing.T) {
	c := qt.New(t)
	store := storage.New(metadb.NewTest(t))
	owner := common.HexToAddress("0x00000000000000000000000000000000075bcd15")
	other := common.HexToAddress("0x1234567890123456789012345678901234567890")

	ledger, err := token.New(big.NewInt(2000000))
	c.Assert(err, qt.IsNil)
	_, err = ledger.Mint(owner, big.NewInt(1000000))
	c.Assert(err, qt.IsNil)

	monitor := NewTokenMonitor(ledger, store, owner, 10*time.Millisecond, false)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c.Assert(monitor.Start(ctx), qt.IsNil)
	defer monitor.Stop()
	c.Assert(monitor.Start(ctx), qt.ErrorMatches, "service already running")

	waitPending := func(n int) {
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			count, err := store.CountPendingProofJobs()
			c.Assert(err, qt.IsNil)
			if count == n {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		c.Fatalf("expected %d pending proof jobs", n)
	}

	// the first state is always queued
	waitPending(1)

	// a failed mint does not mine a block
	_, err = ledger.Mint(owner, big.NewInt(1500000))
	c.Assert(err, qt.IsNotNil)
	// a mint to another account changes the supply
	block, err := ledger.Mint(other, big.NewInt(500000))
	c.Assert(err, qt.IsNil)
	waitPending(2)

	// the jobs are processed in order, the last one is the new state
	job, err := store.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.State.BlockNumber.Uint64(), qt.Equals, uint64(1))
	c.Assert(job.State.TotalSupply.Uint64(), qt.Equals, uint64(1000000))
	job, err = store.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.State.BlockNumber.Uint64(), qt.Equals, block)
	c.Assert(job.State.TotalSupply.Uint64(), qt.Equals, uint64(1500000))
	c.Assert(job.State.OwnerBalance.Uint64(), qt.Equals, uint64(1000000))
	c.Assert(job.State.Owner.Uint64(), qt.Equals, uint64(123456789))
	c.Assert(job.Submit, qt.IsFalse)

	monitor.Stop()
	c.Assert(monitor.Start(ctx), qt.IsNil)
}

func TestTokenMonitorSkipsUnchangedStates(t *testing.T) {
	c := qt.New(t)
	store := storage.New(metadb.NewTest(t))
	owner := common.HexToAddress("0x00000000000000000000000000000000075bcd15")
	ledger, err := token.New(big.NewInt(2000000))
	c.Assert(err, qt.IsNil)
	_, err = ledger.Mint(owner, big.NewInt(1000000))
	c.Assert(err, qt.IsNil)

	monitor := NewTokenMonitor(ledger, store, owner, time.Hour, true)
	c.Assert(monitor.poll(context.Background()), qt.IsNil)
	// a transfer to itself mines a block without changing the values
	_, err = ledger.Transfer(owner, owner, big.NewInt(1))
	c.Assert(err, qt.IsNil)
	c.Assert(monitor.poll(context.Background()), qt.IsNil)

	count, err := store.CountPendingProofJobs()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 1)
	job, err := store.NextProofJob()
	c.Assert(err, qt.IsNil)
	c.Assert(job.Submit, qt.IsTrue)
}
