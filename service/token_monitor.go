package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/storage"
)

// TokenMonitor represents a service that watches a token contract and
// queues the proof of its state every time the state of the owner changes.
type TokenMonitor struct {
	reader   TokenStateReader
	storage  *storage.Storage
	owner    common.Address
	interval time.Duration
	submit   bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}

	lastBlock uint64
	last      *tokenstate.TokenState
}

// NewTokenMonitor creates a new TokenMonitor service. The state of the owner
// is read every interval at the latest block; if it differs from the last
// queued one, a new proof job is pushed into the storage. If submit is true,
// the proofs are submitted to the registry once generated.
func NewTokenMonitor(reader TokenStateReader, stg *storage.Storage, owner common.Address,
	interval time.Duration, submit bool,
) *TokenMonitor {
	return &TokenMonitor{
		reader:   reader,
		storage:  stg,
		owner:    owner,
		interval: interval,
		submit:   submit,
	}
}

// Start begins monitoring the token. It returns an error if the service is
// already running.
func (tm *TokenMonitor) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if tm.reader == nil || tm.storage == nil {
		return fmt.Errorf("token monitor not configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	tm.cancel = cancel
	tm.done = make(chan struct{})
	go tm.monitorToken(ctx, tm.done)
	return nil
}

// Stop halts the monitoring service.
func (tm *TokenMonitor) Stop() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cancel != nil {
		tm.cancel()
		<-tm.done
		tm.cancel = nil
	}
}

func (tm *TokenMonitor) monitorToken(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(tm.interval)
	defer ticker.Stop()
	for {
		if err := tm.poll(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("failed to poll token state", "owner", tm.owner.Hex(), "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll reads the token state at the latest block and queues its proof if
// it changed.
func (tm *TokenMonitor) poll(ctx context.Context) error {
	block, err := tm.reader.LatestBlock(ctx)
	if err != nil {
		return err
	}
	if block <= tm.lastBlock {
		return nil
	}
	state, err := tm.reader.TokenState(ctx, tm.owner, block)
	if err != nil {
		return err
	}
	tm.lastBlock = block
	if tm.last != nil && sameValues(tm.last, state) {
		return nil
	}
	job, err := tm.storage.PushProofJob(state, tm.submit)
	if err != nil {
		return fmt.Errorf("failed to push proof job: %w", err)
	}
	tm.last = state
	log.Infow("token state changed",
		"owner", tm.owner.Hex(),
		"blockNumber", block,
		"totalSupply", state.TotalSupply.String(),
		"job", job.ID)
	return nil
}

// sameValues returns true if both states have the same supply, cap and
// owner balance.
func sameValues(a, b *tokenstate.TokenState) bool {
	eq := func(x, y *big.Int) bool { return x.Cmp(y) == 0 }
	return eq(a.TotalSupply, b.TotalSupply) && eq(a.Cap, b.Cap) && eq(a.OwnerBalance, b.OwnerBalance)
}
