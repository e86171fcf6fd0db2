// Package sequencer provides the worker that processes the queue of proof
// jobs: it proves each queued token state and, when the job asks for it,
// submits the proof to the registry.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/registry"
	"github.com/vocdoni/tokenzk/storage"
)

// DefaultTickInterval is the time the sequencer waits before polling the
// queue again when it is empty.
const DefaultTickInterval = time.Second

// Prover generates the proof of a token state, see tokenstate.Prover and
// circom.Prover.
type Prover interface {
	GenerateProof(ctx context.Context, s *tokenstate.TokenState) (*circuits.ProofWithSignals, error)
}

// Submitter submits a proof to the registry, see registry.Registry.
type Submitter interface {
	Submit(proof *circuits.Proof, signals circuits.PublicSignals) (registry.Outcome, error)
}

// Sequencer is a worker that takes pending proof jobs from the storage and
// generates their proofs.
type Sequencer struct {
	stg       *storage.Storage
	prover    Prover
	submitter Submitter
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// TickInterval is the time to wait when the queue is empty.
	TickInterval time.Duration
}

// New creates a new Sequencer. The submitter is optional: without it, jobs
// that ask to be submitted fail after their proof is generated.
func New(stg *storage.Storage, prover Prover, submitter Submitter) (*Sequencer, error) {
	if stg == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if prover == nil {
		return nil, fmt.Errorf("prover cannot be nil")
	}
	return &Sequencer{
		stg:          stg,
		prover:       prover,
		submitter:    submitter,
		TickInterval: DefaultTickInterval,
	}, nil
}

// Start begins the job processor in a background goroutine, which runs until
// the context provided is canceled or Stop is called.
func (s *Sequencer) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if s.cancel != nil {
		return fmt.Errorf("sequencer already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
	log.Infow("sequencer started", "tickInterval", s.TickInterval.String())
	return nil
}

// Stop shuts down the sequencer and waits for the job in progress, if any,
// to be released. It's safe to call Stop multiple times.
func (s *Sequencer) Stop() error {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		log.Infow("sequencer stopped")
	}
	return nil
}
