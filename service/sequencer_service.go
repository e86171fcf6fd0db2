package service

import (
	"context"
	"fmt"

	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/sequencer"
	"github.com/vocdoni/tokenzk/storage"
)

// SequencerService represents a service that handles background proof
// generation.
type SequencerService struct {
	sequencer *sequencer.Sequencer
}

// NewSequencer creates a new sequencer service. It proves the token states
// queued in the storage and, for the jobs that ask for it, submits the
// proofs with the submitter provided, which can be nil.
func NewSequencer(stg *storage.Storage, prover sequencer.Prover, submitter sequencer.Submitter) (*SequencerService, error) {
	s, err := sequencer.New(stg, prover, submitter)
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}
	return &SequencerService{
		sequencer: s,
	}, nil
}

// Sequencer returns the underlying sequencer.
func (ss *SequencerService) Sequencer() *sequencer.Sequencer {
	return ss.sequencer
}

// Start begins the proof generation service. It returns an error if the
// service is already running.
func (ss *SequencerService) Start(ctx context.Context) error {
	return ss.sequencer.Start(ctx)
}

// Stop halts the proof generation service.
func (ss *SequencerService) Stop() {
	if err := ss.sequencer.Stop(); err != nil {
		log.Warnw("sequencer service stopped", "error", err)
	}
}
