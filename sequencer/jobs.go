package sequencer

import (
	"errors"
	"time"

	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/storage"
)

// errNoSubmitter is the error of jobs that ask to be submitted when the
// sequencer has no registry.
var errNoSubmitter = errors.New("no registry to submit the proof to")

// run processes proof jobs until the sequencer context is canceled.
func (s *Sequencer) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		job, err := s.stg.NextProofJob()
		if err != nil {
			if !errors.Is(err, storage.ErrNoMoreElements) {
				log.Errorw(err, "failed to get next proof job")
			}
			// wait for the next tick or context cancellation
			select {
			case <-ticker.C:
			case <-s.ctx.Done():
				return
			}
			continue
		}
		s.processJob(job)
	}
}

// processJob generates the proof of a job and records the result. A job
// interrupted by the sequencer shutdown is released so it is processed again
// on the next start.
func (s *Sequencer) processJob(job *storage.ProofJob) {
	log.Debugw("processing proof job", "id", job.ID, "state", job.State.String())
	startTime := time.Now()

	result, err := s.prover.GenerateProof(s.ctx, job.State)
	if err != nil {
		if s.ctx.Err() != nil {
			if err := s.stg.ReleaseProofJob(job.ID); err != nil {
				log.Warnw("failed to release proof job", "id", job.ID, "error", err.Error())
			}
			return
		}
		log.Warnw("proof job failed",
			"id", job.ID,
			"check", circuits.UnsatisfiedCheck(err),
			"error", err.Error())
		if err := s.stg.MarkProofJobFailed(job.ID, err); err != nil {
			log.Warnw("failed to mark proof job as failed", "id", job.ID, "error", err.Error())
		}
		return
	}

	outcome := ""
	if job.Submit {
		if s.submitter == nil {
			if err := s.stg.MarkProofJobFailed(job.ID, errNoSubmitter); err != nil {
				log.Warnw("failed to mark proof job as failed", "id", job.ID, "error", err.Error())
			}
			return
		}
		o, err := s.submitter.Submit(result.Proof, result.PublicSignals)
		if err != nil {
			log.Warnw("proof submission failed", "id", job.ID, "error", err.Error())
			if err := s.stg.MarkProofJobFailed(job.ID, err); err != nil {
				log.Warnw("failed to mark proof job as failed", "id", job.ID, "error", err.Error())
			}
			return
		}
		outcome = string(o)
	}

	if err := s.stg.MarkProofJobDone(job.ID, result, outcome); err != nil {
		log.Warnw("failed to mark proof job as done", "id", job.ID, "error", err.Error())
		return
	}
	log.Infow("proof job done",
		"id", job.ID,
		"stateId", result.PublicSignals.StateID().String(),
		"outcome", outcome,
		"took", time.Since(startTime).String())
}
