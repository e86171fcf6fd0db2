package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// PushProofJob creates a new proof job for the state provided, stores it and
// pushes it into the pending queue. Job identifiers are time ordered UUIDs,
// so the queue is processed in arrival order. If submit is true, the
// sequencer submits the proof to the registry once it is generated.
func (s *Storage) PushProofJob(state *tokenstate.TokenState, submit bool) (*ProofJob, error) {
	if state == nil {
		return nil, fmt.Errorf("nil token state")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	now := time.Now().Unix()
	job := &ProofJob{
		ID:        id.String(),
		State:     state,
		Status:    ProofJobPending,
		Submit:    submit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	val, err := encodeArtifact(job)
	if err != nil {
		return nil, fmt.Errorf("encode proof job: %w", err)
	}
	// the job record and its queue entry are written in the same transaction
	wTx := s.db.WriteTx()
	jobTx := prefixeddb.NewPrefixedWriteTx(wTx, proofJobPrefix)
	if err := jobTx.Set(id[:], val); err != nil {
		wTx.Discard()
		return nil, err
	}
	queueTx := prefixeddb.NewPrefixedWriteTx(wTx, proofQueuePrefix)
	if err := queueTx.Set(id[:], []byte{1}); err != nil {
		wTx.Discard()
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

// ProofJob returns the proof job with the identifier provided, or
// ErrNotFound.
func (s *Storage) ProofJob(id string) (*ProofJob, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	job := &ProofJob{}
	if err := s.getArtifact(proofJobPrefix, uid[:], job); err != nil {
		return nil, err
	}
	return job, nil
}

// NextProofJob returns the next non-reserved pending job and creates a
// reservation for it. If no jobs are available, returns ErrNoMoreElements.
func (s *Storage) NextProofJob() (*ProofJob, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, proofQueuePrefix)
	var chosenKey []byte
	if err := pr.Iterate(nil, func(k, _ []byte) bool {
		// check if reserved
		if s.isReserved(proofReservationPrefix, k) {
			return true
		}
		chosenKey = make([]byte, len(k))
		copy(chosenKey, k)
		return false
	}); err != nil {
		return nil, fmt.Errorf("iterate proof jobs: %w", err)
	}
	if chosenKey == nil {
		return nil, ErrNoMoreElements
	}

	job := &ProofJob{}
	if err := s.getArtifact(proofJobPrefix, chosenKey, job); err != nil {
		return nil, fmt.Errorf("read proof job: %w", err)
	}

	// set reservation
	if err := s.setReservation(proofReservationPrefix, chosenKey); err != nil {
		return nil, ErrNoMoreElements
	}
	return job, nil
}

// MarkProofJobDone is called after the proof of the job is generated. It
// removes the job from the queue and stores the proof in its record. The
// outcome is the registry outcome, if the proof was submitted.
func (s *Storage) MarkProofJobDone(id string, result *circuits.ProofWithSignals, outcome string) error {
	if result == nil {
		return fmt.Errorf("nil proof")
	}
	return s.finishProofJob(id, func(job *ProofJob) {
		job.Status = ProofJobDone
		job.Proof = result.Proof
		job.PublicSignals = types.BigIntSlice(result.PublicSignals)
		job.Outcome = outcome
	})
}

// MarkProofJobFailed is called when the proof of the job can not be
// generated. It removes the job from the queue and stores the error and the
// name of the failing check, if any, in its record.
func (s *Storage) MarkProofJobFailed(id string, jobErr error) error {
	return s.finishProofJob(id, func(job *ProofJob) {
		job.Status = ProofJobFailed
		job.Error = jobErr.Error()
		job.FailedCheck = circuits.UnsatisfiedCheck(jobErr)
	})
}

// ReleaseProofJob removes the reservation of a job so it can be processed
// again, used when the processing is interrupted.
func (s *Storage) ReleaseProofJob(id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.deleteArtifact(proofReservationPrefix, uid[:])
}

// CountPendingProofJobs returns the number of jobs in the queue, reserved or
// not.
func (s *Storage) CountPendingProofJobs() (int, error) {
	keys, err := s.listArtifacts(proofQueuePrefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *Storage) finishProofJob(id string, update func(*ProofJob)) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	job := &ProofJob{}
	if err := s.getArtifact(proofJobPrefix, uid[:], job); err != nil {
		return err
	}
	// remove reservation
	if err := s.deleteArtifact(proofReservationPrefix, uid[:]); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete reservation: %w", err)
	}
	// remove from pending queue
	if err := s.deleteArtifact(proofQueuePrefix, uid[:]); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete pending job: %w", err)
	}
	update(job)
	job.UpdatedAt = time.Now().Unix()
	if err := s.setArtifact(proofJobPrefix, uid[:], job); err != nil {
		return fmt.Errorf("store proof job: %w", err)
	}
	log.Debugw("proof job finished", "id", id, "status", string(job.Status))
	return nil
}
