package storage

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// NewVerifiedState returns the record of a state verified now.
func NewVerifiedState(proof *circuits.Proof, signals circuits.PublicSignals) *VerifiedState {
	return &VerifiedState{
		StateID:       (*types.BigInt)(signals.StateID()),
		PublicSignals: types.BigIntSlice(signals.Clone()),
		Proof:         proof.Clone(),
		VerifiedAt:    time.Now().Unix(),
	}
}

// SetVerifiedState stores the record of a verified state. Records are
// immutable: it returns ErrKeyAlreadyExists if there is already a record
// for the same state identifier, and leaves it untouched.
func (s *Storage) SetVerifiedState(vs *VerifiedState) error {
	if vs == nil || vs.StateID == nil {
		return fmt.Errorf("nil verified state")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	key := stateKey(vs.StateID.MathBigInt())
	err := s.getArtifact(verifiedStatePrefix, key, &VerifiedState{})
	switch {
	case err == nil:
		return ErrKeyAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return s.setArtifact(verifiedStatePrefix, key, vs)
}

// VerifiedState returns the record of the state identifier provided, or
// ErrNotFound.
func (s *Storage) VerifiedState(stateID *big.Int) (*VerifiedState, error) {
	vs := &VerifiedState{}
	if err := s.getArtifact(verifiedStatePrefix, stateKey(stateID), vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// HasVerifiedState returns true if there is a record for the state
// identifier provided.
func (s *Storage) HasVerifiedState(stateID *big.Int) (bool, error) {
	if _, err := prefixeddb.NewPrefixedReader(s.db, verifiedStatePrefix).Get(stateKey(stateID)); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListVerifiedStates returns the identifiers of the verified states.
func (s *Storage) ListVerifiedStates() ([]*big.Int, error) {
	keys, err := s.listArtifacts(verifiedStatePrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]*big.Int, len(keys))
	for i, k := range keys {
		ids[i] = new(big.Int).SetBytes(k)
	}
	return ids, nil
}

// CountVerifiedStates returns the number of verified states.
func (s *Storage) CountVerifiedStates() (int, error) {
	keys, err := s.listArtifacts(verifiedStatePrefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
