// Package state keeps the authenticated set of verified token states: an
// arbo Merkle tree keyed by state identifier, whose root commits to every
// state accepted by the registry.
package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/crypto/hash/mimc"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	// MaxLevels is the depth of the tree. State identifiers are BN254
	// scalars, so keys are up to 254 bits long.
	MaxLevels = 256
	// MaxKeyLen is ceil(MaxLevels/8)
	MaxKeyLen = (MaxLevels + 7) / 8
)

// HashFunc is the hash function used in the state tree.
var HashFunc = arbo.HashMiMC_BN254{}

var (
	treePrefix = []byte("vt/")

	// ErrAlreadyIncluded is returned when a state identifier is already in
	// the set.
	ErrAlreadyIncluded = errors.New("state already included")
)

// VerifiedSet is the authenticated set of verified state identifiers. Each
// leaf maps a state identifier to the commitment of its public signals. It
// only grows: there is no way to remove or update a leaf.
type VerifiedSet struct {
	mu   sync.RWMutex
	tree *arbo.Tree
}

// New creates or opens a VerifiedSet stored in the database provided.
func New(database db.Database) (*VerifiedSet, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(database, treePrefix),
		MaxLevels:    MaxLevels,
		HashFunction: HashFunc,
	})
	if err != nil {
		return nil, err
	}
	return &VerifiedSet{tree: tree}, nil
}

// Key returns the tree key of a state identifier.
func Key(stateID *big.Int) []byte {
	return arbo.BigIntToBytes(HashFunc.Len(), stateID)
}

// LeafValue returns the leaf value of a verified state: the MiMC hash of
// its public signals.
func LeafValue(signals circuits.PublicSignals) ([]byte, error) {
	if err := signals.Validate(); err != nil {
		return nil, err
	}
	commitment, err := mimc.Hash(signals...)
	if err != nil {
		return nil, err
	}
	return arbo.BigIntToBytes(HashFunc.Len(), commitment), nil
}

// Add includes the state identifier with the leaf value of its signals. It
// returns ErrAlreadyIncluded if the identifier is already in the set.
func (s *VerifiedSet) Add(stateID *big.Int, signals circuits.PublicSignals) error {
	value, err := LeafValue(signals)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Add(Key(stateID), value); err != nil {
		if errors.Is(err, arbo.ErrKeyAlreadyExists) {
			return ErrAlreadyIncluded
		}
		return fmt.Errorf("add state failed: %w", err)
	}
	return nil
}

// Has returns true if the state identifier is in the set.
func (s *VerifiedSet) Has(stateID *big.Int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, _, err := s.tree.Get(Key(stateID)); err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Root returns the current root of the set.
func (s *VerifiedSet) Root() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Root()
}

// RootAsBigInt returns the current root of the set as a field element.
func (s *VerifiedSet) RootAsBigInt() (*big.Int, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// Size returns the number of states in the set.
func (s *VerifiedSet) Size() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.GetNLeafs()
}

// InclusionProof returns the Merkle proof of the state identifier against
// the current root. If the identifier is not in the set, the proof is a
// proof of non inclusion (Existence is false).
func (s *VerifiedSet) InclusionProof(stateID *big.Int) (*ArboProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GenArboProof(s.tree, Key(stateID))
}
