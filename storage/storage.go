// storage package contains all the artifacts that are stored in the database,
// but also is an abstraction of a queue for the proof jobs processed by the
// sequencer. The storage package includes a prefixed key-value store that
// allows to store the different types of artifacts in the database. The
// following prefixes are used:
//   - 'vs/' for verified token states (the registry records)
//   - 'pj/' for proof jobs (with their proofs once generated)
//   - 'pq/' for pending proof jobs (queued)
//   - 'pr/' for proof job reservations
//
// Note: Not all the prefixes support queue operations, only the ones that are
// used in the processing of the artifacts.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vocdoni/tokenzk/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	verifiedStatePrefix    = []byte("vs/")
	proofJobPrefix         = []byte("pj/")
	proofQueuePrefix       = []byte("pq/")
	proofReservationPrefix = []byte("pr/")

	// ErrNotFound is returned when the artifact is not found in the storage.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreElements is returned when the queue has no more elements to
	// process.
	ErrNoMoreElements = errors.New("no more elements")
	// ErrKeyAlreadyExists is returned when an artifact that can not be
	// overwritten already exists.
	ErrKeyAlreadyExists = errors.New("key already exists")
)

// Storage wraps the database and provides typed access to the artifacts
// stored in it.
type Storage struct {
	db db.Database
	// globalLock serializes the operations that read and then write, like
	// queue reservations and the insertion of verified states.
	globalLock sync.Mutex
}

// New creates a new Storage instance. Reservations are only meaningful for
// the running process, so the ones left by a previous run are released and
// their jobs go back to the queue.
func New(db db.Database) *Storage {
	s := &Storage{db: db}
	if n, err := s.releaseReservations(proofReservationPrefix); err != nil {
		log.Warnw("failed to release proof job reservations", "error", err.Error())
	} else if n > 0 {
		log.Infow("released proof job reservations", "count", n)
	}
	return s
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err.Error())
	}
}

// getArtifact reads and decodes the artifact stored under the prefix and key
// provided into out. It returns ErrNotFound if there is no such artifact.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores the artifact under the prefix and key
// provided, overwriting any previous value.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// deleteArtifact removes the artifact stored under the prefix and key
// provided. It returns ErrNotFound if there is no such artifact.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := rd.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// listArtifacts returns the keys of the artifacts stored under the prefix
// provided.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		// make a copy of the key, the iterator reuses it
		key := make([]byte, len(k))
		copy(key, k)
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// isReserved returns true if there is a reservation for the key provided.
func (s *Storage) isReserved(prefix, key []byte) bool {
	_, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	return err == nil
}

// setReservation creates a reservation for the key provided.
func (s *Storage) setReservation(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, []byte{1}); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// releaseReservations removes every reservation under the prefix provided
// and returns how many were removed.
func (s *Storage) releaseReservations(prefix []byte) (int, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	keys, err := s.listArtifacts(prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	for _, k := range keys {
		if err := wTx.Delete(k); err != nil {
			wTx.Discard()
			return 0, err
		}
	}
	if err := wTx.Commit(); err != nil {
		return 0, err
	}
	return len(keys), nil
}
