// Package registry keeps the set of token states whose proofs have been
// verified. A state enters the registry only through Submit, with a proof
// that verifies against the registry verifying key, and it is never removed.
// Every new state is recorded in the storage, included in the authenticated
// verified set and announced to the subscribers of the registry.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/state"
	"github.com/vocdoni/tokenzk/storage"
	"github.com/vocdoni/tokenzk/types"
)

// TopicStateVerified is the event bus topic of StateVerified events.
const TopicStateVerified = "registry:stateVerified"

// Outcome is the result of a submission.
type Outcome string

const (
	// OutcomeRejected means that the proof did not verify. Nothing changes.
	OutcomeRejected Outcome = "rejected"
	// OutcomeVerified means that the proof verified and the state was added.
	OutcomeVerified Outcome = "verified"
	// OutcomeAlreadyVerified means that the proof verified but the state
	// was already in the registry. Nothing changes.
	OutcomeAlreadyVerified Outcome = "alreadyVerified"
)

// ErrMalformedSignals is returned by Submit when the public signals do not
// have the expected shape. It also matches circuits.ErrShapeMismatch.
var ErrMalformedSignals = errors.New("malformed public signals")

// StateVerified is the event published when a new state is added.
type StateVerified struct {
	StateID       *big.Int
	PublicSignals circuits.PublicSignals
	Outcome       Outcome
}

// Verifier verifies a proof against its public signals, see
// tokenstate.Verifier.
type Verifier interface {
	Verify(proof *circuits.Proof, signals circuits.PublicSignals) (bool, error)
}

// Registry is the registry of verified token states. It is safe for
// concurrent use: submissions are serialized, so concurrent submissions of
// the same state resolve to exactly one OutcomeVerified.
type Registry struct {
	mu       sync.Mutex
	verifier Verifier
	storage  *storage.Storage
	set      *state.VerifiedSet
	bus      evbus.Bus
}

// New returns a registry that verifies submissions with the verifier
// provided and keeps its records in the storage and the verified set.
func New(verifier Verifier, stg *storage.Storage, set *state.VerifiedSet) (*Registry, error) {
	if verifier == nil {
		return nil, fmt.Errorf("missing verifier")
	}
	if stg == nil || set == nil {
		return nil, fmt.Errorf("missing storage")
	}
	r := &Registry{
		verifier: verifier,
		storage:  stg,
		set:      set,
		bus:      evbus.New(),
	}
	count, err := stg.CountVerifiedStates()
	if err != nil {
		log.Warnw("cannot count verified states", "error", err)
	} else {
		verifiedStates.Set(float64(count))
	}
	return r, nil
}

// Submit verifies the proof against the signals and, if it verifies, adds
// the state identified by signals[1] to the registry. A proof that does not
// verify returns OutcomeRejected and no error. Signals with the wrong shape
// return ErrMalformedSignals. Only OutcomeVerified changes the registry and
// emits a StateVerified event.
func (r *Registry) Submit(proof *circuits.Proof, signals circuits.PublicSignals) (Outcome, error) {
	if err := signals.Validate(); err != nil {
		submissions.WithLabelValues("malformed").Inc()
		return OutcomeRejected, fmt.Errorf("%w: %w", ErrMalformedSignals, err)
	}
	ok, err := r.verifier.Verify(proof, signals)
	if err != nil {
		submissions.WithLabelValues("malformed").Inc()
		return OutcomeRejected, fmt.Errorf("%w: %w", ErrMalformedSignals, err)
	}
	if !ok {
		submissions.WithLabelValues(string(OutcomeRejected)).Inc()
		log.Debugw("state submission rejected", "stateId", signals.StateID().String())
		return OutcomeRejected, nil
	}
	stateID := signals.StateID()

	r.mu.Lock()
	outcome, err := r.add(proof, signals, stateID)
	r.mu.Unlock()
	if err != nil {
		submissions.WithLabelValues("error").Inc()
		return outcome, err
	}
	submissions.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeVerified {
		verifiedStates.Inc()
		log.Infow("token state verified",
			"stateId", stateID.String(),
			"cap", signals.Cap().String(),
			"blockNumber", signals.BlockNumber().String())
		r.bus.Publish(TopicStateVerified, &StateVerified{
			StateID:       stateID,
			PublicSignals: signals.Clone(),
			Outcome:       outcome,
		})
	}
	return outcome, nil
}

// add stores a verified state. It must be called with the registry lock.
func (r *Registry) add(proof *circuits.Proof, signals circuits.PublicSignals, stateID *big.Int) (Outcome, error) {
	exists, err := r.storage.HasVerifiedState(stateID)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("read verified state: %w", err)
	}
	if exists {
		return OutcomeAlreadyVerified, nil
	}
	// the set is written first: if the record write fails, the next
	// submission of the same state finds it in the set and writes the
	// record
	if err := r.set.Add(stateID, signals); err != nil && !errors.Is(err, state.ErrAlreadyIncluded) {
		return OutcomeRejected, fmt.Errorf("add to verified set: %w", err)
	}
	if err := r.storage.SetVerifiedState(storage.NewVerifiedState(proof, signals)); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			return OutcomeAlreadyVerified, nil
		}
		return OutcomeRejected, fmt.Errorf("store verified state: %w", err)
	}
	return OutcomeVerified, nil
}

// Status returns true if the state identifier is in the registry.
func (r *Registry) Status(stateID *big.Int) (bool, error) {
	return r.storage.HasVerifiedState(stateID)
}

// VerifiedState returns the record of a verified state, or
// storage.ErrNotFound.
func (r *Registry) VerifiedState(stateID *big.Int) (*storage.VerifiedState, error) {
	return r.storage.VerifiedState(stateID)
}

// VerifiedStates returns the identifiers of the verified states.
func (r *Registry) VerifiedStates() ([]*big.Int, error) {
	return r.storage.ListVerifiedStates()
}

// Root returns the root of the verified set.
func (r *Registry) Root() (types.HexBytes, error) {
	return r.set.Root()
}

// Size returns the number of states in the verified set.
func (r *Registry) Size() (int, error) {
	return r.set.Size()
}

// InclusionProof returns the Merkle proof of the state identifier in the
// verified set.
func (r *Registry) InclusionProof(stateID *big.Int) (*state.ArboProof, error) {
	return r.set.InclusionProof(stateID)
}

// Subscribe registers fn to be called with every StateVerified event. Events
// are delivered synchronously, before Submit returns.
func (r *Registry) Subscribe(fn func(*StateVerified)) error {
	return r.bus.Subscribe(TopicStateVerified, fn)
}

// Unsubscribe removes a function registered with Subscribe.
func (r *Registry) Unsubscribe(fn func(*StateVerified)) error {
	return r.bus.Unsubscribe(TopicStateVerified, fn)
}
