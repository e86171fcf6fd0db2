package tokenstate

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/log"
	"golang.org/x/sync/errgroup"
)

var (
	proofDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tokenzk_proof_generation_seconds",
		Help:    "Time spent generating token state proofs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	proofResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenzk_proofs_total",
		Help: "Number of token state proof generations by result",
	}, []string{"result"})
)

// Prover generates token state proofs. It only reads its constraint system
// and proving key, so it is safe for concurrent use.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
}

// NewProver returns a prover for the constraint system and proving key
// provided.
func NewProver(ccs constraint.ConstraintSystem, pk groth16.ProvingKey) (*Prover, error) {
	if ccs == nil || pk == nil {
		return nil, fmt.Errorf("%w: missing constraint system or proving key", circuits.ErrProvingFailure)
	}
	return &Prover{ccs: ccs, pk: pk}, nil
}

// NewProverFromKeys returns a prover for the key material provided.
func NewProverFromKeys(keys *Keys) (*Prover, error) {
	return NewProver(keys.CCS, keys.ProvingKey)
}

// GenerateProof evaluates the state, builds the witness and generates a
// Groth16 proof of it. A state that violates any check returns a
// ConstraintUnsatisfied error (errors.Is ErrInvalidState) and never reaches
// the backend; backend failures return ErrProvingFailure.
//
// The proving backend can not be interrupted. If ctx is done before the
// proof is ready, the call returns ctx.Err() and the proof is discarded.
func (p *Prover) GenerateProof(ctx context.Context, s *TokenState) (*circuits.ProofWithSignals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := p.generateProof(ctx, s)
	switch {
	case err == nil:
		proofResults.WithLabelValues("ok").Inc()
	case circuits.UnsatisfiedCheck(err) != "":
		proofResults.WithLabelValues("invalid_state").Inc()
	default:
		proofResults.WithLabelValues("error").Inc()
	}
	return result, err
}

func (p *Prover) generateProof(ctx context.Context, s *TokenState) (*circuits.ProofWithSignals, error) {
	eval, err := Evaluate(s)
	if err != nil {
		return nil, err
	}
	// calculate the witness with the assignment
	fullWitness, err := frontend.NewWitness(Assignment(s, eval.PublicSignals), circuits.Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create witness: %v", circuits.ErrInvalidState, err)
	}
	type proveResult struct {
		proof groth16.Proof
		err   error
	}
	startTime := time.Now()
	done := make(chan proveResult, 1)
	go func() {
		proof, err := groth16.Prove(p.ccs, p.pk, fullWitness)
		done <- proveResult{proof, err}
	}()
	var res proveResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	proofDuration.Observe(time.Since(startTime).Seconds())
	if res.err != nil {
		// the native checks passed, so find out if the circuit disagrees
		// or the backend failed
		if err := p.ccs.IsSolved(fullWitness); err != nil {
			return nil, &circuits.ConstraintUnsatisfied{Check: "circuit", Detail: err.Error()}
		}
		return nil, fmt.Errorf("%w: %v", circuits.ErrProvingFailure, res.err)
	}
	proof, err := circuits.ProofFromGnark(res.proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrProvingFailure, err)
	}
	signals, err := publicSignalsFromWitness(fullWitness)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrProvingFailure, err)
	}
	log.Debugw("token state proof generated",
		"stateId", signals.StateID().String(),
		"took", time.Since(startTime).String())
	return &circuits.ProofWithSignals{Proof: proof, PublicSignals: signals}, nil
}

// GenerateBatch generates the proofs of the states provided in parallel,
// using up to workers goroutines. The results keep the order of the
// states. The first failure cancels the pending proofs and is returned.
func (p *Prover) GenerateBatch(ctx context.Context, states []*TokenState, workers int) ([]*circuits.ProofWithSignals, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*circuits.ProofWithSignals, len(states))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range states {
		g.Go(func() error {
			proof, err := p.GenerateProof(ctx, s)
			if err != nil {
				return fmt.Errorf("state %d: %w", i, err)
			}
			results[i] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// publicSignalsFromWitness extracts the public signals from the full
// witness.
func publicSignalsFromWitness(w witness.Witness) (circuits.PublicSignals, error) {
	pub, err := w.Public()
	if err != nil {
		return nil, err
	}
	vec, ok := pub.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", pub.Vector())
	}
	if len(vec) != circuits.NumPublicSignals {
		return nil, fmt.Errorf("unexpected number of public signals %d", len(vec))
	}
	signals := make(circuits.PublicSignals, len(vec))
	for i := range vec {
		signals[i] = vec[i].BigInt(new(big.Int))
	}
	return signals, nil
}

// PublicWitness returns the gnark public witness of the signals provided.
func PublicWitness(signals circuits.PublicSignals) (witness.Witness, error) {
	if err := signals.Validate(); err != nil {
		return nil, err
	}
	assignment := &Circuit{
		Validity:    signals[circuits.SignalValidity],
		StateID:     signals[circuits.SignalStateID],
		Cap:         signals[circuits.SignalCap],
		BlockNumber: signals[circuits.SignalBlockNumber],
		Timestamp:   signals[circuits.SignalTimestamp],
	}
	return frontend.NewWitness(assignment, circuits.Curve.ScalarField(), frontend.PublicOnly())
}
