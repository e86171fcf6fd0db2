package tokenstate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/log"
)

// Keys groups the key material of a circuit version.
type Keys struct {
	CCS          constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
}

// Compile compiles the token state circuit into a R1CS constraint system.
func Compile() (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(circuits.Curve.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, fmt.Errorf("failed to compile token state circuit: %w", err)
	}
	return ccs, nil
}

// CompileAndSetup compiles the circuit and runs a single party Groth16
// setup. The toxic waste is known to this process, so the resulting keys
// are only suitable for development and tests; production keys must come
// from a multi-party ceremony and be loaded with LoadKeys.
func CompileAndSetup() (*Keys, error) {
	startTime := time.Now()
	ccs, err := Compile()
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("%w: setup: %v", circuits.ErrProvingFailure, err)
	}
	log.Debugw("token state circuit setup done",
		"constraints", ccs.GetNbConstraints(),
		"took", time.Since(startTime).String())
	return &Keys{CCS: ccs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// Store writes the key material into the artifact store and records a
// manifest for the version provided.
func (k *Keys) Store(store *circuits.ArtifactStore, version string) (*circuits.Manifest, error) {
	ccs, err := circuits.Serialize(k.CCS)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize constraint system: %w", err)
	}
	pk, err := circuits.Serialize(k.ProvingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize proving key: %w", err)
	}
	vk, err := circuits.Serialize(k.VerifyingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize verifying key: %w", err)
	}
	m := &circuits.Manifest{Version: version, Curve: circuits.Curve.String()}
	if m.CircuitHash, err = store.Put(ccs); err != nil {
		return nil, err
	}
	if m.ProvingKeyHash, err = store.Put(pk); err != nil {
		return nil, err
	}
	if m.VerifyingKeyHash, err = store.Put(vk); err != nil {
		return nil, err
	}
	if err := store.WriteManifest(m); err != nil {
		return nil, err
	}
	log.Infow("token state keys stored", "version", version,
		"circuit", m.CircuitHash.String(),
		"provingKey", m.ProvingKeyHash.String(),
		"verifyingKey", m.VerifyingKeyHash.String())
	return m, nil
}

// LoadKeys loads and decodes the artifacts provided. Artifacts that are not
// set are left empty in the result, so a verifier can load only the
// verifying key.
func LoadKeys(artifacts *circuits.CircuitArtifacts, store *circuits.ArtifactStore) (*Keys, error) {
	if err := artifacts.LoadAll(store); err != nil {
		return nil, fmt.Errorf("failed to load token state artifacts: %w", err)
	}
	keys := &Keys{}
	if content := artifacts.CircuitDefinition(); content != nil {
		// decode the circuit definition (constrain system)
		keys.CCS = groth16.NewCS(circuits.Curve)
		if _, err := keys.CCS.ReadFrom(bytes.NewReader(content)); err != nil {
			return nil, fmt.Errorf("failed to read token state definition: %w", err)
		}
	}
	if content := artifacts.ProvingKey(); content != nil {
		keys.ProvingKey = groth16.NewProvingKey(circuits.Curve)
		if _, err := keys.ProvingKey.ReadFrom(bytes.NewReader(content)); err != nil {
			return nil, fmt.Errorf("failed to read token state proving key: %w", err)
		}
	}
	if content := artifacts.VerifyingKey(); content != nil {
		vk, err := ReadVerifyingKey(content)
		if err != nil {
			return nil, err
		}
		keys.VerifyingKey = vk
	}
	return keys, nil
}

// ReadVerifyingKey decodes a verifying key serialized with WriteTo.
func ReadVerifyingKey(content []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(circuits.Curve)
	if _, err := vk.ReadFrom(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read token state verifying key: %w", err)
	}
	if n := vk.NbPublicWitness(); n != circuits.NumPublicSignals {
		return nil, fmt.Errorf("verifying key expects %d public signals, not %d", n, circuits.NumPublicSignals)
	}
	return vk, nil
}
