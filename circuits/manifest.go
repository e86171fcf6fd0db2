package circuits

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/vocdoni/tokenzk/types"
)

// Manifest describes a circuit version: the hashes of its constraint
// system, proving key and verifying key. The prover and the verifier of the
// same version always share the same manifest.
type Manifest struct {
	Version          string         `json:"version"`
	Curve            string         `json:"curve"`
	CircuitHash      types.HexBytes `json:"circuitHash"`
	ProvingKeyHash   types.HexBytes `json:"provingKeyHash"`
	VerifyingKeyHash types.HexBytes `json:"verifyingKeyHash"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func manifestName(version string) string {
	return fmt.Sprintf("manifest-%s.json", version)
}

// Artifacts returns the circuit artifacts described by the manifest. If
// baseURL is not empty, every artifact can be downloaded from
// baseURL/<hex hash>.
func (m *Manifest) Artifacts(baseURL string) *CircuitArtifacts {
	return NewCircuitArtifacts(
		remoteArtifact(m.CircuitHash, baseURL),
		remoteArtifact(m.ProvingKeyHash, baseURL),
		remoteArtifact(m.VerifyingKeyHash, baseURL),
	)
}

// VerifierArtifacts returns only the verifying key artifact of the
// manifest.
func (m *Manifest) VerifierArtifacts(baseURL string) *CircuitArtifacts {
	return NewCircuitArtifacts(nil, nil, remoteArtifact(m.VerifyingKeyHash, baseURL))
}

func remoteArtifact(hash types.HexBytes, baseURL string) *Artifact {
	a := &Artifact{Hash: hash}
	if baseURL != "" {
		if u, err := url.JoinPath(baseURL, hash.String()); err == nil {
			a.RemoteURL = u
		}
	}
	return a
}

// WriteManifest stores the manifest in the store directory.
func (s *ArtifactStore) WriteManifest(m *Manifest) error {
	if m.Version == "" {
		return fmt.Errorf("manifest without version")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, manifestName(m.Version)), data, 0o644)
}

// ReadManifest reads the manifest of the version provided from the store
// directory.
func (s *ArtifactStore) ReadManifest(version string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, manifestName(version)))
	if err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", version, err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("error decoding manifest %s: %w", version, err)
	}
	return m, nil
}
