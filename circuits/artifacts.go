package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/types"
)

const (
	partialSuffix    = ".partial"
	progressInterval = 10 * time.Second
)

// ArtifactStore is a content-addressed local cache of circuit artifacts.
// Every artifact is stored in Dir under the hex encoded sha256 hash of its
// content, so a prover and a verifier that agree on the hashes of a circuit
// version use the same key material.
type ArtifactStore struct {
	Dir string
	// CheckHashes enables the hash check of loaded and downloaded content.
	CheckHashes bool
}

// DefaultArtifactsDir returns the cache directory under the user home, or
// under the temporary directory if there is no home.
func DefaultArtifactsDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		log.Warnf("no user home directory, artifacts go to the temporary directory: %v", err)
		return filepath.Join(os.TempDir(), "tokenzk-artifacts")
	}
	return filepath.Join(home, ".cache", "tokenzk-artifacts")
}

// NewArtifactStore returns a hash checking store rooted at dir, creating it
// if needed. An empty dir means DefaultArtifactsDir.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if dir == "" {
		dir = DefaultArtifactsDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create artifacts dir %s: %w", dir, err)
	}
	return &ArtifactStore{Dir: dir, CheckHashes: true}, nil
}

func (s *ArtifactStore) path(hash []byte) string {
	return filepath.Join(s.Dir, hex.EncodeToString(hash))
}

// Put stores the content and returns its hash.
func (s *ArtifactStore) Put(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty artifact")
	}
	sum := sha256.Sum256(content)
	path := s.path(sum[:])
	if _, err := os.Stat(path); err == nil {
		return sum[:], nil
	}
	if err := os.WriteFile(path+partialSuffix, content, 0o644); err != nil {
		return nil, fmt.Errorf("cannot write artifact: %w", err)
	}
	if err := os.Rename(path+partialSuffix, path); err != nil {
		return nil, fmt.Errorf("cannot move artifact in place: %w", err)
	}
	log.Debugw("artifact stored", "hash", hex.EncodeToString(sum[:]), "size", len(content))
	return sum[:], nil
}

// load returns the content stored under hash, or nil if there is none.
func (s *ArtifactStore) load(hash []byte) ([]byte, error) {
	content, err := os.ReadFile(s.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact %x: %w", hash, err)
	}
	if s.CheckHashes {
		if sum := sha256.Sum256(content); !bytes.Equal(sum[:], hash) {
			return nil, fmt.Errorf("hash mismatch for artifact: expected %x, got %x", hash, sum[:])
		}
	}
	return content, nil
}

// Artifact is a piece of circuit material identified by the hash of its
// content, optionally downloadable from RemoteURL.
type Artifact struct {
	RemoteURL string
	Hash      []byte
	Content   []byte
}

// Load fills Content from the store unless it is already set.
func (a *Artifact) Load(store *ArtifactStore) error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := store.load(a.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		return fmt.Errorf("no content found")
	}
	a.Content = content
	return nil
}

// Download fetches the artifact from RemoteURL into the store unless the
// store already holds it.
func (a *Artifact) Download(ctx context.Context, store *ArtifactStore) error {
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact not loaded and no remote url provided")
	}
	if content, err := store.load(a.Hash); err == nil && content != nil {
		return nil
	}
	return store.download(ctx, a.Hash, a.RemoteURL)
}

// CircuitArtifacts groups the constraint system, proving key and verifying
// key of a circuit. Any of them may be nil, for example a verifier only
// needs the verifying key.
type CircuitArtifacts struct {
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts returns the artifacts provided as a group.
func NewCircuitArtifacts(circuit, provingKey, verifyingKey *Artifact) *CircuitArtifacts {
	return &CircuitArtifacts{
		circuitDefinition: circuit,
		provingKey:        provingKey,
		verifyingKey:      verifyingKey,
	}
}

type namedArtifact struct {
	name string
	*Artifact
}

func (ca *CircuitArtifacts) present() []namedArtifact {
	all := []namedArtifact{
		{"circuit definition", ca.circuitDefinition},
		{"proving key", ca.provingKey},
		{"verifying key", ca.verifyingKey},
	}
	present := make([]namedArtifact, 0, len(all))
	for _, a := range all {
		if a.Artifact != nil {
			present = append(present, a)
		}
	}
	return present
}

// LoadAll loads every artifact of the group from the store.
func (ca *CircuitArtifacts) LoadAll(store *ArtifactStore) error {
	for _, a := range ca.present() {
		if err := a.Load(store); err != nil {
			return fmt.Errorf("cannot load %s: %w", a.name, err)
		}
	}
	return nil
}

// DownloadAll downloads every artifact of the group into the store.
func (ca *CircuitArtifacts) DownloadAll(ctx context.Context, store *ArtifactStore) error {
	for _, a := range ca.present() {
		if err := a.Download(ctx, store); err != nil {
			return fmt.Errorf("cannot download %s: %w", a.name, err)
		}
	}
	return nil
}

func artifactContent(a *Artifact) types.HexBytes {
	if a == nil {
		return nil
	}
	return a.Content
}

// CircuitDefinition returns the loaded constraint system, or nil.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes { return artifactContent(ca.circuitDefinition) }

// ProvingKey returns the loaded proving key, or nil.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes { return artifactContent(ca.provingKey) }

// VerifyingKey returns the loaded verifying key, or nil.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes { return artifactContent(ca.verifyingKey) }

// countingReader counts the bytes read through it.
type countingReader struct {
	io.Reader
	n atomic.Int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.n.Add(int64(n))
	return n, err
}

// download fetches rawURL into the store under hash. An interrupted download
// leaves a partial file that the next attempt resumes with a Range request.
func (s *ArtifactStore) download(ctx context.Context, hash []byte, rawURL string) error {
	if _, err := url.Parse(rawURL); err != nil {
		return fmt.Errorf("invalid artifact url: %w", err)
	}
	path := s.path(hash)
	partial := path + partialSuffix

	var offset int64
	if info, err := os.Stat(partial); err == nil {
		offset = info.Size()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("cannot build artifact request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot download %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	hasher := sha256.New()
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	switch res.StatusCode {
	case http.StatusPartialContent:
		if offset > 0 {
			flags = os.O_APPEND | os.O_WRONLY
			prev, err := os.ReadFile(partial)
			if err != nil {
				return fmt.Errorf("cannot read partial artifact: %w", err)
			}
			hasher.Write(prev)
		}
	case http.StatusOK:
		offset = 0
	default:
		return fmt.Errorf("cannot download %s: http status %d", rawURL, res.StatusCode)
	}
	fd, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open partial artifact: %w", err)
	}
	defer fd.Close()

	body := &countingReader{Reader: res.Body}
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.MultiWriter(fd, hasher), body)
		done <- err
	}()
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for copying := true; copying; {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("cannot write artifact: %w", err)
			}
			copying = false
		case <-ticker.C:
			got := offset + body.n.Load()
			progress := "unknown"
			if res.ContentLength > 0 {
				progress = fmt.Sprintf("%.2f%%", float64(got)*100/float64(offset+res.ContentLength))
			}
			log.Debugw("downloading artifact", "url", rawURL,
				"downloaded", fmt.Sprintf("%.2fMiB", float64(got)/(1<<20)), "progress", progress)
		}
	}
	if s.CheckHashes {
		if sum := hasher.Sum(nil); !bytes.Equal(sum, hash) {
			_ = os.Remove(partial)
			return fmt.Errorf("hash mismatch: expected %x, got %x", hash, sum)
		}
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("cannot close artifact: %w", err)
	}
	return os.Rename(partial, path)
}
