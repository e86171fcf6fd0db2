package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/config"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/service"
)

const (
	proofFile    = "proof.json"
	publicFile   = "public.json"
	calldataFile = "calldata.txt"
)

// envOr returns the value of the environment variable key or def if it is
// not set.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envIntOr is envOr for integer values. Values that do not parse are
// ignored.
func envIntOr(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnw("ignoring invalid integer env var", "key", key, "value", v)
		return def
	}
	return n
}

// loadKeys reads the manifest of the configured circuit version and loads
// its artifacts, downloading the missing ones if an artifacts URL is set.
// With verifierOnly, only the verifying key is loaded.
func loadKeys(flags *globalFlags, verifierOnly bool) (*tokenstate.Keys, *circuits.Manifest, error) {
	store, err := circuits.NewArtifactStore(flags.artifactsDir)
	if err != nil {
		return nil, nil, err
	}
	manifest, err := store.ReadManifest(flags.version)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run the setup command first)", err)
	}
	artifacts := manifest.Artifacts(flags.artifactsURL)
	if verifierOnly {
		artifacts = manifest.VerifierArtifacts(flags.artifactsURL)
	}
	if flags.artifactsURL != "" {
		if err := service.DownloadArtifacts(config.DefaultArtifactsTimeout, store, artifacts); err != nil {
			return nil, nil, fmt.Errorf("failed to download artifacts: %w", err)
		}
	}
	keys, err := tokenstate.LoadKeys(artifacts, store)
	if err != nil {
		return nil, nil, err
	}
	log.Debugw("circuit artifacts loaded",
		"version", manifest.Version,
		"circuitHash", manifest.CircuitHash.String(),
		"verifierOnly", verifierOnly)
	return keys, manifest, nil
}

// readProofFiles decodes a proof.json and public.json pair.
func readProofFiles(proofPath, publicPath string) (*circuits.ProofWithSignals, error) {
	result := &circuits.ProofWithSignals{Proof: &circuits.Proof{}}
	if err := circuits.LoadJSON(proofPath, result.Proof); err != nil {
		return nil, err
	}
	if err := circuits.LoadJSON(publicPath, &result.PublicSignals); err != nil {
		return nil, err
	}
	return result, nil
}

// writeProofFiles writes the proof, its public signals and the Solidity
// calldata into dir.
func writeProofFiles(dir string, result *circuits.ProofWithSignals) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := circuits.StoreJSON(result.Proof, filepath.Join(dir, proofFile)); err != nil {
		return err
	}
	if err := circuits.StoreJSON(result.PublicSignals, filepath.Join(dir, publicFile)); err != nil {
		return err
	}
	calldata, err := result.Proof.Calldata(result.PublicSignals)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, calldataFile), []byte(calldata.String()+"\n"), 0o644)
}
