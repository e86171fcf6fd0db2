// Package config holds the defaults of the tokenzk node and tools.
package config

import "time"

const (
	// DefaultCircuitVersion is the circuit version used when none is
	// provided. Its manifest is written by the setup command.
	DefaultCircuitVersion = "dev"
	// DefaultArtifactsURL is the base URL the artifacts of a manifest are
	// downloaded from when they are missing in the local store. Every
	// artifact is served under its hex encoded sha256 hash. Empty means the
	// local store is the only source.
	DefaultArtifactsURL = ""
	// DefaultArtifactsTimeout bounds the download of all the artifacts.
	DefaultArtifactsTimeout = 10 * time.Minute

	// DefaultHost and DefaultPort define the listen address of the API.
	DefaultHost = "0.0.0.0"
	DefaultPort = 9090
	// DefaultAPIURL is the API endpoint used by the client commands.
	DefaultAPIURL = "http://localhost:9090"

	// DefaultDBType is the key-value backend of the node storage.
	DefaultDBType = "pebble"
	// DefaultDataDir is the directory, relative to the user home, where the
	// node keeps its database.
	DefaultDataDir = ".tokenzk"

	// DefaultTickInterval is the time the sequencer waits when the proof
	// queue is empty.
	DefaultTickInterval = time.Second
	// DefaultMonitorInterval is the time between two reads of the monitored
	// token contract.
	DefaultMonitorInterval = 15 * time.Second
	// DefaultProveWorkers is the number of states proved in parallel by the
	// batch prover.
	DefaultProveWorkers = 4

	// File names of the circom backend artifacts, as the circom build and
	// the snarkjs setup produce them.
	CircomWasmFile = "TokenStateVerifier.wasm"
	CircomZkeyFile = "circuit_final.zkey"
	CircomVkeyFile = "verification_key.json"

	// DefaultLogLevel and DefaultLogOutput configure the logger.
	DefaultLogLevel  = "info"
	DefaultLogOutput = "stdout"
)

// Environment variables read by the command line tools. A .env file in the
// working directory is loaded before they are read, and their values are
// used as flag defaults.
const (
	EnvPrefix       = "TOKENZK_"
	EnvLogLevel     = EnvPrefix + "LOG_LEVEL"
	EnvLogOutput    = EnvPrefix + "LOG_OUTPUT"
	EnvArtifactsDir = EnvPrefix + "ARTIFACTS_DIR"
	EnvArtifactsURL = EnvPrefix + "ARTIFACTS_URL"
	EnvVersion      = EnvPrefix + "CIRCUIT_VERSION"
	EnvDataDir      = EnvPrefix + "DATADIR"
	EnvHost         = EnvPrefix + "HOST"
	EnvPort         = EnvPrefix + "PORT"
	EnvAPIURL       = EnvPrefix + "API_URL"
	EnvWeb3RPC      = EnvPrefix + "WEB3_RPC"
	EnvToken        = EnvPrefix + "TOKEN"
	EnvOwner        = EnvPrefix + "OWNER"
	EnvCircomDir    = EnvPrefix + "CIRCOM_DIR"
)
