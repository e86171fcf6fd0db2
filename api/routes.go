package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ProofsEndpoint is the endpoint for queueing the proof of a token state
	ProofsEndpoint = "/proofs"
	// ProofEndpoint is the endpoint to get a proof job and its result
	ProofURLParam = "proofId"
	ProofEndpoint = "/proofs/{" + ProofURLParam + "}"
	// VerifyEndpoint is the endpoint for verifying a proof without changing
	// the registry
	VerifyEndpoint = "/verify"
	// StatesEndpoint is the endpoint for submitting a proof to the registry
	// and listing the verified states
	StatesEndpoint = "/states"
	// StateEndpoint is the endpoint to get the verification status of a state
	StateURLParam = "stateId"
	StateEndpoint = "/states/{" + StateURLParam + "}"
	// RegistryRootEndpoint is the endpoint to get the root of the verified set
	RegistryRootEndpoint = "/registry/root"
	// VerifierContractEndpoint is the endpoint to get the Solidity verifier
	// of the registry verifying key
	VerifierContractEndpoint = "/verifier.sol"
	// MetricsEndpoint is the endpoint of the prometheus metrics
	MetricsEndpoint = "/metrics"
)
