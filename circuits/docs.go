package circuits

// The circuits package contains the common pieces used by the token state
// circuits. The goal of these circuits is to provide a verifiable way to prove
// that a token state is consistent (the supply never exceeds the cap and the
// owner balance never exceeds the supply) without disclosing the supply or
// the balances.
// To achieve that goal, the circuits are used following these steps:
//   1. The issuer evaluates the token state natively, any failing check stops
//      the process before proving (tokenstate.Evaluate).
//   2. The issuer generates a Groth16 proof over BN254 of the token state
//      circuit (tokenstate.Prover), or of the equivalent circom circuit
//      (circom.Prover) using snarkjs artifacts.
//   3. Any party verifies the proof with the verifying key of the circuit
//      version (tokenstate.Verify or VerifyCircomProof).
//   4. The registry records the state identifier of every verified proof.
//
// +--------------+   private: totalSupply, ownerBalance, owner
// | Token State  |   public:  validity, stateId, cap, blockNumber, timestamp
// |   Circuit    |   native:  BN254
// +--------------+
//
// Proofs travel in the snarkjs layout (pi_a, pi_b, pi_c) so the same artifacts
// are accepted by the Solidity verifier and by the Go verifier.
