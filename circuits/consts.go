package circuits

import "github.com/consensys/gnark-crypto/ecc"

// Curve is the curve every token state proof is generated over.
var Curve = ecc.BN254

const (
	// ComparisonBits is the bit-width bound of every comparison done inside
	// the circuit. Values are range checked to this width so the comparators
	// never wrap around the field.
	ComparisonBits = 128
	// TimestampBits bounds the timestamp, a unix time in seconds. The range
	// check is also what binds the timestamp public signal to the proof.
	TimestampBits = 64
	// NumPublicSignals is the number of public signals of a token state proof.
	NumPublicSignals = 5
)

// Positions of the public signals. The order is fixed by the circuit
// definition and by the verifying key.
const (
	SignalValidity = iota
	SignalStateID
	SignalCap
	SignalBlockNumber
	SignalTimestamp
)
