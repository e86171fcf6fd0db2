package circuits

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/tokenzk/crypto/field"
)

// PublicSignals is the ordered list of public outputs of a token state
// proof: [validity, stateId, cap, blockNumber, timestamp]. It encodes to JSON
// as an array of decimal strings, the snarkjs publicSignals format.
type PublicSignals []*big.Int

// ParsePublicSignals decodes a list of decimal or hex strings. It does not
// check the arity, use Validate for that.
func ParsePublicSignals(values []string) (PublicSignals, error) {
	signals := make(PublicSignals, len(values))
	for i, v := range values {
		s, err := field.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%w: signal %d: %v", ErrShapeMismatch, i, err)
		}
		signals[i] = s
	}
	return signals, nil
}

// Validate checks that the signals have the expected arity and that every
// entry is a canonical field element.
func (ps PublicSignals) Validate() error {
	if len(ps) != NumPublicSignals {
		return fmt.Errorf("%w: expected %d signals, got %d", ErrShapeMismatch, NumPublicSignals, len(ps))
	}
	for i, s := range ps {
		if !field.IsCanonical(s) {
			return fmt.Errorf("%w: signal %d is not a field element", ErrShapeMismatch, i)
		}
	}
	return nil
}

func (ps PublicSignals) at(i int) *big.Int {
	if i >= len(ps) || ps[i] == nil {
		return nil
	}
	return new(big.Int).Set(ps[i])
}

// Validity returns a copy of the validity signal.
func (ps PublicSignals) Validity() *big.Int { return ps.at(SignalValidity) }

// StateID returns a copy of the state identifier signal.
func (ps PublicSignals) StateID() *big.Int { return ps.at(SignalStateID) }

// Cap returns a copy of the cap signal.
func (ps PublicSignals) Cap() *big.Int { return ps.at(SignalCap) }

// BlockNumber returns a copy of the block number signal.
func (ps PublicSignals) BlockNumber() *big.Int { return ps.at(SignalBlockNumber) }

// Timestamp returns a copy of the timestamp signal.
func (ps PublicSignals) Timestamp() *big.Int { return ps.at(SignalTimestamp) }

// Clone returns a deep copy of the signals.
func (ps PublicSignals) Clone() PublicSignals {
	out := make(PublicSignals, len(ps))
	for i := range ps {
		out[i] = ps.at(i)
	}
	return out
}

// Equal reports whether both lists hold the same values in the same order.
func (ps PublicSignals) Equal(o PublicSignals) bool {
	if len(ps) != len(o) {
		return false
	}
	for i := range ps {
		if ps[i] == nil || o[i] == nil {
			if ps[i] != o[i] {
				return false
			}
			continue
		}
		if ps[i].Cmp(o[i]) != 0 {
			return false
		}
	}
	return true
}

// Strings returns the signals as decimal strings.
func (ps PublicSignals) Strings() []string {
	return BigIntArrayToStringArray(ps, len(ps))
}

// MarshalJSON implements json.Marshaler.
func (ps PublicSignals) MarshalJSON() ([]byte, error) {
	return json.Marshal(ps.Strings())
}

// UnmarshalJSON implements json.Unmarshaler.
func (ps *PublicSignals) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	signals, err := ParsePublicSignals(values)
	if err != nil {
		return err
	}
	*ps = signals
	return nil
}
