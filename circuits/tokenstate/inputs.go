package tokenstate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/crypto/field"
	"github.com/vocdoni/tokenzk/crypto/hash/mimc"
)

// TokenState is the private input of the token state circuit. Every value
// must be a canonical element of the BN254 scalar field.
type TokenState struct {
	TotalSupply  *big.Int
	Cap          *big.Int
	OwnerBalance *big.Int
	BlockNumber  *big.Int
	Timestamp    *big.Int
	Owner        *big.Int
}

// jsonTokenState is the circuit input schema: every value is a decimal
// string. Numbers are accepted as JSON numbers too.
type jsonTokenState struct {
	TotalSupply  jsonNumber `json:"totalSupply"`
	Cap          jsonNumber `json:"cap"`
	OwnerBalance jsonNumber `json:"ownerBalance"`
	BlockNumber  jsonNumber `json:"blockNumber"`
	Timestamp    jsonNumber `json:"timestamp"`
	Owner        jsonNumber `json:"owner"`
}

type jsonNumber string

func (n *jsonNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = jsonNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected a number or a string: %w", err)
	}
	*n = jsonNumber(num.String())
	return nil
}

// MarshalJSON encodes the state in the circuit input schema.
func (s *TokenState) MarshalJSON() ([]byte, error) {
	str := func(v *big.Int) jsonNumber {
		if v == nil {
			return ""
		}
		return jsonNumber(v.String())
	}
	return json.Marshal(jsonTokenState{
		TotalSupply:  str(s.TotalSupply),
		Cap:          str(s.Cap),
		OwnerBalance: str(s.OwnerBalance),
		BlockNumber:  str(s.BlockNumber),
		Timestamp:    str(s.Timestamp),
		Owner:        str(s.Owner),
	})
}

// UnmarshalJSON decodes the state from the circuit input schema. Values
// outside of the scalar field are rejected. The owner may also be an
// Ethereum address.
func (s *TokenState) UnmarshalJSON(data []byte) error {
	js := jsonTokenState{}
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	values := []struct {
		name  string
		raw   jsonNumber
		dst   **big.Int
		parse func(string) (*big.Int, error)
	}{
		{"totalSupply", js.TotalSupply, &s.TotalSupply, field.Parse},
		{"cap", js.Cap, &s.Cap, field.Parse},
		{"ownerBalance", js.OwnerBalance, &s.OwnerBalance, field.Parse},
		{"blockNumber", js.BlockNumber, &s.BlockNumber, field.Parse},
		{"timestamp", js.Timestamp, &s.Timestamp, field.Parse},
		{"owner", js.Owner, &s.Owner, field.ParseOwner},
	}
	for _, v := range values {
		parsed, err := v.parse(string(v.raw))
		if err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
		*v.dst = parsed
	}
	return nil
}

// NewTokenState returns a TokenState from uint64 values, for the common case
// of small test and simulation values.
func NewTokenState(totalSupply, tokenCap, ownerBalance, blockNumber, timestamp uint64, owner *big.Int) *TokenState {
	u := func(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
	return &TokenState{
		TotalSupply:  u(totalSupply),
		Cap:          u(tokenCap),
		OwnerBalance: u(ownerBalance),
		BlockNumber:  u(blockNumber),
		Timestamp:    u(timestamp),
		Owner:        new(big.Int).Set(owner),
	}
}

// Validate checks that every value is set and is a canonical field element.
func (s *TokenState) Validate() error {
	values := []struct {
		name string
		v    *big.Int
	}{
		{"totalSupply", s.TotalSupply},
		{"cap", s.Cap},
		{"ownerBalance", s.OwnerBalance},
		{"blockNumber", s.BlockNumber},
		{"timestamp", s.Timestamp},
		{"owner", s.Owner},
	}
	for _, value := range values {
		if !field.IsCanonical(value.v) {
			return fmt.Errorf("%s is not a field element", value.name)
		}
	}
	return nil
}

// StateID returns the identifier of the state:
// MiMC(owner, totalSupply, blockNumber).
func (s *TokenState) StateID() (*big.Int, error) {
	return mimc.Hash(s.Owner, s.TotalSupply, s.BlockNumber)
}

// String returns a short description of the public part of the state.
func (s *TokenState) String() string {
	return fmt.Sprintf("cap=%s block=%s timestamp=%s", s.Cap, s.BlockNumber, s.Timestamp)
}

// Evaluation is the result of evaluating a state against the named checks.
type Evaluation struct {
	StateID       *big.Int
	PublicSignals circuits.PublicSignals
}

// Evaluate runs the named checks natively over the state and, if every
// check holds, returns the public signals a proof of this state will carry.
// It returns a ConstraintUnsatisfied error naming the first failing check.
func Evaluate(s *TokenState) (*Evaluation, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", circuits.ErrInvalidState)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrInvalidState, err)
	}
	if err := evaluateChecks(s); err != nil {
		return nil, err
	}
	stateID, err := s.StateID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrInvalidState, err)
	}
	signals := make(circuits.PublicSignals, circuits.NumPublicSignals)
	signals[circuits.SignalValidity] = big.NewInt(1)
	signals[circuits.SignalStateID] = stateID
	signals[circuits.SignalCap] = new(big.Int).Set(s.Cap)
	signals[circuits.SignalBlockNumber] = new(big.Int).Set(s.BlockNumber)
	signals[circuits.SignalTimestamp] = new(big.Int).Set(s.Timestamp)
	return &Evaluation{
		StateID:       new(big.Int).Set(stateID),
		PublicSignals: signals,
	}, nil
}

// Assignment returns the full circuit assignment of the state with the
// public signals provided.
func Assignment(s *TokenState, signals circuits.PublicSignals) *Circuit {
	return &Circuit{
		Validity:     signals[circuits.SignalValidity],
		StateID:      signals[circuits.SignalStateID],
		Cap:          s.Cap,
		BlockNumber:  s.BlockNumber,
		Timestamp:    s.Timestamp,
		TotalSupply:  s.TotalSupply,
		OwnerBalance: s.OwnerBalance,
		Owner:        s.Owner,
	}
}
