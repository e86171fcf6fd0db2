package tokenstate

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/tokenzk/circuits"
)

// Names of the checks of the token state circuit.
const (
	CheckCapRange            = "capRange"
	CheckTotalSupplyRange    = "totalSupplyRange"
	CheckOwnerBalanceRange   = "ownerBalanceRange"
	CheckTimestampRange      = "timestampRange"
	CheckCapNonZero          = "capNonZero"
	CheckSupplyWithinCap     = "supplyWithinCap"
	CheckBalanceWithinSupply = "balanceWithinSupply"
)

// Check is a named check of the token state circuit. Each check has a
// native evaluation over a TokenState and an in-circuit definition, kept
// side by side so both never drift apart.
type Check struct {
	Name string
	// native returns a description of the failure, or an empty string if
	// the check holds.
	native func(s *TokenState) string
	// define adds the check to the constraint system. Range checks are
	// asserted directly and return nil, predicates return a boolean variable.
	define func(api frontend.API, c *Circuit) frontend.Variable
}

// Checks is the ordered list of checks. Range checks come first because
// the comparators are only sound for values bounded to ComparisonBits.
var Checks = []Check{
	rangeCheck(CheckCapRange, "cap", circuits.ComparisonBits,
		func(s *TokenState) *big.Int { return s.Cap },
		func(c *Circuit) frontend.Variable { return c.Cap }),
	rangeCheck(CheckTotalSupplyRange, "totalSupply", circuits.ComparisonBits,
		func(s *TokenState) *big.Int { return s.TotalSupply },
		func(c *Circuit) frontend.Variable { return c.TotalSupply }),
	rangeCheck(CheckOwnerBalanceRange, "ownerBalance", circuits.ComparisonBits,
		func(s *TokenState) *big.Int { return s.OwnerBalance },
		func(c *Circuit) frontend.Variable { return c.OwnerBalance }),
	rangeCheck(CheckTimestampRange, "timestamp", circuits.TimestampBits,
		func(s *TokenState) *big.Int { return s.Timestamp },
		func(c *Circuit) frontend.Variable { return c.Timestamp }),
	{
		Name: CheckCapNonZero,
		native: func(s *TokenState) string {
			if s.Cap.Sign() == 0 {
				return "cap is zero"
			}
			return ""
		},
		define: func(api frontend.API, c *Circuit) frontend.Variable {
			return api.Sub(1, api.IsZero(c.Cap))
		},
	},
	{
		Name: CheckSupplyWithinCap,
		native: func(s *TokenState) string {
			if s.TotalSupply.Cmp(s.Cap) > 0 {
				return fmt.Sprintf("totalSupply %s exceeds cap %s", s.TotalSupply, s.Cap)
			}
			return ""
		},
		define: func(api frontend.API, c *Circuit) frontend.Variable {
			return boundedLessOrEqual(api, c.TotalSupply, c.Cap, circuits.ComparisonBits)
		},
	},
	{
		Name: CheckBalanceWithinSupply,
		native: func(s *TokenState) string {
			if s.OwnerBalance.Cmp(s.TotalSupply) > 0 {
				return fmt.Sprintf("ownerBalance %s exceeds totalSupply %s", s.OwnerBalance, s.TotalSupply)
			}
			return ""
		},
		define: func(api frontend.API, c *Circuit) frontend.Variable {
			return boundedLessOrEqual(api, c.OwnerBalance, c.TotalSupply, circuits.ComparisonBits)
		},
	},
}

func rangeCheck(name, field string, bits int,
	native func(*TokenState) *big.Int, variable func(*Circuit) frontend.Variable,
) Check {
	return Check{
		Name: name,
		native: func(s *TokenState) string {
			if v := native(s); v.Sign() < 0 || v.BitLen() > bits {
				return fmt.Sprintf("%s does not fit in %d bits", field, bits)
			}
			return ""
		},
		define: func(api frontend.API, c *Circuit) frontend.Variable {
			api.ToBinary(variable(c), bits)
			return nil
		},
	}
}

// boundedLessOrEqual returns 1 if a <= b and 0 otherwise, for a and b
// already bounded to n bits. It decomposes b - a + 2^n into n+1 bits and
// returns the most significant one, which is set iff b - a >= 0.
func boundedLessOrEqual(api frontend.API, a, b frontend.Variable, n int) frontend.Variable {
	offset := new(big.Int).Lsh(big.NewInt(1), uint(n))
	diff := api.Add(api.Sub(b, a), offset)
	bits := api.ToBinary(diff, n+1)
	return bits[n]
}

// evaluateChecks runs the native checks in order and returns a
// ConstraintUnsatisfied error for the first one that fails.
func evaluateChecks(s *TokenState) error {
	for _, check := range Checks {
		if detail := check.native(s); detail != "" {
			return &circuits.ConstraintUnsatisfied{Check: check.Name, Detail: detail}
		}
	}
	return nil
}
