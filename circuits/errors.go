package circuits

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a token state violates one of the
	// circuit checks, so no witness and no proof can exist for it.
	ErrInvalidState = errors.New("invalid token state")
	// ErrProvingFailure is returned when the proving backend fails for a
	// state that satisfies the circuit (bad key material, bad constraint
	// system).
	ErrProvingFailure = errors.New("proving failure")
	// ErrShapeMismatch is returned when the public signals do not have the
	// expected arity or contain values that are not field elements.
	ErrShapeMismatch = errors.New("public signals shape mismatch")
	// ErrVerificationRejected is returned by callers that need an error
	// value for a well formed proof that does not verify.
	ErrVerificationRejected = errors.New("proof verification rejected")
)

// ConstraintUnsatisfied is the error returned when a named check of the
// token state circuit does not hold. It matches ErrInvalidState with
// errors.Is.
type ConstraintUnsatisfied struct {
	Check  string
	Detail string
}

func (e *ConstraintUnsatisfied) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("constraint %q unsatisfied", e.Check)
	}
	return fmt.Sprintf("constraint %q unsatisfied: %s", e.Check, e.Detail)
}

// Is reports whether target is ErrInvalidState.
func (e *ConstraintUnsatisfied) Is(target error) bool {
	return target == ErrInvalidState
}

// UnsatisfiedCheck returns the name of the failed check carried by err, or
// an empty string if err does not carry any.
func UnsatisfiedCheck(err error) string {
	var cu *ConstraintUnsatisfied
	if errors.As(err, &cu) {
		return cu.Check
	}
	return ""
}
