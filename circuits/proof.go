package circuits

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

const (
	snarkjsProtocol = "groth16"
	snarkjsCurve    = "bn128"
)

// Proof is a Groth16 proof over BN254 in affine coordinates. A and C are G1
// points as [x, y]; B is a G2 point as [[x.A0, x.A1], [y.A0, y.A1]], the
// order snarkjs uses in its proof.json files.
type Proof struct {
	A [2]*big.Int
	B [2][2]*big.Int
	C [2]*big.Int
}

// ProofWithSignals bundles a proof with the public signals it was generated
// for.
type ProofWithSignals struct {
	Proof         *Proof        `json:"proof"`
	PublicSignals PublicSignals `json:"publicSignals"`
}

// snarkjsProof is the JSON layout of a snarkjs proof. Points carry the
// projective coordinate, which is always one for affine points.
type snarkjsProof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
}

// MarshalJSON encodes the proof in the snarkjs proof.json format.
func (p *Proof) MarshalJSON() ([]byte, error) {
	if p.hasNil() {
		return nil, fmt.Errorf("incomplete proof")
	}
	return json.Marshal(snarkjsProof{
		PiA: []string{p.A[0].String(), p.A[1].String(), "1"},
		PiB: [][]string{
			{p.B[0][0].String(), p.B[0][1].String()},
			{p.B[1][0].String(), p.B[1][1].String()},
			{"1", "0"},
		},
		PiC:      []string{p.C[0].String(), p.C[1].String(), "1"},
		Protocol: snarkjsProtocol,
		Curve:    snarkjsCurve,
	})
}

// UnmarshalJSON decodes a proof in the snarkjs proof.json format. It accepts
// points with or without the projective coordinate.
func (p *Proof) UnmarshalJSON(data []byte) error {
	sp := snarkjsProof{}
	if err := json.Unmarshal(data, &sp); err != nil {
		return err
	}
	if sp.Protocol != "" && sp.Protocol != snarkjsProtocol {
		return fmt.Errorf("unsupported protocol %q", sp.Protocol)
	}
	if sp.Curve != "" && !strings.EqualFold(sp.Curve, snarkjsCurve) && !strings.EqualFold(sp.Curve, "bn254") {
		return fmt.Errorf("unsupported curve %q", sp.Curve)
	}
	a, err := parseG1(sp.PiA)
	if err != nil {
		return fmt.Errorf("pi_a: %w", err)
	}
	c, err := parseG1(sp.PiC)
	if err != nil {
		return fmt.Errorf("pi_c: %w", err)
	}
	if len(sp.PiB) != 2 && len(sp.PiB) != 3 {
		return fmt.Errorf("pi_b: expected 2 or 3 rows, got %d", len(sp.PiB))
	}
	if len(sp.PiB) == 3 && (len(sp.PiB[2]) != 2 || sp.PiB[2][0] != "1" || sp.PiB[2][1] != "0") {
		return fmt.Errorf("pi_b: point is not in affine form")
	}
	var b [2][2]*big.Int
	for i := 0; i < 2; i++ {
		if len(sp.PiB[i]) != 2 {
			return fmt.Errorf("pi_b[%d]: expected 2 coordinates, got %d", i, len(sp.PiB[i]))
		}
		for j := 0; j < 2; j++ {
			if b[i][j], err = parseCoordinate(sp.PiB[i][j]); err != nil {
				return fmt.Errorf("pi_b[%d][%d]: %w", i, j, err)
			}
		}
	}
	p.A, p.B, p.C = a, b, c
	return nil
}

func parseG1(coords []string) ([2]*big.Int, error) {
	if len(coords) != 2 && len(coords) != 3 {
		return [2]*big.Int{}, fmt.Errorf("expected 2 or 3 coordinates, got %d", len(coords))
	}
	if len(coords) == 3 && coords[2] != "1" {
		return [2]*big.Int{}, fmt.Errorf("point is not in affine form")
	}
	x, err := parseCoordinate(coords[0])
	if err != nil {
		return [2]*big.Int{}, err
	}
	y, err := parseCoordinate(coords[1])
	if err != nil {
		return [2]*big.Int{}, err
	}
	return [2]*big.Int{x, y}, nil
}

func parseCoordinate(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid coordinate %q", s)
	}
	return v, nil
}

func (p *Proof) hasNil() bool {
	return p.A[0] == nil || p.A[1] == nil || p.C[0] == nil || p.C[1] == nil ||
		p.B[0][0] == nil || p.B[0][1] == nil || p.B[1][0] == nil || p.B[1][1] == nil
}

// Clone returns a deep copy of the proof.
func (p *Proof) Clone() *Proof {
	cp := func(v *big.Int) *big.Int {
		if v == nil {
			return nil
		}
		return new(big.Int).Set(v)
	}
	return &Proof{
		A: [2]*big.Int{cp(p.A[0]), cp(p.A[1])},
		B: [2][2]*big.Int{{cp(p.B[0][0]), cp(p.B[0][1])}, {cp(p.B[1][0]), cp(p.B[1][1])}},
		C: [2]*big.Int{cp(p.C[0]), cp(p.C[1])},
	}
}

// Equal reports whether both proofs have the same coordinates.
func (p *Proof) Equal(o *Proof) bool {
	if p == nil || o == nil {
		return p == o
	}
	eq := func(a, b *big.Int) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Cmp(b) == 0
	}
	return eq(p.A[0], o.A[0]) && eq(p.A[1], o.A[1]) &&
		eq(p.B[0][0], o.B[0][0]) && eq(p.B[0][1], o.B[0][1]) &&
		eq(p.B[1][0], o.B[1][0]) && eq(p.B[1][1], o.B[1][1]) &&
		eq(p.C[0], o.C[0]) && eq(p.C[1], o.C[1])
}

// ProofFromGnark converts a gnark Groth16 proof over BN254 into a Proof.
// Proofs with commitments are not supported because the snarkjs layout has
// no place for them.
func ProofFromGnark(proof groth16.Proof) (*Proof, error) {
	bn254Proof, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unsupported proof type %T", proof)
	}
	if len(bn254Proof.Commitments) > 0 {
		return nil, fmt.Errorf("proofs with commitments are not supported")
	}
	fe := func(e fp.Element) *big.Int { return e.BigInt(new(big.Int)) }
	return &Proof{
		A: [2]*big.Int{fe(bn254Proof.Ar.X), fe(bn254Proof.Ar.Y)},
		B: [2][2]*big.Int{
			{fe(bn254Proof.Bs.X.A0), fe(bn254Proof.Bs.X.A1)},
			{fe(bn254Proof.Bs.Y.A0), fe(bn254Proof.Bs.Y.A1)},
		},
		C: [2]*big.Int{fe(bn254Proof.Krs.X), fe(bn254Proof.Krs.Y)},
	}, nil
}

// ToGnark converts the proof into a gnark Groth16 proof over BN254. It
// returns an error if any coordinate is not a canonical base field element
// or any point is not on its curve or in the right subgroup.
func (p *Proof) ToGnark() (groth16.Proof, error) {
	if p == nil || p.hasNil() {
		return nil, fmt.Errorf("incomplete proof")
	}
	proof := &groth16_bn254.Proof{}
	coords := []struct {
		dst *fp.Element
		src *big.Int
	}{
		{&proof.Ar.X, p.A[0]}, {&proof.Ar.Y, p.A[1]},
		{&proof.Bs.X.A0, p.B[0][0]}, {&proof.Bs.X.A1, p.B[0][1]},
		{&proof.Bs.Y.A0, p.B[1][0]}, {&proof.Bs.Y.A1, p.B[1][1]},
		{&proof.Krs.X, p.C[0]}, {&proof.Krs.Y, p.C[1]},
	}
	for i, c := range coords {
		if c.src.Sign() < 0 || c.src.Cmp(fp.Modulus()) >= 0 {
			return nil, fmt.Errorf("coordinate %d is not a base field element", i)
		}
		c.dst.SetBigInt(c.src)
	}
	if err := checkG1(&proof.Ar); err != nil {
		return nil, fmt.Errorf("A: %w", err)
	}
	if err := checkG1(&proof.Krs); err != nil {
		return nil, fmt.Errorf("C: %w", err)
	}
	if !proof.Bs.IsOnCurve() || !proof.Bs.IsInSubGroup() {
		return nil, fmt.Errorf("B: invalid G2 point")
	}
	return proof, nil
}

func checkG1(p *bn254.G1Affine) error {
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return fmt.Errorf("invalid G1 point")
	}
	return nil
}

// SolidityCalldata contains the arguments expected by the generated Solidity
// verifier and by the registry contract. The G2 coordinates of B are swapped
// because the EVM pairing precompile expects the imaginary part first.
type SolidityCalldata struct {
	A     [2]string    `json:"a"`
	B     [2][2]string `json:"b"`
	C     [2]string    `json:"c"`
	Input []string     `json:"input"`
}

// Calldata returns the Solidity calldata for the proof and the public
// signals provided.
func (p *Proof) Calldata(signals PublicSignals) (*SolidityCalldata, error) {
	if p == nil || p.hasNil() {
		return nil, fmt.Errorf("incomplete proof")
	}
	hex := func(v *big.Int) string { return fmt.Sprintf("0x%064x", v) }
	cd := &SolidityCalldata{
		A: [2]string{hex(p.A[0]), hex(p.A[1])},
		B: [2][2]string{
			{hex(p.B[0][1]), hex(p.B[0][0])},
			{hex(p.B[1][1]), hex(p.B[1][0])},
		},
		C:     [2]string{hex(p.C[0]), hex(p.C[1])},
		Input: make([]string, len(signals)),
	}
	for i, s := range signals {
		if s == nil {
			return nil, fmt.Errorf("%w: signal %d is nil", ErrShapeMismatch, i)
		}
		cd.Input[i] = hex(s)
	}
	return cd, nil
}

// String returns the calldata in the format printed by snarkjs
// zkey export soliditycalldata.
func (cd *SolidityCalldata) String() string {
	quote := func(values []string) string {
		return `["` + strings.Join(values, `","`) + `"]`
	}
	return fmt.Sprintf("%s,[%s,%s],%s,%s",
		quote(cd.A[:]),
		quote(cd.B[0][:]), quote(cd.B[1][:]),
		quote(cd.C[:]),
		quote(cd.Input))
}
