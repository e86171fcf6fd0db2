package circuits

import (
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func readSnarkjsFixture(c *qt.C, name string) string {
	data, err := os.ReadFile(filepath.Join("testdata", "snarkjs", name))
	c.Assert(err, qt.IsNil)
	return string(data)
}

func TestVerifyCircomProofFixture(t *testing.T) {
	c := qt.New(t)
	vkey := []byte(readSnarkjsFixture(c, "vkey.json"))
	proof, signals, err := Circom2GnarkProof(readSnarkjsFixture(c, "proof.json"),
		readSnarkjsFixture(c, "public_signals.json"))
	c.Assert(err, qt.IsNil)
	c.Assert(signals, qt.HasLen, 1)

	ok, err := verifyCircom(vkey, proof, signals)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// a different public signal does not verify
	v, _ := new(big.Int).SetString(signals[0], 10)
	tampered := []string{new(big.Int).Add(v, big.NewInt(1)).String()}
	ok, err = verifyCircom(vkey, proof, tampered)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	_, err = verifyCircom([]byte("{"), proof, signals)
	c.Assert(err, qt.ErrorMatches, "invalid verification key: .*")
}

func TestVerifyCircomProofShape(t *testing.T) {
	c := qt.New(t)
	vkey := []byte(readSnarkjsFixture(c, "vkey.json"))
	proofJSON := readSnarkjsFixture(c, "proof.json")

	// the fixture carries one signal, token state proofs carry five
	_, err := VerifyCircomProof(vkey, proofJSON, readSnarkjsFixture(c, "public_signals.json"))
	c.Assert(errors.Is(err, ErrShapeMismatch), qt.IsTrue)

	pub, err := json.Marshal([]string{"1", "2", "3", "4", "x"})
	c.Assert(err, qt.IsNil)
	_, err = VerifyCircomProof(vkey, proofJSON, string(pub))
	c.Assert(errors.Is(err, ErrShapeMismatch), qt.IsTrue)

	_, err = VerifyCircomProof(vkey, "not json", string(pub))
	c.Assert(errors.Is(err, ErrShapeMismatch), qt.IsTrue)
}
