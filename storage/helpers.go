package storage

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/tokenzk/crypto/field"
)

// encMode produces canonical cbor, so equal records always encode to the
// same bytes.
var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func encodeArtifact(a any) ([]byte, error) {
	return encMode.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// stateKey is the 32 bytes big-endian form of a state identifier.
func stateKey(stateID *big.Int) []byte {
	return field.Bytes(stateID)
}
