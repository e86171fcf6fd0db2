package circuits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/tokenzk/log"
)

// FrontendError prints msg and the optional trace from inside the circuit
// and makes the circuit unsatisfiable.
func FrontendError(api frontend.API, msg string, trace error) {
	if trace != nil {
		msg = fmt.Sprintf("%s: %v", msg, trace)
	}
	api.Println(msg)
	api.AssertIsEqual(1, 0)
}

// BigIntArrayToN returns arr resized to n elements, with nil and missing
// entries set to zero.
func BigIntArrayToN(arr []*big.Int, n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		if i < len(arr) && arr[i] != nil {
			out[i] = arr[i]
			continue
		}
		out[i] = new(big.Int)
	}
	return out
}

// BigIntArrayToStringArray returns the decimal strings of arr resized to n.
func BigIntArrayToStringArray(arr []*big.Int, n int) []string {
	out := make([]string, n)
	for i, v := range BigIntArrayToN(arr, n) {
		out[i] = v.String()
	}
	return out
}

// Serialize writes the object provided (constraint system, proving key,
// verifying key...) into a byte slice.
func Serialize(obj io.WriterTo) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := obj.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StoreJSON stores the JSON encoding of v in a file.
func StoreJSON(v any, filepath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath, data, 0o644); err != nil {
		return err
	}
	log.Debugw("json written", "path", filepath, "size", len(data))
	return nil
}

// LoadJSON decodes the JSON content of a file into v.
func LoadJSON(filepath string, v any) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error decoding %s: %w", filepath, err)
	}
	return nil
}

// StoreSolidityVerifier exports the verifying key as a Solidity verifier
// contract into a file.
func StoreSolidityVerifier(vkey groth16.VerifyingKey, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer fd.Close()
	if err := vkey.ExportSolidity(fd); err != nil {
		return err
	}
	log.Infow("solidity verifier written", "path", filepath)
	return nil
}
