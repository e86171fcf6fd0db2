package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

// a BN254 scalar field element larger than any machine word
const fieldElement = "21888242871839275222246405745257275088548364400416034343698204186575808495616"

func TestBigIntJSON(t *testing.T) {
	c := qt.New(t)
	v, ok := new(big.Int).SetString(fieldElement, 10)
	c.Assert(ok, qt.IsTrue)
	signals := map[string]*BigInt{"stateId": (*BigInt)(v)}
	data, err := json.Marshal(signals)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `{"stateId":"`+fieldElement+`"}`)

	var decoded map[string]*BigInt
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded["stateId"], qt.DeepEquals, signals["stateId"])

	// hex and empty values are accepted
	c.Assert(json.Unmarshal([]byte(`{"a":"0x6553f100","b":""}`), &decoded), qt.IsNil)
	c.Assert(decoded["a"].MathBigInt().Int64(), qt.Equals, int64(1700000000))
	c.Assert(decoded["b"].MathBigInt().Sign(), qt.Equals, 0)

	c.Assert(json.Unmarshal([]byte(`{"a":"12x"}`), &decoded), qt.ErrorMatches, `invalid big number "12x"`)
}

func TestBigIntCBOR(t *testing.T) {
	c := qt.New(t)
	record := struct {
		Signals []*BigInt `cbor:"0,keyasint"`
	}{Signals: BigIntSlice([]*big.Int{big.NewInt(1), big.NewInt(2000000), big.NewInt(12345)})}
	data, err := cbor.Marshal(record)
	c.Assert(err, qt.IsNil)

	decoded := record
	decoded.Signals = nil
	c.Assert(cbor.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Signals, qt.DeepEquals, record.Signals)

	values := MathBigIntSlice(decoded.Signals)
	c.Assert(values, qt.HasLen, 3)
	c.Assert(values[1].Int64(), qt.Equals, int64(2000000))
}

func TestBigIntNil(t *testing.T) {
	c := qt.New(t)
	var i *BigInt
	c.Assert(i.String(), qt.Equals, "0")
	text, err := i.MarshalText()
	c.Assert(err, qt.IsNil)
	c.Assert(string(text), qt.Equals, "0")
	c.Assert(i.UnmarshalText([]byte("1")), qt.IsNotNil)
}
