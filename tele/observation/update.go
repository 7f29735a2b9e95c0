// Package observation turns ProductUpdate payloads into typed charger observations.
// Decoding is two steps: Parse the string value by declared DataType into Data,
// then Classify (code, Data) into Observation. Both steps do no I/O.
package observation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/juju/errors"
)

type DataType uint8

const (
	TypeBoolean DataType = 2
	TypeDouble  DataType = 3
	TypeInteger DataType = 4
	TypeString  DataType = 6
)

func (t DataType) String() string {
	switch t {
	case TypeBoolean:
		return "Boolean"
	case TypeDouble:
		return "Double"
	case TypeInteger:
		return "Integer"
	case TypeString:
		return "String"
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

func (t DataType) Valid() bool {
	switch t {
	case TypeBoolean, TypeDouble, TypeInteger, TypeString:
		return true
	}
	return false
}

func (t *DataType) UnmarshalJSON(b []byte) error {
	var n uint8
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Annotatef(err, "dataType=%s", b)
	}
	if !DataType(n).Valid() {
		return errors.NotValidf("dataType=%d", n)
	}
	*t = DataType(n)
	return nil
}

// ProductUpdate is the single argument of ProductUpdate invocation.
type ProductUpdate struct {
	DataType  DataType  `json:"dataType"`
	ID        uint16    `json:"id"`
	MID       string    `json:"mid"`
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

var productUpdateKeys = []string{"dataType", "id", "mid", "timestamp", "value"}

// UnmarshalProductUpdate requires every key present and not null.
func UnmarshalProductUpdate(raw json.RawMessage) (ProductUpdate, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ProductUpdate{}, errors.Annotate(err, "ProductUpdate")
	}
	for _, key := range productUpdateKeys {
		if v, ok := obj[key]; !ok || string(bytes.TrimSpace(v)) == "null" {
			return ProductUpdate{}, errors.NotValidf("ProductUpdate missing %s", key)
		}
	}
	var pu ProductUpdate
	if err := json.Unmarshal(raw, &pu); err != nil {
		return ProductUpdate{}, errors.Annotate(err, "ProductUpdate")
	}
	return pu, nil
}

// Data is one of Boolean, Double, Integer, String.
type Data interface {
	DataType() DataType
	String() string
}

type Boolean bool
type Double float64
type Integer int64
type String string

func (Boolean) DataType() DataType { return TypeBoolean }
func (Double) DataType() DataType  { return TypeDouble }
func (Integer) DataType() DataType { return TypeInteger }
func (String) DataType() DataType  { return TypeString }

func (d Boolean) String() string { return strconv.FormatBool(bool(d)) }
func (d Double) String() string  { return strconv.FormatFloat(float64(d), 'g', -1, 64) }
func (d Integer) String() string { return strconv.FormatInt(int64(d), 10) }
func (d String) String() string  { return string(d) }

// ValueError reports value string not parseable as declared type.
type ValueError struct {
	Value string
	Type  DataType
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("cannot parse value=%q as %s: %v", e.Value, e.Type, e.Err)
}
func (e *ValueError) Unwrap() error { return e.Err }

// ParseValue parses s by declared type. Boolean is integer on the wire, nonzero is true.
func ParseValue(t DataType, s string) (Data, error) {
	switch t {
	case TypeBoolean:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, &ValueError{Value: s, Type: t, Err: err}
		}
		return Boolean(n != 0), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ValueError{Value: s, Type: t, Err: err}
		}
		return Double(f), nil
	case TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, &ValueError{Value: s, Type: t, Err: err}
		}
		return Integer(n), nil
	case TypeString:
		return String(s), nil
	}
	return nil, &ValueError{Value: s, Type: t, Err: errors.NotValidf("data type")}
}

func Parse(pu ProductUpdate) (Data, error) { return ParseValue(pu.DataType, pu.Value) }

// Decode is Parse followed by Classify.
func Decode(pu ProductUpdate) (Observation, error) {
	d, err := Parse(pu)
	if err != nil {
		return nil, err
	}
	return Classify(pu.ID, d), nil
}
