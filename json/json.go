// Package json wraps jsoniter with struct-default population, so config and
// response types declared with `default` tags serialize fully formed.
package json

import (
	"io"

	"github.com/creasty/defaults"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal applies struct defaults to v, then encodes it.
func Marshal(v any) ([]byte, error) {
	if err := defaults.Set(v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Unmarshal decodes data into v, then fills unset fields from defaults.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return defaults.Set(v)
}

// Encoder wraps jsoniter's streaming encoder.
type Encoder struct {
	*jsoniter.Encoder
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{Encoder: json.NewEncoder(w)}
}

// Encode applies struct defaults to v, then streams it.
func (e *Encoder) Encode(v any) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return e.Encoder.Encode(v)
}

// Decoder wraps jsoniter's streaming decoder.
type Decoder struct {
	*jsoniter.Decoder
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{Decoder: json.NewDecoder(r)}
}

// Decode streams into v, then fills unset fields from defaults.
func (d *Decoder) Decode(v any) error {
	if err := d.Decoder.Decode(v); err != nil {
		return err
	}
	return defaults.Set(v)
}
