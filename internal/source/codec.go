package source

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Compression algorithms for stored measurement documents
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// Codec encodes measurement documents as JSON, optionally snappy-compressed.
// Decoding accepts both forms so a store can hold documents written under
// either setting.
type Codec struct {
	compress bool
}

// NewCodec creates a codec for the named compression
func NewCodec(compression string) (*Codec, error) {
	switch compression {
	case "", CompressionNone:
		return &Codec{}, nil
	case CompressionSnappy:
		return &Codec{compress: true}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// Encode serializes a measurement
func (c *Codec) Encode(m Measurement) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode measurement: %w", err)
	}
	if !c.compress {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

// Decode parses a measurement in either encoding
func (c *Codec) Decode(data []byte) (Measurement, error) {
	var m Measurement
	if len(data) == 0 {
		return m, fmt.Errorf("empty measurement document")
	}

	// A snappy block may also begin with '{' when its length varint is 123,
	// so a failed JSON parse falls through to snappy.
	if data[0] == '{' {
		if err := json.Unmarshal(data, &m); err == nil {
			return m, nil
		}
	}

	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return m, fmt.Errorf("snappy decompress failed: %w", err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("failed to decode measurement: %w", err)
	}
	return m, nil
}
