// Package codec turns structured values into self-describing byte payloads and back.
//
// A framed payload starts with a single marker byte. [MarkerRaw] means the rest of the
// payload is the canonical JSON encoding of the value; [MarkerCompressed] means the rest
// is that encoding compressed with zlib. The marker alone decides how a payload is read,
// so a payload never depends on metadata stored next to it.
package codec

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
)

const (
	// MarkerRaw prefixes a payload that was not compressed.
	MarkerRaw byte = 0
	// MarkerCompressed prefixes a zlib compressed payload.
	MarkerCompressed byte = 1
)

// DefaultLevel is the zlib level used when none is configured.
const DefaultLevel = 6

// DefaultThreshold is the encoded size in bytes below which compression is skipped.
const DefaultThreshold = 1024

// chunkSize bounds how much of the payload is handed to the compressor per write.
const chunkSize = 64 * 1024

var (
	// ErrSerialization is returned when a value cannot be encoded to or decoded from JSON.
	ErrSerialization = errors.New("codec: serialization failed")
	// ErrEmptyPayload is returned when decoding a zero length payload.
	ErrEmptyPayload = errors.New("codec: empty payload")
	// ErrCorruptPayload is returned when a payload has an unknown marker or fails to decompress or decode.
	ErrCorruptPayload = errors.New("codec: corrupt payload")
)

// Policy controls when [Frame] compresses.
type Policy struct {
	// Enabled turns compression on. When false every payload is framed raw.
	Enabled bool
	// Level is the zlib level, 0 (store) through 9 (best).
	Level int
	// Threshold is the encoded length below which compression is skipped.
	Threshold int
}

// DefaultPolicy returns a disabled policy with the default level and threshold.
func DefaultPolicy() Policy {
	return Policy{Enabled: false, Level: DefaultLevel, Threshold: DefaultThreshold}
}

// WithEnabled returns a copy of p with Enabled set to enabled.
func (p Policy) WithEnabled(enabled bool) Policy {
	p.Enabled = enabled
	return p
}

// ShouldCompress reports whether a payload of n encoded bytes is compressed under p.
func (p Policy) ShouldCompress(n int) bool {
	return p.Enabled && n >= p.Threshold
}

// Marshal returns the canonical encoding of v.
func Marshal(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "codec: marshal value"), ErrSerialization)
	}
	return buf, nil
}

// Unmarshal decodes a canonical encoding into out.
func Unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Mark(errors.Wrap(err, "codec: unmarshal value"), ErrSerialization)
	}
	return nil
}

// Frame prefixes an already encoded payload with its marker, compressing it when p says so.
func Frame(payload []byte, p Policy) ([]byte, error) {
	if !p.ShouldCompress(len(payload)) {
		out := make([]byte, 0, len(payload)+1)
		out = append(out, MarkerRaw)
		return append(out, payload...), nil
	}
	var buf bytes.Buffer
	buf.Grow(len(payload)/2 + 1)
	buf.WriteByte(MarkerCompressed)
	w, err := zlib.NewWriterLevel(&buf, p.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "codec: compression level %d", p.Level)
	}
	for off := 0; off < len(payload); off += chunkSize {
		end := min(off+chunkSize, len(payload))
		if _, err := w.Write(payload[off:end]); err != nil {
			return nil, errors.Wrap(err, "codec: compress chunk")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "codec: finish compression")
	}
	return buf.Bytes(), nil
}

// Unframe strips the marker from data and returns the canonical encoding it carries.
func Unframe(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	switch data[0] {
	case MarkerRaw:
		return data[1:], nil
	case MarkerCompressed:
		r, err := zlib.NewReader(bytes.NewReader(data[1:]))
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "codec: open compressed payload"), ErrCorruptPayload)
		}
		defer r.Close()
		var out bytes.Buffer
		if _, err := io.Copy(&out, r); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "codec: decompress payload"), ErrCorruptPayload)
		}
		return out.Bytes(), nil
	default:
		return nil, errors.Wrapf(ErrCorruptPayload, "unknown marker byte %d", data[0])
	}
}

// Encode serializes v and frames it according to p.
func Encode(v any, p Policy) ([]byte, error) {
	payload, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(payload, p)
}

// Decode reverses [Encode], returning the value as generic JSON data
// (nil, bool, float64, string, []any or map[string]any).
func Decode(data []byte) (any, error) {
	var v any
	if err := DecodeInto(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto reverses [Encode] into out.
func DecodeInto(data []byte, out any) error {
	payload, err := Unframe(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Mark(errors.Wrap(err, "codec: decode payload"), ErrCorruptPayload)
	}
	return nil
}
