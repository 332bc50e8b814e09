package codec

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	values := []any{
		nil,
		true,
		float64(42),
		"hello",
		strings.Repeat("y", 2000),
		[]any{"a", float64(1), false, nil},
		map[string]any{"x": float64(1), "nested": map[string]any{"list": []any{"q"}}},
	}
	policies := []Policy{
		DefaultPolicy(),
		{Enabled: true, Level: 6, Threshold: 0},
		{Enabled: true, Level: 0, Threshold: 0},
		{Enabled: true, Level: 9, Threshold: 16},
	}
	for _, p := range policies {
		for _, v := range values {
			data, err := Encode(v, p)
			require.NoError(t, err)
			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestThresholdBoundary(t *testing.T) {
	p := Policy{Enabled: true, Level: DefaultLevel, Threshold: 64}

	below := bytes.Repeat([]byte("a"), p.Threshold-1)
	data, err := Frame(below, p)
	require.NoError(t, err)
	assert.Equal(t, MarkerRaw, data[0])
	assert.Equal(t, below, data[1:])

	at := bytes.Repeat([]byte("a"), p.Threshold)
	data, err = Frame(at, p)
	require.NoError(t, err)
	assert.Equal(t, MarkerCompressed, data[0])
	out, err := Unframe(data)
	require.NoError(t, err)
	assert.Equal(t, at, out)
}

func TestDisabledNeverCompresses(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 10*DefaultThreshold)
	data, err := Frame(payload, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, MarkerRaw, data[0])
	assert.Len(t, data, len(payload)+1)
}

func TestLargePayloadIsChunked(t *testing.T) {
	// several chunks plus a partial one
	payload := bytes.Repeat([]byte("0123456789abcdef"), (3*chunkSize)/16+7)
	data, err := Frame(payload, Policy{Enabled: true, Level: 1, Threshold: 1})
	require.NoError(t, err)
	assert.Equal(t, MarkerCompressed, data[0])
	assert.Less(t, len(data), len(payload))
	out, err := Unframe(data)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", []byte{}, ErrEmptyPayload},
		{"nil", nil, ErrEmptyPayload},
		{"unknown marker", []byte{7, '1'}, ErrCorruptPayload},
		{"raw garbage", []byte{MarkerRaw, '{', 'x'}, ErrCorruptPayload},
		{"raw empty body", []byte{MarkerRaw}, ErrCorruptPayload},
		{"compressed garbage", []byte{MarkerCompressed, 1, 2, 3, 4}, ErrCorruptPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTruncatedCompressedPayload(t *testing.T) {
	data, err := Encode(strings.Repeat("x", 4096), Policy{Enabled: true, Level: 6, Threshold: 0})
	require.NoError(t, err)
	_, err = Decode(data[:len(data)/2])
	assert.True(t, errors.Is(err, ErrCorruptPayload))
}

func TestMarshalUnsupportedValue(t *testing.T) {
	_, err := Encode(math.Inf(1), DefaultPolicy())
	assert.True(t, errors.Is(err, ErrSerialization))
	_, err = Encode(make(chan int), DefaultPolicy())
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestInvalidLevel(t *testing.T) {
	_, err := Frame(bytes.Repeat([]byte("a"), 10), Policy{Enabled: true, Level: 42})
	assert.Error(t, err)
}

func TestDecodeInto(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	data, err := Encode(user{Name: "ada", Age: 36}, Policy{Enabled: true, Level: 6, Threshold: 0})
	require.NoError(t, err)
	var got user
	require.NoError(t, DecodeInto(data, &got))
	assert.Equal(t, user{Name: "ada", Age: 36}, got)
}
