package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResult(t *testing.T, v any) Result {
	t.Helper()
	raw, err := Marshal(v)
	require.NoError(t, err)
	return NewResult(raw)
}

func TestResultScalars(t *testing.T) {
	i, err := mustResult(t, int32(-5)).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(-5), i)

	u, err := mustResult(t, uint32(9)).Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), u)

	b, err := mustResult(t, true).Bool()
	require.NoError(t, err)
	assert.True(t, b)

	s, err := mustResult(t, "accelerometersensor").String()
	require.NoError(t, err)
	assert.Equal(t, "accelerometersensor", s)
}

func TestResultEmpty(t *testing.T) {
	var r Result
	assert.True(t, r.IsEmpty())

	_, err := r.Int()
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = r.Bool()
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestResultDecodeStruct(t *testing.T) {
	type rng struct {
		Min float64 `cbor:"1,keyasint"`
		Max float64 `cbor:"2,keyasint"`
	}

	res := mustResult(t, rng{Min: -2, Max: 2})

	var got rng
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, rng{Min: -2, Max: 2}, got)
}

func TestResultTypeMismatch(t *testing.T) {
	_, err := mustResult(t, "not a number").Int()
	assert.Error(t, err)
}
