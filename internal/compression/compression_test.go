package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Snappy(t *testing.T) {
	payload := []byte(strings.Repeat(`{"timestamp":1700000000000,"value":42.5},`, 200))

	frame, err := Frame(Snappy, payload)
	require.NoError(t, err)

	assert.Equal(t, byte(Snappy), frame[0])
	assert.Less(t, len(frame), len(payload))

	data, algo, err := Unframe(frame)
	require.NoError(t, err)
	assert.Equal(t, Snappy, algo)
	assert.True(t, bytes.Equal(payload, data))
}

func TestFrame_None(t *testing.T) {
	frame, err := Frame(None, []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0}, "plain"...), frame)

	data, algo, err := Unframe(frame)
	require.NoError(t, err)
	assert.Equal(t, None, algo)
	assert.Equal(t, "plain", string(data))
}

func TestFrameAbove(t *testing.T) {
	small, err := FrameAbove(1024, []byte("tiny"))
	require.NoError(t, err)
	assert.Equal(t, byte(None), small[0])

	large, err := FrameAbove(16, bytes.Repeat([]byte("a"), 64))
	require.NoError(t, err)
	assert.Equal(t, byte(Snappy), large[0])
}

func TestFrame_EmptyPayload(t *testing.T) {
	frame, err := Frame(Snappy, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(Snappy)}, frame)

	data, _, err := Unframe(frame)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestUnframe_Errors(t *testing.T) {
	_, _, err := Unframe(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, _, err = Unframe([]byte{9, 1, 2})
	assert.Error(t, err, "unknown header byte")

	_, _, err = Unframe([]byte{byte(Snappy), 0xff, 0xff, 0xff})
	assert.Error(t, err, "corrupt snappy body")
}

func TestFrame_UnknownAlgorithm(t *testing.T) {
	_, err := Frame(Algorithm(7), []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, algo, err := Unframe([]byte{7, 'x'})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Equal(t, Algorithm(7), algo)

	assert.Equal(t, "none", None.String())
	assert.Equal(t, "snappy", Snappy.String())
	assert.Equal(t, "unknown(7)", Algorithm(7).String())
}
