// Package compression frames message payloads with a one-byte algorithm
// header so producers may compress and consumers can always decode.
package compression

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// Algorithm is the frame header byte
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

var (
	// ErrEmptyFrame is returned when a frame has no header byte
	ErrEmptyFrame = errors.New("empty frame")
	// ErrUnknownAlgorithm is returned for a header byte with no codec
	ErrUnknownAlgorithm = errors.New("unknown compression algorithm")
)

type codec struct {
	encode func([]byte) []byte
	decode func([]byte) ([]byte, error)
}

var codecs = map[Algorithm]codec{
	None: {
		encode: func(b []byte) []byte { return b },
		decode: func(b []byte) ([]byte, error) { return b, nil },
	},
	Snappy: {
		// An empty body stays empty so a bare header byte is a valid frame
		encode: func(b []byte) []byte {
			if len(b) == 0 {
				return b
			}
			return snappy.Encode(nil, b)
		},
		decode: func(b []byte) ([]byte, error) {
			if len(b) == 0 {
				return b, nil
			}
			out, err := snappy.Decode(nil, b)
			if err != nil {
				return nil, fmt.Errorf("snappy decode failed: %w", err)
			}
			return out, nil
		},
	},
}

// String returns the algorithm name
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

func lookup(algo Algorithm) (codec, error) {
	c, ok := codecs[algo]
	if !ok {
		return codec{}, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algo)
	}
	return c, nil
}

// Frame encodes data with algo and prefixes the header byte
func Frame(algo Algorithm, data []byte) ([]byte, error) {
	c, err := lookup(algo)
	if err != nil {
		return nil, err
	}

	body := c.encode(data)
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(algo))
	return append(out, body...), nil
}

// FrameAbove uses Snappy only when data is at least minSize bytes
func FrameAbove(minSize int, data []byte) ([]byte, error) {
	if len(data) < minSize {
		return Frame(None, data)
	}
	return Frame(Snappy, data)
}

// Unframe reads the header byte and returns the decoded payload
func Unframe(frame []byte) ([]byte, Algorithm, error) {
	if len(frame) == 0 {
		return nil, None, ErrEmptyFrame
	}

	algo := Algorithm(frame[0])
	c, err := lookup(algo)
	if err != nil {
		return nil, algo, err
	}

	data, err := c.decode(frame[1:])
	if err != nil {
		return nil, algo, err
	}
	return data, algo, nil
}
