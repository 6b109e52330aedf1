// Package compress measures how large data becomes under brotli, gzip and
// deflate, and builds the matching streaming encoders.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Algorithm names a supported compression algorithm.
type Algorithm string

const (
	Brotli  Algorithm = "brotli"
	Gzip    Algorithm = "gzip"
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm in display order.
var Algorithms = []Algorithm{Brotli, Gzip, Deflate}

// LevelRange is an inclusive range of compression levels.
type LevelRange struct {
	Min int
	Max int
}

// Contains reports whether level lies within the range.
func (r LevelRange) Contains(level int) bool {
	return level >= r.Min && level <= r.Max
}

var (
	BrotliLevels  = LevelRange{Min: 0, Max: 11}
	GzipLevels    = LevelRange{Min: 0, Max: 9}
	DeflateLevels = LevelRange{Min: 0, Max: 9}
)

// Range returns the level range of alg.
func Range(alg Algorithm) (LevelRange, error) {
	switch alg {
	case Brotli:
		return BrotliLevels, nil
	case Gzip:
		return GzipLevels, nil
	case Deflate:
		return DeflateLevels, nil
	default:
		return LevelRange{}, fmt.Errorf("unknown compression algorithm: %s", alg)
	}
}

// NewWriter returns an encoder for alg writing into w.
func NewWriter(w io.Writer, alg Algorithm, level int) (io.WriteCloser, error) {
	rng, err := Range(alg)
	if err != nil {
		return nil, err
	}

	if !rng.Contains(level) {
		return nil, fmt.Errorf("invalid %s level %d: must be between %d and %d", alg, level, rng.Min, rng.Max)
	}

	switch alg {
	case Brotli:
		return brotli.NewWriterLevel(w, level), nil
	case Gzip:
		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}

		return gz, nil
	default:
		fw, err := flate.NewWriter(w, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create deflate writer: %w", err)
		}

		return fw, nil
	}
}

type countingWriter struct {
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// Size compresses data with alg at level and returns the compressed length.
// The output is counted, not kept.
func Size(alg Algorithm, level int, data []byte) (int, error) {
	var cw countingWriter

	w, err := NewWriter(&cw, alg, level)
	if err != nil {
		return 0, err
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("failed to compress with %s: %w", alg, err)
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish %s stream: %w", alg, err)
	}

	return cw.n, nil
}
