package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\uFEFF"

// File is a named byte blob submitted next to (or instead of) free text.
// Content is opened lazily so multipart uploads are only read when counted.
type File struct {
	Name string
	Size int64

	open func() (io.ReadCloser, error)
}

// NewFile wraps in-memory content.
func NewFile(name string, data []byte) File {
	return File{
		Name: name,
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// NewFileFunc wraps an arbitrary content source.
func NewFileFunc(name string, size int64, open func() (io.ReadCloser, error)) File {
	return File{Name: name, Size: size, open: open}
}

// FileFromHeader wraps an uploaded multipart part.
func FileFromHeader(fh *multipart.FileHeader) File {
	return File{
		Name: fh.Filename,
		Size: fh.Size,
		open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FileFromPath wraps a file on disk. The display name is the base name.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Open returns a reader over the file content.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, errors.New("file has no content source")
	}

	return f.open()
}

// Bytes reads the whole file.
func (f File) Bytes() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", f.Name, err)
	}

	return data, nil
}

// Text reads the file and decodes it as UTF-8 the way browsers do:
// a leading byte order mark is dropped and invalid sequences become U+FFFD.
func (f File) Text() (string, error) {
	data, err := f.Bytes()
	if err != nil {
		return "", err
	}

	return DecodeText(data), nil
}

// DecodeText converts raw bytes to text with browser UTF-8 decoding rules:
// each maximal invalid subsequence becomes a single U+FFFD.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	var b strings.Builder
	b.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			size = invalidPrefixLen(data)
			b.WriteRune(utf8.RuneError)
		} else {
			b.Write(data[:size])
		}

		data = data[size:]
	}

	return b.String()
}

// invalidPrefixLen returns the length of the ill-formed sequence at the
// start of b: a lead byte plus the continuation bytes that were still
// acceptable for it.
func invalidPrefixLen(b []byte) int {
	lo, hi := byte(0x80), byte(0xBF)

	var need int

	switch c := b[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) && lo <= b[n] && b[n] <= hi {
		n++
		lo, hi = 0x80, 0xBF
	}

	return n
}
