package source

// decode.go turns a raw byte stream into UTF-8 text for the delimited reader.
//
// The chain, outermost last:
//
//   - BOM handling: a UTF-8 or UTF-16 byte order mark is consumed and, for
//     UTF-16, selects the decoder regardless of the configured charset
//   - Charset decoding: the configured label (gbk, windows-1252, shift_jis...)
//     is decoded to UTF-8; the default is UTF-8 itself
//   - Ill-formed input: invalid UTF-8 is replaced with U+FFFD instead of
//     failing the pass
//   - Counting: bytes consumed from the underlying reader, for progress

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LookupEncoding resolves a WHATWG/IANA charset label. The empty label and
// "utf-8" resolve to UTF-8 with replacement of ill-formed bytes.
func LookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	switch label {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-sig", "utf8-sig":
		return unicode.UTF8BOM, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return enc, nil
}

// CountingReader tracks bytes read from the wrapped reader.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

// NewCountingReader wraps r. total may be 0 when the size is unknown.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100), or 0 when the
// total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// Decode wraps r so that it yields UTF-8 text.
//
// Counting sits closest to the source so progress reflects bytes on disk,
// not decoded bytes.
func Decode(r io.Reader, label string, total int64) (io.Reader, *CountingReader, error) {
	enc, err := LookupEncoding(label)
	if err != nil {
		return nil, nil, err
	}

	counter := NewCountingReader(r, total)
	dec := unicode.BOMOverride(enc.NewDecoder())
	return transform.NewReader(counter, dec), counter, nil
}
