// Package encoding provides text decoding for mesh source files.
package encoding

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sourceDecoder honours a leading byte order mark (UTF-8 or UTF-16) and
// otherwise treats input as UTF-8. Invalid UTF-8 is replaced with U+FFFD.
func sourceDecoder() transform.Transformer {
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

// NewSourceReader wraps r so that exporters writing a BOM or UTF-16 text
// produce the same UTF-8 stream as plain files.
func NewSourceReader(r io.Reader) io.Reader {
	return transform.NewReader(r, sourceDecoder())
}
