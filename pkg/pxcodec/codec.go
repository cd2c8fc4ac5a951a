// Package pxcodec converts text between the single-byte DOS codepages used
// by Paradox files and UTF-8. Encodings are named the way the file header
// reports them ("CP437", "CP866", ...), and conversion handles are opened
// and closed explicitly, mirroring an iconv-style primitive.
package pxcodec

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// codepages maps the "CP<n>" names found in Paradox headers to their
// character maps. Anything outside this table is an unsupported encoding.
var codepages = map[string]encoding.Encoding{
	"CP437":  charmap.CodePage437,
	"CP850":  charmap.CodePage850,
	"CP852":  charmap.CodePage852,
	"CP866":  charmap.CodePage866,
	"CP1250": charmap.Windows1250,
	"CP1251": charmap.Windows1251,
	"CP1252": charmap.Windows1252,
	"CP1256": charmap.Windows1256,
}

// Converter is an open conversion handle from a source encoding to a
// target encoding. A closed converter rejects further use.
type Converter struct {
	source string
	target string
	dec    *encoding.Decoder
	enc    *encoding.Encoder
	closed bool
}

// Open returns a conversion handle that converts text from the source
// encoding to the target encoding. "UTF-8" is accepted on either side;
// everything else must be a known "CP<n>" name.
func Open(target, source string) (*Converter, error) {
	src, err := lookup(source)
	if err != nil {
		return nil, err
	}
	dst, err := lookup(target)
	if err != nil {
		return nil, err
	}
	return &Converter{
		source: source,
		target: target,
		dec:    src.NewDecoder(),
		enc:    dst.NewEncoder(),
	}, nil
}

// Decode converts raw bytes in the source encoding into a string in the
// target encoding.
func (c *Converter) Decode(b []byte) (string, error) {
	if c.closed {
		return "", fmt.Errorf("conversion handle %s->%s is closed", c.source, c.target)
	}
	u, err := c.dec.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s text: %w", c.source, err)
	}
	out, err := c.enc.Bytes(u)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s text: %w", c.target, err)
	}
	return string(out), nil
}

// Close releases the conversion handle. Closing twice is a no-op.
func (c *Converter) Close() {
	c.closed = true
	c.dec = nil
	c.enc = nil
}

func lookup(name string) (encoding.Encoding, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "UTF-8" || upper == "UTF8" {
		return unicode.UTF8, nil
	}
	if enc, ok := codepages[upper]; ok {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported encoding: %s", name)
}

// CodepageName formats a numeric codepage the way the Paradox header
// reports it.
func CodepageName(n int) string {
	return fmt.Sprintf("CP%d", n)
}
