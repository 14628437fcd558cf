// Package source opens input files as decoded UTF-8 text streams.
//
// The encoding label is an input, decided by an external collaborator or the
// operator; this package only performs the decode. Labels cover the set the
// original tool cycles through on this data.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingFor maps a config label to a decoder. The empty label means UTF-8.
func EncodingFor(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-sig", "utf8-sig":
		return unicode.UTF8BOM, nil
	case "cp1251", "windows-1251":
		return charmap.Windows1251, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("source: unsupported encoding %q", label)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// NewReader wraps r with a decoder for the given encoding label.
func NewReader(r io.Reader, encLabel string) (io.Reader, error) {
	enc, err := EncodingFor(encLabel)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Open opens path decoded from encLabel to UTF-8.
func Open(path, encLabel string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dec, err := NewReader(f, encLabel)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &readCloser{Reader: dec, Closer: f}, nil
}
