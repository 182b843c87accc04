// Package textenc decodes statement files from their declared character encoding to UTF-8.
package textenc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewReader wraps r so that it yields UTF-8 text.
// name is a WHATWG encoding label ("windows-1252", "cp1252", "iso-8859-2", ...).
// "utf-8-sig" and "utf-8" both drop a leading byte order mark; an empty name means UTF-8.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	switch label {
	case "", "utf-8", "utf8", "utf-8-sig", "utf_8_sig":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Valid reports whether name can be decoded by NewReader.
func Valid(name string) bool {
	_, err := NewReader(strings.NewReader(""), name)
	return err == nil
}
