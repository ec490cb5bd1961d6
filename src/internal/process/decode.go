package process

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Decoder turns raw child output into text. Children are asked to write
// UTF-8, but some still emit the console's legacy code page, and some
// output has already been through a UTF-8 -> code page round trip.
type Decoder struct {
	legacy encoding.Encoding
	name   string
}

// DefaultDecoder assumes windows-1252 as the legacy code page
func DefaultDecoder() *Decoder {
	return &Decoder{legacy: charmap.Windows1252, name: "windows-1252"}
}

// NewDecoder resolves codePage by its IANA name (e.g. "windows-1251",
// "IBM866"). An empty name selects the default.
func NewDecoder(codePage string) (*Decoder, error) {
	if codePage == "" {
		return DefaultDecoder(), nil
	}
	enc, err := ianaindex.IANA.Encoding(codePage)
	if err != nil {
		return nil, fmt.Errorf("unknown code page %q: %w", codePage, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("code page %q is not supported", codePage)
	}
	return &Decoder{legacy: enc, name: codePage}, nil
}

// Name returns the legacy code page name
func (d *Decoder) Name() string {
	return d.name
}

// Decode returns the best text rendering of raw:
//   - valid ASCII is returned as is
//   - valid UTF-8 that looks like UTF-8 misread through the legacy code page
//     is re-encoded with that page and used if the result is valid UTF-8
//   - invalid UTF-8 is decoded with the legacy code page
func (d *Decoder) Decode(raw []byte) string {
	if utf8.Valid(raw) {
		s := string(raw)
		if !hasNonASCII(raw) {
			return s
		}
		if fixed, ok := d.reinterpret(s); ok {
			return fixed
		}
		return s
	}

	out, err := d.legacy.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	}
	return string(out)
}

// reinterpret undoes one round of mojibake. Genuine non-ASCII text either
// fails to encode in the legacy page or encodes to bytes that are not valid
// UTF-8, so it is left alone.
func (d *Decoder) reinterpret(s string) (string, bool) {
	b, err := d.legacy.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return "", false
	}
	if !utf8.Valid(b) || !hasNonASCII(b) {
		return "", false
	}
	return string(b), true
}

func hasNonASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return true
		}
	}
	return false
}
