package permalink

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// legacySeparator is the entity-encoded pair separator some pages emit
// when a link was copied out of HTML source.
const legacySeparator = "&amp;"

// ParseQuery parses a flat "k=v&k=v" string. When the legacy "&amp;"
// separator occurs anywhere it is used exclusively. Segments that do not
// split into exactly one key and one value are dropped, and values that
// fail to percent-decode are kept raw.
func ParseQuery(raw string) *Params {
	p := &Params{}
	sep := "&"
	if strings.Contains(raw, legacySeparator) {
		sep = legacySeparator
	}
	for _, seg := range strings.Split(raw, sep) {
		kv := strings.Split(seg, "=")
		if len(kv) != 2 {
			continue
		}
		p.Set(kv[0], decodeComponent(kv[1]))
	}
	return p
}

// Encode serializes the params as "?k=v&k=v" in insertion order. Callers
// that need another leading character strip the "?".
func (p *Params) Encode() string {
	var b strings.Builder
	b.WriteByte('?')
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		v, _ := p.Get(k)
		b.WriteString(encodeComponent(k))
		b.WriteByte('=')
		b.WriteString(encodeComponent(v))
	}
	return b.String()
}

// decodeComponent mirrors decodeURIComponent: '+' is literal, and a bad
// escape or a non-UTF-8 result keeps the input unchanged.
func decodeComponent(s string) string {
	d, err := url.PathUnescape(s)
	if err != nil || !utf8.ValidString(d) {
		return s
	}
	return d
}

// encodeComponent mirrors encodeURIComponent, which leaves
// A-Z a-z 0-9 - _ . ! ~ * ' ( ) unescaped.
func encodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
