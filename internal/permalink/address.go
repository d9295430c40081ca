package permalink

import (
	"fmt"
	"strings"
)

// Mode selects where in the address the params live.
type Mode int

const (
	// ModeQuery keeps params in the query string: /page?zoom=5.
	ModeQuery Mode = iota
	// ModeHash keeps params in the fragment: /page#zoom=5.
	ModeHash
	// ModeNestedHash supports hash routing: /#/route?zoom=5. Without the
	// "/#/" marker it behaves like ModeHash.
	ModeNestedHash
)

// routeMarker separates the page from a hash-routed route.
const routeMarker = "/#/"

var modeNames = map[Mode]string{
	ModeQuery:      "query",
	ModeHash:       "hash",
	ModeNestedHash: "nested",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "query", "hash" or "nested".
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return ModeQuery, fmt.Errorf("unknown addressing mode %q", s)
}

// Resolver extracts params and base URLs from addresses, and builds
// addresses back from them.
type Resolver struct {
	Mode Mode
	// Storage, when set, overrides the address as the params source.
	Storage Storage
}

// nested reports whether href is resolved relative to a hash route.
func (r Resolver) nested(href string) bool {
	return r.Mode == ModeNestedHash && strings.Contains(href, routeMarker)
}

// fragment reports whether params are written after '#'.
func (r Resolver) fragment(href string) bool {
	return r.Mode != ModeQuery && !r.nested(href)
}

// RawParams returns the unparsed param string of href.
func (r Resolver) RawParams(href string) string {
	switch {
	case r.nested(href):
		return routeQuery(href)
	case r.Mode == ModeQuery:
		page, _, _ := strings.Cut(href, "#")
		_, q, _ := strings.Cut(page, "?")
		return q
	default:
		_, frag, _ := strings.Cut(href, "#")
		return frag
	}
}

// CurrentParams returns the params for href. A configured Storage takes
// precedence over href regardless of mode. An empty store yields empty
// params; a failing one yields empty params and the error.
func (r Resolver) CurrentParams(href string) (*Params, error) {
	if r.Storage != nil {
		raw, ok, err := r.Storage.Load()
		if err != nil {
			return &Params{}, err
		}
		if !ok {
			return &Params{}, nil
		}
		return ParseQuery(raw), nil
	}
	return ParseQuery(r.RawParams(href)), nil
}

// BaseURL strips the param-carrying parts of href. Under nested routing
// the "/#/route" segment is kept.
func (r Resolver) BaseURL(href string) string {
	if r.nested(href) {
		prefix, route, _ := strings.Cut(href, routeMarker)
		route, _, _ = strings.Cut(route, "#")
		route, _, _ = strings.Cut(route, "?")
		return prefix + routeMarker + route
	}
	page, _, _ := strings.Cut(href, "#")
	if r.Mode == ModeQuery {
		page, _, _ = strings.Cut(page, "?")
	}
	return page
}

// BuildAddress joins base and the encoded params with the mode's
// separator.
func (r Resolver) BuildAddress(base string, params *Params) string {
	sep := "?"
	if r.fragment(base) {
		sep = "#"
	}
	return base + sep + params.Encode()[1:]
}

// routeQuery returns the query of the route following the first "#/",
// ignoring any fragment after it.
func routeQuery(href string) string {
	s := strings.Replace(href, "#/", "", 1)
	s, _, _ = strings.Cut(s, "#")
	_, q, _ := strings.Cut(s, "?")
	return q
}
