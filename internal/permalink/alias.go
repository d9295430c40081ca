package permalink

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Hash is the base-31 polynomial string hash over UTF-16 code units with
// 32-bit wrap-around. A negative sum is mapped to h+0xFFFFFFFF, one short
// of the two's-complement value; links saved with existing aliases depend
// on that offset.
func Hash(s string) uint32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	if h < 0 {
		return uint32(int64(h) + 0xFFFFFFFF)
	}
	return uint32(h)
}

// UniqueToken returns the base-32 hash of s followed by its UTF-16 length
// times four in hex, zero-padded to three digits.
func UniqueToken(s string) string {
	n := len(utf16.Encode([]rune(s)))
	return strconv.FormatUint(uint64(Hash(s)), 32) + fmt.Sprintf("%03x", n*4)
}

// ShortestUniquePrefix returns the shortest prefix of token, at least two
// characters long, that no token in all other than all[self] contains.
// If every prefix collides the full token is returned. Characters outside
// [a-zA-Z0-9] are stripped from the result.
func ShortestUniquePrefix(token string, all []string, self int) string {
	prefix := token
	for n := 2; n <= len(token); n++ {
		candidate := token[:n]
		if !containedElsewhere(candidate, all, self) {
			prefix = candidate
			break
		}
	}
	return stripNonAlnum(prefix)
}

func containedElsewhere(s string, all []string, self int) bool {
	for i, t := range all {
		if i != self && strings.Contains(t, s) {
			return true
		}
	}
	return false
}

func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			return r
		}
		return -1
	}, s)
}

// reservedKeys are owned by the view and base layer syncers.
var reservedKeys = []string{KeyZoom, KeyLat, KeyLon, KeyBaseLayer}

// AliasTable maps overlay ids to short, pairwise distinct aliases. No
// alias equals a reserved key or the id of another entry, so an overlay's
// raw key never reads or clears another overlay's flag. It is computed
// once for a fixed catalog.
type AliasTable struct {
	ids     []string
	aliases map[string]string
	byAlias map[string]string
}

// NewAliasTable computes aliases for ids. Duplicate ids share one alias.
func NewAliasTable(ids []string) *AliasTable {
	t := &AliasTable{
		aliases: make(map[string]string, len(ids)),
		byAlias: make(map[string]string, len(ids)),
	}
	for _, id := range ids {
		if _, ok := t.aliases[id]; ok {
			continue
		}
		t.aliases[id] = ""
		t.ids = append(t.ids, id)
	}

	tokens := make([]string, len(t.ids))
	for i, id := range t.ids {
		tokens[i] = UniqueToken(id)
	}
	for i, id := range t.ids {
		a := t.pick(id, tokens[i], ShortestUniquePrefix(tokens[i], tokens, i))
		t.aliases[id] = a
		t.byAlias[a] = id
	}
	return t
}

// pick returns prefix when it is free for id. Otherwise it tries longer
// prefixes of token, then token with a numeric suffix. Equal tokens
// ("Aa" and "BB") end up here.
func (t *AliasTable) pick(id, token, prefix string) string {
	if t.free(id, prefix) {
		return prefix
	}
	for n := len(prefix) + 1; n <= len(token); n++ {
		if c := stripNonAlnum(token[:n]); t.free(id, c) {
			return c
		}
	}
	for k := 2; ; k++ {
		if c := stripNonAlnum(token) + strconv.Itoa(k); t.free(id, c) {
			return c
		}
	}
}

func (t *AliasTable) free(id, key string) bool {
	if key == "" || slices.Contains(reservedKeys, key) {
		return false
	}
	if owner, ok := t.byAlias[key]; ok && owner != id {
		return false
	}
	if _, isID := t.aliases[key]; isID && key != id {
		return false
	}
	return true
}

// Alias returns the alias of id, or id itself when it is not in the table.
func (t *AliasTable) Alias(id string) string {
	if t == nil {
		return id
	}
	if a, ok := t.aliases[id]; ok {
		return a
	}
	return id
}

// ID resolves an alias back to its id.
func (t *AliasTable) ID(alias string) (string, bool) {
	if t == nil {
		return "", false
	}
	id, ok := t.byAlias[alias]
	return id, ok
}

// IDs returns the ids in catalog order.
func (t *AliasTable) IDs() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}
