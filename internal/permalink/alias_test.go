package permalink_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joeblew999/plat-permalink/internal/permalink"
)

func TestHash(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 3105},
		{"hiking_trails", 1772396852},
		// Negative sums are offset by 0xFFFFFFFF, not 0x100000000.
		{"trails", 3429257004},
		{"labels", 3184549886},
		{"Straßen", 4077731671},
		// Astral runes hash as two UTF-16 code units.
		{"🗺", 1772893},
	}
	for _, tt := range tests {
		if got := permalink.Hash(tt.in); got != tt.want {
			t.Errorf("Hash(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestUniqueToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "0000"},
		{"a", "31004"},
		{"ab", "311008"},
		{"trails", "366cjpc018"},
		{"labels", "2ut0nvu018"},
		{"hiking_trails", "1kq989k034"},
		{"cycle_routes", "32j6j62030"},
		{"🗺", "1m3at008"},
	}
	for _, tt := range tests {
		if got := permalink.UniqueToken(tt.in); got != tt.want {
			t.Errorf("UniqueToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortestUniquePrefix(t *testing.T) {
	tests := []struct {
		name string
		all  []string
		self int
		want string
	}{
		{"two characters suffice", []string{"abcd", "xyzw"}, 0, "ab"},
		{"grows past shared prefix", []string{"abcd", "abxy"}, 0, "abc"},
		{"substring anywhere collides", []string{"abcd", "zzabzz"}, 0, "abc"},
		{"falls back to full token", []string{"abc", "xabcx"}, 0, "abc"},
		{"ignores itself", []string{"abcd", "abcd"}, 1, "abcd"},
		{"strips non-alphanumerics", []string{"ab-c", "abzz"}, 0, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := permalink.ShortestUniquePrefix(tt.all[tt.self], tt.all, tt.self)
			if got != tt.want {
				t.Errorf("ShortestUniquePrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAliasTable(t *testing.T) {
	ids := []string{"trails", "labels", "hiking_trails", "cycle_routes"}
	table := permalink.NewAliasTable(ids)

	want := map[string]string{
		"trails":        "36",
		"labels":        "2u",
		"hiking_trails": "1k",
		"cycle_routes":  "32",
	}
	got := map[string]string{}
	for _, id := range ids {
		got[id] = table.Alias(id)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}

	for id, alias := range want {
		if back, ok := table.ID(alias); !ok || back != id {
			t.Errorf("ID(%q) = %q, %v; want %q", alias, back, ok, id)
		}
	}
	if got := table.Alias("unknown"); got != "unknown" {
		t.Errorf("Alias(unknown) = %q, want the id itself", got)
	}
}

func TestAliasesAreDistinct(t *testing.T) {
	var ids []string
	for _, a := range "abcdefghijklmnopqrstuvwxyz" {
		for _, b := range "abcdefghij" {
			ids = append(ids, "layer_"+string(a)+string(b))
		}
	}
	// equal hash and length
	ids = append(ids, "Aa", "BB")
	table := permalink.NewAliasTable(ids)

	seen := map[string]string{}
	for _, id := range ids {
		alias := table.Alias(id)
		if other, dup := seen[alias]; dup {
			t.Fatalf("alias %q shared by %q and %q", alias, other, id)
		}
		seen[alias] = id
	}
}

func TestAliasNeverShadowsAnotherID(t *testing.T) {
	token := permalink.UniqueToken("trails")
	shadow := token[:2]
	ids := []string{"trails", shadow, "zoom", "lat", "lon", "baselayer"}
	table := permalink.NewAliasTable(ids)

	if got := table.Alias("trails"); got == shadow {
		t.Errorf("Alias(trails) = %q, the id of another overlay", got)
	}
	seen := map[string]string{}
	for _, id := range ids {
		alias := table.Alias(id)
		for _, other := range ids {
			if other != id && alias == other {
				t.Errorf("Alias(%q) = %q, the id of another entry", id, alias)
			}
		}
		for _, key := range []string{"zoom", "lat", "lon", "baselayer"} {
			if alias == key && id != key {
				t.Errorf("Alias(%q) = reserved key %q", id, key)
			}
		}
		if other, dup := seen[alias]; dup {
			t.Errorf("alias %q shared by %q and %q", alias, other, id)
		}
		seen[alias] = id
		if back, ok := table.ID(alias); !ok || back != id {
			t.Errorf("ID(%q) = %q, %v, want %q", alias, back, ok, id)
		}
	}
}

func TestAliasesAreStable(t *testing.T) {
	ids := []string{"trails", "labels", "hiking_trails", "cycle_routes", "Straßen"}
	first := permalink.NewAliasTable(ids)
	second := permalink.NewAliasTable(ids)
	for _, id := range ids {
		if a, b := first.Alias(id), second.Alias(id); a != b {
			t.Errorf("Alias(%q) changed between runs: %q vs %q", id, a, b)
		}
	}
}
