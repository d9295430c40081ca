package permalink_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joeblew999/plat-permalink/internal/permalink"
)

func TestAddToAppliesAddress(t *testing.T) {
	loc := newLocation("https://host/map#zoom=5&lat=10&lon=20&baselayer=satellite&36=t&2u=t")
	p, _ := newPermalink(permalink.Config{Mode: permalink.ModeHash, Location: loc})
	m := newViewport(osm, trails)

	p.AddTo(m)

	if got, want := m.Zoom(), 5.0; got != want {
		t.Errorf("zoom = %v, want %v", got, want)
	}
	if got, want := m.Center(), (orb.Point{20, 10}); got != want {
		t.Errorf("center = %v, want %v", got, want)
	}
	var ids []string
	for _, l := range m.Layers() {
		ids = append(ids, l.ID)
	}
	if diff := cmp.Diff([]string{"trails", "satellite", "labels"}, ids); diff != "" {
		t.Errorf("layers mismatch (-want +got):\n%s", diff)
	}
	want := "https://host/map#zoom=5&lat=10&lon=20&baselayer=satellite&36=t&2u=t&32=f"
	if got := p.Href(); got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}
	if p.State() != permalink.Idle {
		t.Errorf("State() = %v after AddTo", p.State())
	}
}

func TestIngestAddressIsIdempotent(t *testing.T) {
	loc := newLocation("https://host/map#zoom=5&lat=10&lon=20")
	reg := prometheus.NewRegistry()
	p, _ := newPermalink(permalink.Config{
		Mode:     permalink.ModeHash,
		Location: loc,
		Metrics:  permalink.NewMetrics(reg),
	})
	m := newViewport(osm)
	p.AddTo(m)

	var notified int
	p.OnUpdate(func(*permalink.Params) { notified++ })

	loc.navigate("https://host/map#zoom=3&lat=1&lon=2")
	p.IngestAddress()
	p.IngestAddress()

	if notified != 1 {
		t.Errorf("subscribers notified %d times, want 1", notified)
	}
	if got, want := m.Zoom(), 3.0; got != want {
		t.Errorf("zoom = %v, want %v", got, want)
	}
	if got, want := p.Href(), "https://host/map#zoom=3&lat=1&lon=2"; got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}

	expected := `
# HELP permalink_ingests_total Total number of address ingests by outcome
# TYPE permalink_ingests_total counter
permalink_ingests_total{result="changed"} 1
permalink_ingests_total{result="unchanged"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "permalink_ingests_total"); err != nil {
		t.Error(err)
	}
}

func TestOwnAddressWritesAreNotIngested(t *testing.T) {
	loc := newLocation("https://host/map#zoom=5&lat=10&lon=20")
	reg := prometheus.NewRegistry()
	p, _ := newPermalink(permalink.Config{
		Mode:          permalink.ModeHash,
		Location:      loc,
		WriteLocation: true,
		Metrics:       permalink.NewMetrics(reg),
	})
	m := newViewport(osm)
	p.AddTo(m)
	m.AddLayer(trails)

	want := "https://host/map#zoom=5&lat=10&lon=20&baselayer=osm&36=t&2u=f&32=f"
	if got := loc.Href(); got != want {
		t.Errorf("location = %q, want %q", got, want)
	}
	if got := p.Href(); got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}
	if got := len(loc.replaced); got != 3 {
		t.Errorf("location replaced %d times, want 3: %q", got, loc.replaced)
	}

	expected := `
# HELP permalink_ingests_total Total number of address ingests by outcome
# TYPE permalink_ingests_total counter
permalink_ingests_total{result="skipped"} 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "permalink_ingests_total"); err != nil {
		t.Error(err)
	}
}

func TestExternalNavigationIsIngested(t *testing.T) {
	loc := newLocation("https://host/map#zoom=5&lat=10&lon=20")
	p, _ := newPermalink(permalink.Config{
		Mode:          permalink.ModeHash,
		Location:      loc,
		WriteLocation: true,
	})
	m := newViewport(osm)
	p.AddTo(m)

	loc.navigate("https://host/map#zoom=3&lat=1&lon=2&baselayer=topo&36=t")

	if got, want := m.Center(), (orb.Point{2, 1}); got != want {
		t.Errorf("center = %v, want %v", got, want)
	}
	if !m.HasLayer(topo) || m.HasLayer(osm) {
		t.Errorf("base layer not switched to topo: %v", m.Layers())
	}
	if !m.HasLayer(trails) {
		t.Error("trails overlay not shown")
	}
	if p.State() != permalink.Idle {
		t.Errorf("State() = %v after ingest", p.State())
	}
}

func TestBaseURLChangeIsAnnounced(t *testing.T) {
	loc := newLocation("https://host/map#zoom=5&lat=10&lon=20")
	p, _ := newPermalink(permalink.Config{Mode: permalink.ModeHash, Location: loc})
	m := newViewport(osm)
	p.AddTo(m)

	var addresses []string
	var updates int
	p.OnAddress(func(href string) { addresses = append(addresses, href) })
	p.OnUpdate(func(*permalink.Params) { updates++ })

	moved := strings.Replace(p.Href(), "/map#", "/atlas#", 1)
	loc.navigate(moved)

	if got := p.Href(); got != moved {
		t.Errorf("Href() = %q, want %q", got, moved)
	}
	if got := p.BaseURL(); got != "https://host/atlas" {
		t.Errorf("BaseURL() = %q", got)
	}
	if diff := cmp.Diff([]string{moved}, addresses); diff != "" {
		t.Errorf("announced addresses mismatch (-want +got):\n%s", diff)
	}
	if updates != 0 {
		t.Errorf("params subscribers notified %d times for a base URL change", updates)
	}
}

func TestQueryModeIgnoresAddressChanges(t *testing.T) {
	loc := newLocation("https://host/map?zoom=5&lat=10&lon=20")
	p, _ := newPermalink(permalink.Config{Mode: permalink.ModeQuery, Location: loc})
	m := newViewport(osm)
	p.AddTo(m)

	loc.navigate("https://host/map?zoom=3&lat=1&lon=2")

	if got, want := m.Zoom(), 5.0; got != want {
		t.Errorf("zoom = %v, want %v", got, want)
	}
	if got, _ := p.Params().Get(permalink.KeyZoom); got != "5" {
		t.Errorf("zoom param = %q, want 5", got)
	}
}

func TestUpdate(t *testing.T) {
	loc := newLocation("https://host/?a=1&b=2")
	p := permalink.New(permalink.Config{Mode: permalink.ModeQuery, Location: loc})

	var addresses []string
	p.OnAddress(func(href string) { addresses = append(addresses, href) })

	p.Update(permalink.NewPatch().Unset("a").Set("c", "3"))
	p.Update(nil)
	p.Update(permalink.NewPatch().Set("b", "2"))

	if got, want := p.Href(), "https://host/?b=2&c=3"; got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"https://host/?b=2&c=3"}, addresses); diff != "" {
		t.Errorf("addresses mismatch (-want +got):\n%s", diff)
	}
	if len(loc.replaced) != 0 {
		t.Errorf("location written without WriteLocation: %q", loc.replaced)
	}
	if p.State() != permalink.Idle {
		t.Errorf("State() = %v after Update", p.State())
	}
}

func TestParamsReturnsCopy(t *testing.T) {
	p := permalink.New(permalink.Config{Location: newLocation("https://host/?a=1")})
	p.Params().Set("a", "2")
	if got, _ := p.Params().Get("a"); got != "1" {
		t.Errorf("a = %q, want 1", got)
	}
}

func TestLocalStorageMirror(t *testing.T) {
	store := &memStorage{value: "zoom=4&lat=1&lon=2", ok: true}
	p, _ := newPermalink(permalink.Config{
		Mode:            permalink.ModeQuery,
		Location:        newLocation("https://host/map?zoom=1"),
		UseLocalStorage: true,
		Storage:         store,
	})
	m := newViewport(osm)
	p.AddTo(m)

	if got, want := m.Zoom(), 4.0; got != want {
		t.Errorf("zoom = %v, want %v", got, want)
	}
	want := "zoom=4&lat=1&lon=2&baselayer=osm&36=f&2u=f&32=f"
	if store.value != want {
		t.Errorf("stored %q, want %q", store.value, want)
	}
	if got := p.Href(); got != "https://host/map?"+want {
		t.Errorf("Href() = %q", got)
	}
}

func TestStorageErrorsAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := permalink.New(permalink.Config{
		Location:        newLocation("https://host/?a=1"),
		UseLocalStorage: true,
		Storage:         &memStorage{err: errors.New("quota exceeded")},
		Metrics:         permalink.NewMetrics(reg),
	})
	if p.Params().Len() != 0 {
		t.Errorf("params = %v, want empty", p.Params().Map())
	}
	p.Update(permalink.NewPatch().Set("a", "2"))

	expected := `
# HELP permalink_storage_errors_total Total number of local storage read or write failures
# TYPE permalink_storage_errors_total counter
permalink_storage_errors_total 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "permalink_storage_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestRemoveDetaches(t *testing.T) {
	loc := newLocation("https://host/map#zoom=5&lat=10&lon=20")
	p, _ := newPermalink(permalink.Config{Mode: permalink.ModeHash, Location: loc})
	m := newViewport(osm)
	p.AddTo(m)
	before := p.Href()

	p.Remove()
	m.SetView(orb.Point{1, 1}, 9)
	loc.navigate("https://host/map#zoom=1")

	if p.Map() != nil {
		t.Error("Map() not nil after Remove")
	}
	if got := p.Href(); got != before {
		t.Errorf("Href() changed after Remove: %q", got)
	}
}

func TestText(t *testing.T) {
	if got := permalink.New(permalink.Config{}).Text(); got != permalink.DefaultText {
		t.Errorf("Text() = %q, want %q", got, permalink.DefaultText)
	}
	if got := permalink.New(permalink.Config{Text: "Share"}).Text(); got != "Share" {
		t.Errorf("Text() = %q, want Share", got)
	}
}
