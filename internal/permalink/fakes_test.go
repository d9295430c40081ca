package permalink_test

import (
	"image"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-permalink/internal/permalink"
	"github.com/joeblew999/plat-permalink/internal/viewport"
)

// fakeLocation behaves like a browser location: replacing the address
// with a different one notifies subscribers synchronously.
type fakeLocation struct {
	href     string
	replaced []string
	subs     map[int]func()
	next     int
}

func newLocation(href string) *fakeLocation {
	return &fakeLocation{href: href, subs: map[int]func(){}}
}

func (l *fakeLocation) Href() string { return l.href }

func (l *fakeLocation) Replace(href string) {
	l.replaced = append(l.replaced, href)
	l.navigate(href)
}

// navigate changes the address from outside the permalink.
func (l *fakeLocation) navigate(href string) {
	if href == l.href {
		return
	}
	l.href = href
	for i := 0; i <= l.next; i++ {
		if fn, ok := l.subs[i]; ok {
			fn()
		}
	}
}

func (l *fakeLocation) Subscribe(fn func()) func() {
	l.next++
	id := l.next
	l.subs[id] = fn
	return func() { delete(l.subs, id) }
}

type memStorage struct {
	value string
	ok    bool
	err   error
	saves int
}

func (s *memStorage) Load() (string, bool, error) { return s.value, s.ok, s.err }

func (s *memStorage) Save(v string) error {
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.value, s.ok = v, true
	return nil
}

var (
	osm       = &permalink.Layer{ID: "osm", BaseLayer: true}
	satellite = &permalink.Layer{ID: "satellite", BaseLayer: true}
	topo      = &permalink.Layer{ID: "topo", BaseLayer: true}
	trails    = &permalink.Layer{ID: "trails"}
	labels    = &permalink.Layer{ID: "labels"}
	cycling   = &permalink.Layer{ID: "cycle_routes", Nested: &permalink.Layer{ID: "cycle_routes_tiles"}}
)

func testCatalog() []*permalink.Layer {
	return []*permalink.Layer{osm, satellite, topo, trails, labels, cycling}
}

func newViewport(active ...*permalink.Layer) *viewport.Map {
	m := viewport.New(image.Pt(800, 600), orb.Point{0, 0}, 2)
	for _, l := range active {
		m.AddLayer(l)
	}
	return m
}

// newPermalink builds a permalink with all syncers over testCatalog.
func newPermalink(cfg permalink.Config) (*permalink.Permalink, *permalink.OverlaySync) {
	overlays := permalink.NewOverlaySync(testCatalog())
	p := permalink.New(cfg,
		permalink.NewViewSync(),
		permalink.NewBaseLayerSync(testCatalog()),
		overlays,
	)
	return p, overlays
}
