// Package viewport is a headless slippy-map viewport: a center, a zoom, a
// pixel size and a set of active layers. It implements permalink.Map so
// sessions can be driven without a browser.
package viewport

import (
	"image"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-permalink/internal/permalink"
)

const (
	// TileSize is the size of map tiles in pixels.
	TileSize = 256
	// MaxZoomLevel is the maximum zoom level supported.
	MaxZoomLevel = 22

	// earthCircumference is the Web Mercator world width in meters.
	earthCircumference = 2 * math.Pi * 6378137
	// maxLat is the latitude where Web Mercator is cut off (arctan(sinh(π))).
	maxLat = 85.0511287798
)

var _ permalink.Map = (*Map)(nil)

type subscriber struct {
	id int
	fn func(permalink.MapEvent)
}

// Map is a headless viewport. It is not safe for concurrent use.
type Map struct {
	center orb.Point
	zoom   float64
	size   image.Point

	layers []*permalink.Layer
	subs   []subscriber
	nextID int
}

// New creates a viewport of the given pixel size.
func New(size image.Point, center orb.Point, zoom float64) *Map {
	return &Map{
		center: clampCenter(center),
		zoom:   clampZoom(zoom),
		size:   size,
	}
}

// Center returns the view center (X=lon, Y=lat).
func (m *Map) Center() orb.Point { return m.center }

// Zoom returns the zoom level.
func (m *Map) Zoom() float64 { return m.zoom }

// Size returns the viewport size in pixels.
func (m *Map) Size() image.Point { return m.size }

// SetView moves the view and emits ViewChangeEnd.
func (m *Map) SetView(center orb.Point, zoom float64) {
	m.center = clampCenter(center)
	m.zoom = clampZoom(zoom)
	m.fire(permalink.MapEvent{Type: permalink.ViewChangeEnd})
}

// Resize changes the pixel size and emits ViewChangeEnd.
func (m *Map) Resize(size image.Point) {
	m.size = size
	m.fire(permalink.MapEvent{Type: permalink.ViewChangeEnd})
}

// Bounds returns the geographic area covered by the viewport.
func (m *Map) Bounds() orb.Bound {
	c := project.WGS84.ToMercator(m.center)
	res := Resolution(m.zoom)
	halfW := float64(m.size.X) / 2 * res
	halfH := float64(m.size.Y) / 2 * res

	sw := project.Mercator.ToWGS84(orb.Point{c.X() - halfW, c.Y() - halfH})
	ne := project.Mercator.ToWGS84(orb.Point{c.X() + halfW, c.Y() + halfH})
	return orb.Bound{Min: sw, Max: ne}
}

// Resolution returns the ground size of one pixel at zoom, in meters.
func Resolution(zoom float64) float64 {
	return earthCircumference / (TileSize * math.Pow(2, zoom))
}

// Layers returns the active layers in the order they were added.
func (m *Map) Layers() []*permalink.Layer {
	return slices.Clone(m.layers)
}

// HasLayer reports whether a layer with l's id is active.
func (m *Map) HasLayer(l *permalink.Layer) bool {
	return l != nil && m.index(l.ID) >= 0
}

// AddLayer activates l and emits LayerAdd. Adding an active layer is a
// no-op.
func (m *Map) AddLayer(l *permalink.Layer) {
	if l == nil || m.HasLayer(l) {
		return
	}
	m.layers = append(m.layers, l)
	m.fire(permalink.MapEvent{Type: permalink.LayerAdd, Layer: l})
}

// RemoveLayer deactivates l and emits LayerRemove. Removing an inactive
// layer is a no-op.
func (m *Map) RemoveLayer(l *permalink.Layer) {
	if l == nil {
		return
	}
	i := m.index(l.ID)
	if i < 0 {
		return
	}
	removed := m.layers[i]
	m.layers = slices.Delete(m.layers, i, i+1)
	m.fire(permalink.MapEvent{Type: permalink.LayerRemove, Layer: removed})
}

// Subscribe registers fn for map events.
func (m *Map) Subscribe(fn func(permalink.MapEvent)) func() {
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.subs = slices.DeleteFunc(m.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (m *Map) index(id string) int {
	return slices.IndexFunc(m.layers, func(l *permalink.Layer) bool { return l.ID == id })
}

func (m *Map) fire(ev permalink.MapEvent) {
	for _, s := range slices.Clone(m.subs) {
		s.fn(ev)
	}
}

func clampCenter(p orb.Point) orb.Point {
	lat := math.Max(-maxLat, math.Min(maxLat, p.Lat()))
	return orb.Point{p.Lon(), lat}
}

func clampZoom(z float64) float64 {
	return math.Max(0, math.Min(MaxZoomLevel, z))
}
