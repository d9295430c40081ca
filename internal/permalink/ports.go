package permalink

import (
	"image"

	"github.com/paulmach/orb"
)

// Layer is a map layer known to the permalink. Catalogs are supplied by
// the host; the permalink only references them.
type Layer struct {
	ID        string
	BaseLayer bool
	// Nested is the layer actually put on the map for composite entries.
	Nested *Layer
}

// Target returns the layer that is added to or removed from the map.
func (l *Layer) Target() *Layer {
	if l.Nested != nil {
		return l.Nested
	}
	return l
}

// EventType names a map event.
type EventType int

const (
	LayerAdd EventType = iota
	LayerRemove
	ViewChangeEnd
)

func (t EventType) String() string {
	switch t {
	case LayerAdd:
		return "layeradd"
	case LayerRemove:
		return "layerremove"
	case ViewChangeEnd:
		return "moveend"
	}
	return "unknown"
}

// MapEvent is delivered to map subscribers after the change took effect.
// Layer is nil for ViewChangeEnd.
type MapEvent struct {
	Type  EventType
	Layer *Layer
}

// Map is the viewport the permalink drives. Center uses orb's X=lon,
// Y=lat convention.
type Map interface {
	Center() orb.Point
	Zoom() float64
	SetView(center orb.Point, zoom float64)
	Bounds() orb.Bound
	Size() image.Point

	// Layers returns a snapshot of the layers on the map, safe to iterate
	// while adding or removing layers.
	Layers() []*Layer
	HasLayer(l *Layer) bool
	AddLayer(l *Layer)
	RemoveLayer(l *Layer)

	Subscribe(fn func(MapEvent)) (unsubscribe func())
}

// Location is the address the permalink reads and, optionally, writes.
type Location interface {
	Href() string
	Replace(href string)
	// Subscribe registers fn to run after the address changes.
	Subscribe(fn func()) (unsubscribe func())
}

// Storage holds the raw param string when local storage mode is on. The
// entry is always overwritten wholesale.
type Storage interface {
	Load() (value string, ok bool, err error)
	Save(value string) error
}
