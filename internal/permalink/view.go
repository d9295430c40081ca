package permalink

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// View param keys.
const (
	KeyZoom = "zoom"
	KeyLat  = "lat"
	KeyLon  = "lon"
)

// ViewSync binds the map center and zoom to the zoom, lat and lon params.
type ViewSync struct{}

// NewViewSync returns a ViewSync.
func NewViewSync() *ViewSync { return &ViewSync{} }

func (v *ViewSync) OnAdd(p *Permalink) { v.push(p) }

func (v *ViewSync) OnMapEvent(p *Permalink, ev MapEvent) {
	if ev.Type == ViewChangeEnd {
		v.push(p)
	}
}

// OnUpdate moves the map when all three view params are present and
// numeric.
func (v *ViewSync) OnUpdate(p *Permalink, params *Params) {
	zoom, ok1 := floatParam(params, KeyZoom)
	lat, ok2 := floatParam(params, KeyLat)
	lon, ok3 := floatParam(params, KeyLon)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	p.Map().SetView(orb.Point{lon, lat}, zoom)
}

func (v *ViewSync) push(p *Permalink) {
	m := p.Map()
	if m == nil {
		return
	}
	center := RoundCenter(m.Center(), m.Bounds(), m.Size().X, m.Size().Y)
	p.Update(NewPatch().
		Set(KeyZoom, formatNumber(m.Zoom())).
		Set(KeyLat, formatNumber(center.Lat())).
		Set(KeyLon, formatNumber(center.Lon())))
}

// RoundCenter truncates center to the precision of one screen pixel of a
// w×h viewport covering bounds.
func RoundCenter(center orb.Point, bounds orb.Bound, w, h int) orb.Point {
	latSpan := (bounds.Max.Lat() - bounds.Min.Lat()) / float64(h)
	lonSpan := (bounds.Max.Lon() - bounds.Min.Lon()) / float64(w)
	return orb.Point{roundTo(center.Lon(), lonSpan), roundTo(center.Lat(), latSpan)}
}

// roundTo floors x at the first decimal digit where the per-pixel span p
// reaches magnitude one.
func roundTo(x, p float64) float64 {
	if p == 0 {
		return x
	}
	shift := 1.0
	for p < 1 && p > -1 {
		x *= 10
		p *= 10
		shift *= 10
	}
	return math.Floor(x) / shift
}

func floatParam(params *Params, key string) (float64, bool) {
	s, ok := params.Get(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// formatNumber prints f the shortest way, without a negative zero.
func formatNumber(f float64) string {
	if f == 0 {
		f = 0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
