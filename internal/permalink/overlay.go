package permalink

import "strings"

// Minified boolean flags.
const (
	FlagOn  = "t"
	FlagOff = "f"
)

// MinifyFlag renders b as "t" or "f".
func MinifyFlag(b bool) string {
	if b {
		return FlagOn
	}
	return FlagOff
}

// ParseFlag reads a flag value: anything starting with 't' is on, so the
// long "true"/"false" forms are accepted too.
func ParseFlag(v string) bool {
	return strings.HasPrefix(v, FlagOn)
}

// OverlaySync binds overlay visibility to one param per overlay, keyed by
// the overlay's alias.
type OverlaySync struct {
	overlays []*Layer
	aliases  *AliasTable
}

// NewOverlaySync returns an OverlaySync for the non-base layers of
// catalog, with aliases computed from their ids.
func NewOverlaySync(catalog []*Layer) *OverlaySync {
	s := &OverlaySync{}
	var ids []string
	for _, l := range catalog {
		if !l.BaseLayer {
			s.overlays = append(s.overlays, l)
			ids = append(ids, l.ID)
		}
	}
	s.aliases = NewAliasTable(ids)
	return s
}

// Aliases returns the overlay alias table.
func (s *OverlaySync) Aliases() *AliasTable { return s.aliases }

func (s *OverlaySync) OnAdd(p *Permalink) {
	if m := p.Map(); m != nil {
		p.Update(s.patch(m, nil, false))
	}
}

// OnMapEvent records the changed overlay together with a snapshot of all
// others. Events for base layers and unknown layers are ignored.
func (s *OverlaySync) OnMapEvent(p *Permalink, ev MapEvent) {
	if ev.Type != LayerAdd && ev.Type != LayerRemove {
		return
	}
	changed := s.lookup(ev.Layer)
	if changed == nil {
		return
	}
	if m := p.Map(); m != nil {
		p.Update(s.patch(m, changed, ev.Type == LayerAdd))
	}
}

// OnUpdate shows or hides every overlay mentioned in params. Overlays the
// params do not mention keep their current state.
func (s *OverlaySync) OnUpdate(p *Permalink, params *Params) {
	m := p.Map()
	if m == nil {
		return
	}
	for _, l := range s.overlays {
		v, ok := params.Get(s.aliases.Alias(l.ID))
		if !ok || v == "" {
			v, ok = params.Get(l.ID)
		}
		if !ok || v == "" {
			continue
		}
		target := l.Target()
		switch on := ParseFlag(v); {
		case on && !m.HasLayer(target):
			m.AddLayer(target)
		case !on && m.HasLayer(target):
			m.RemoveLayer(target)
		}
	}
}

// patch builds the minified overlay snapshot. When changed is set its
// flag is forced to visible.
func (s *OverlaySync) patch(m Map, changed *Layer, visible bool) *Patch {
	patch := NewPatch()
	for _, l := range s.overlays {
		on := m.HasLayer(l.Target())
		if l == changed {
			on = visible
		}
		alias := s.aliases.Alias(l.ID)
		patch.Set(alias, MinifyFlag(on))
		if alias != l.ID {
			patch.Unset(l.ID)
		}
	}
	return patch
}

// lookup finds the catalog overlay an event layer belongs to, matching
// either the overlay itself or its nested layer.
func (s *OverlaySync) lookup(l *Layer) *Layer {
	if l == nil || l.BaseLayer {
		return nil
	}
	for _, o := range s.overlays {
		if o.ID == l.ID || o.Target().ID == l.ID {
			return o
		}
	}
	return nil
}
