package permalink

// KeyBaseLayer holds the id of the active base layer.
const KeyBaseLayer = "baselayer"

// BaseLayerSync binds the active base layer to the baselayer param.
type BaseLayerSync struct {
	catalog []*Layer
}

// NewBaseLayerSync returns a BaseLayerSync over the base layers of
// catalog. Catalog order breaks ties when several are active.
func NewBaseLayerSync(catalog []*Layer) *BaseLayerSync {
	s := &BaseLayerSync{}
	for _, l := range catalog {
		if l.BaseLayer {
			s.catalog = append(s.catalog, l)
		}
	}
	return s
}

func (s *BaseLayerSync) OnAdd(p *Permalink) { s.push(p) }

func (s *BaseLayerSync) OnMapEvent(p *Permalink, ev MapEvent) {
	if ev.Type == LayerAdd || ev.Type == LayerRemove {
		s.push(p)
	}
}

func (s *BaseLayerSync) OnUpdate(p *Permalink, params *Params) {
	if id, ok := params.Get(KeyBaseLayer); ok && id != "" {
		s.Choose(p, id)
	}
}

// Current returns the first catalog base layer active on m, or nil. An
// entry with a nested layer is active when its nested layer is.
func (s *BaseLayerSync) Current(m Map) *Layer {
	for _, l := range s.catalog {
		if m.HasLayer(l.Target()) {
			return l
		}
	}
	return nil
}

// Choose makes id the only active base layer. Unknown ids and the layer
// already shown are ignored.
func (s *BaseLayerSync) Choose(p *Permalink, id string) {
	m := p.Map()
	if m == nil {
		return
	}
	var next *Layer
	for _, l := range s.catalog {
		if l.ID == id {
			next = l
			break
		}
	}
	if next == nil || m.HasLayer(next.Target()) {
		return
	}

	for _, l := range m.Layers() {
		if l.BaseLayer || s.isTarget(l) {
			m.RemoveLayer(l)
		}
	}
	m.AddLayer(next.Target())
	p.Update(nil)
}

func (s *BaseLayerSync) isTarget(l *Layer) bool {
	for _, c := range s.catalog {
		if c.Target().ID == l.ID {
			return true
		}
	}
	return false
}

func (s *BaseLayerSync) push(p *Permalink) {
	m := p.Map()
	if m == nil {
		return
	}
	if l := s.Current(m); l != nil {
		p.Update(NewPatch().Set(KeyBaseLayer, l.ID))
	}
}
