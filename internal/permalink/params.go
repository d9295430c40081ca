package permalink

// Params is an insertion-ordered string map holding the permalink state.
// Setting an existing key keeps its position; new keys are appended.
// The zero value is an empty map ready to use.
type Params struct {
	keys []string
	vals map[string]string
}

// NewParams returns Params holding the given key/value pairs in order.
func NewParams(kv ...string) *Params {
	p := &Params{}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// Get returns the value for key and whether it is set.
func (p *Params) Get(key string) (string, bool) {
	if p == nil || p.vals == nil {
		return "", false
	}
	v, ok := p.vals[key]
	return v, ok
}

// Has reports whether key is set.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set upserts key.
func (p *Params) Set(key, value string) {
	if p.vals == nil {
		p.vals = make(map[string]string)
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = value
}

// Del removes key. Removing an absent key is a no-op.
func (p *Params) Del(key string) {
	if p == nil || p.vals == nil {
		return
	}
	if _, ok := p.vals[key]; !ok {
		return
	}
	delete(p.vals, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := &Params{}
	if p == nil {
		return c
	}
	for _, k := range p.keys {
		c.Set(k, p.vals[k])
	}
	return c
}

// Map returns the params as a plain map.
func (p *Params) Map() map[string]string {
	m := make(map[string]string, p.Len())
	if p == nil {
		return m
	}
	for k, v := range p.vals {
		m[k] = v
	}
	return m
}

// Equal compares p and o in both directions, so a key present on only
// one side makes them unequal.
func (p *Params) Equal(o *Params) bool {
	return p.contains(o) && o.contains(p)
}

func (p *Params) contains(o *Params) bool {
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		ov, ok := o.Get(k)
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Patch is an ordered set of changes for Permalink.Update. A key set
// with Unset is deleted from the params; any other key is upserted.
type Patch struct {
	keys []string
	vals map[string]*string
}

// NewPatch returns an empty patch.
func NewPatch() *Patch {
	return &Patch{}
}

// Set records an upsert of key.
func (p *Patch) Set(key, value string) *Patch {
	p.put(key, &value)
	return p
}

// Unset records a deletion of key.
func (p *Patch) Unset(key string) *Patch {
	p.put(key, nil)
	return p
}

func (p *Patch) put(key string, value *string) {
	if p.vals == nil {
		p.vals = make(map[string]*string)
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = value
}

// Len returns the number of recorded changes.
func (p *Patch) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// applyTo merges the patch into params.
func (p *Patch) applyTo(params *Params) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		if v := p.vals[k]; v != nil {
			params.Set(k, *v)
		} else {
			params.Del(k)
		}
	}
}
