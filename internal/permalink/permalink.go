// Package permalink keeps a map viewport and a URL-encoded permalink in
// sync in both directions.
//
// A Permalink owns the current params. Map changes reach it through
// syncers, which submit patches via Update; address changes reach it via
// IngestAddress, which hands the new params back to the syncers. While
// either call is running the Permalink is Syncing, and IngestAddress
// calls triggered by its own address writes are ignored.
//
// A Permalink is not safe for concurrent use.
package permalink

import (
	"log/slog"
)

// State is the sync state of a Permalink.
type State int

const (
	Idle State = iota
	Syncing
)

func (s State) String() string {
	if s == Syncing {
		return "syncing"
	}
	return "idle"
}

// DefaultText is the default link text shown for the permalink.
const DefaultText = "Permalink"

// Syncer binds one part of the map state to the params.
type Syncer interface {
	// OnAdd runs once the permalink is attached to a map, after the
	// initial params were dispatched.
	OnAdd(p *Permalink)
	// OnMapEvent runs for every event of the attached map.
	OnMapEvent(p *Permalink, ev MapEvent)
	// OnUpdate runs whenever params were replaced from the address. params
	// is a snapshot and must not be modified.
	OnUpdate(p *Permalink, params *Params)
}

// Config configures a Permalink.
type Config struct {
	Mode     Mode
	Location Location

	// UseLocalStorage reads params from Storage instead of the address and
	// mirrors every update into it.
	UseLocalStorage bool
	Storage         Storage

	// WriteLocation writes every new address back to Location.
	WriteLocation bool

	// Text is the link text; DefaultText when empty.
	Text string

	// Logger defaults to slog.Default().
	Logger  *slog.Logger
	Metrics *Metrics
}

// Permalink is the live permalink state bound to at most one map.
type Permalink struct {
	cfg      Config
	resolver Resolver
	log      *slog.Logger

	params  *Params
	urlBase string
	href    string
	depth   int

	syncers []Syncer
	m       Map
	unsubs  []func()

	updateFns  []func(*Params)
	addressFns []func(string)
}

// New creates a Permalink and reads the initial params from the
// configured location or storage. Syncers run in the order given.
func New(cfg Config, syncers ...Syncer) *Permalink {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Text == "" {
		cfg.Text = DefaultText
	}
	p := &Permalink{
		cfg:      cfg,
		resolver: Resolver{Mode: cfg.Mode},
		log:      cfg.Logger,
		syncers:  syncers,
	}
	if cfg.UseLocalStorage && cfg.Storage != nil {
		p.resolver.Storage = cfg.Storage
	}
	p.params, p.urlBase = p.readAddress()
	p.href = p.resolver.BuildAddress(p.urlBase, p.params)
	return p
}

// AddTo attaches the permalink to m: the current params are applied to the
// map, then every syncer pushes the map's state back. In fragment modes
// the permalink also follows later address changes.
func (p *Permalink) AddTo(m Map) {
	if p.m != nil {
		p.Remove()
	}
	p.enter()
	defer p.leave()

	p.m = m
	p.unsubs = append(p.unsubs, m.Subscribe(p.handleMapEvent))
	p.dispatchUpdate()
	if p.cfg.Mode != ModeQuery && p.cfg.Location != nil {
		p.unsubs = append(p.unsubs, p.cfg.Location.Subscribe(p.IngestAddress))
	}
	for _, s := range p.syncers {
		s.OnAdd(p)
	}
}

// Remove detaches the permalink from its map and location.
func (p *Permalink) Remove() {
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil
	p.m = nil
}

// Update merges patch into the params and recomputes the address. A nil
// patch only recomputes it.
func (p *Permalink) Update(patch *Patch) {
	p.enter()
	defer p.leave()

	patch.applyTo(p.params)
	p.cfg.Metrics.update()
	p.log.Debug("permalink: update", "changes", patch.Len())
	p.refresh()
}

// IngestAddress re-reads the params from the location (or storage). If
// they differ from the current ones they replace them and subscribers are
// notified. A new base URL alone only moves the address. Calls made while
// Syncing are ignored.
func (p *Permalink) IngestAddress() {
	if p.depth > 0 {
		p.cfg.Metrics.ingest(ingestSkipped)
		return
	}
	p.enter()
	defer p.leave()

	params, base := p.readAddress()
	if params.Equal(p.params) {
		p.cfg.Metrics.ingest(ingestUnchanged)
		if base != p.urlBase {
			p.urlBase = base
			p.refresh()
		}
		return
	}

	p.urlBase = base
	p.params = params
	p.cfg.Metrics.ingest(ingestChanged)
	p.log.Debug("permalink: address changed", "params", params.Len())
	p.refresh()
	p.dispatchUpdate()
}

// OnUpdate registers fn to receive a snapshot of the params whenever they
// are replaced from the address.
func (p *Permalink) OnUpdate(fn func(*Params)) {
	p.updateFns = append(p.updateFns, fn)
}

// OnAddress registers fn to receive every new address.
func (p *Permalink) OnAddress(fn func(href string)) {
	p.addressFns = append(p.addressFns, fn)
}

// Map returns the attached map, or nil.
func (p *Permalink) Map() Map { return p.m }

// Params returns a copy of the current params.
func (p *Permalink) Params() *Params { return p.params.Clone() }

// Href returns the current computed address.
func (p *Permalink) Href() string { return p.href }

// BaseURL returns the address without its params.
func (p *Permalink) BaseURL() string { return p.urlBase }

// Mode returns the addressing mode.
func (p *Permalink) Mode() Mode { return p.cfg.Mode }

// Text returns the link text.
func (p *Permalink) Text() string { return p.cfg.Text }

// State reports whether an update or ingest is in progress.
func (p *Permalink) State() State {
	if p.depth > 0 {
		return Syncing
	}
	return Idle
}

func (p *Permalink) enter() { p.depth++ }
func (p *Permalink) leave() { p.depth-- }

func (p *Permalink) readAddress() (*Params, string) {
	var href string
	if p.cfg.Location != nil {
		href = p.cfg.Location.Href()
	}
	params, err := p.resolver.CurrentParams(href)
	if err != nil {
		p.cfg.Metrics.storageError()
		p.log.Warn("permalink: reading local storage", "err", err)
	}
	return params, p.resolver.BaseURL(href)
}

// refresh recomputes the address and performs its side effects.
func (p *Permalink) refresh() {
	if p.cfg.UseLocalStorage && p.cfg.Storage != nil {
		if err := p.cfg.Storage.Save(p.params.Encode()[1:]); err != nil {
			p.cfg.Metrics.storageError()
			p.log.Warn("permalink: writing local storage", "err", err)
		}
	}

	href := p.resolver.BuildAddress(p.urlBase, p.params)
	if href == p.href {
		return
	}
	p.href = href
	if p.cfg.WriteLocation && p.cfg.Location != nil {
		p.cfg.Metrics.addressWrite()
		p.cfg.Location.Replace(href)
	}
	for _, fn := range p.addressFns {
		fn(href)
	}
}

func (p *Permalink) dispatchUpdate() {
	snapshot := p.params.Clone()
	if p.m != nil {
		for _, s := range p.syncers {
			s.OnUpdate(p, snapshot)
		}
	}
	for _, fn := range p.updateFns {
		fn(snapshot)
	}
}

func (p *Permalink) handleMapEvent(ev MapEvent) {
	for _, s := range p.syncers {
		s.OnMapEvent(p, ev)
	}
}
