package service

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeblew999/plat-permalink/internal/permalink"
	"github.com/joeblew999/plat-permalink/internal/store"
	"github.com/joeblew999/plat-permalink/internal/viewport"
)

// StorageKey is the local-storage key prefix; sessions append their id.
const StorageKey = "paramsTemp"

// Viewport defaults for new sessions.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
	DefaultZoom   = 2
)

// SessionConfig holds the defaults for new sessions.
type SessionConfig struct {
	Mode            permalink.Mode
	UseLocalStorage bool
	WriteLocation   bool
	Text            string

	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// SessionOptions describes a new session. Unset fields fall back to the
// service's SessionConfig.
type SessionOptions struct {
	Href            string
	Mode            string
	UseLocalStorage *bool
	WriteLocation   *bool
	Width           int
	Height          int
}

// SessionService owns the live sessions. Each session binds a Permalink
// to a headless viewport and an in-memory location.
type SessionService struct {
	cfg     SessionConfig
	catalog *CatalogService
	kv      store.KV
	bus     *EventBus
	log     *slog.Logger
	metrics *permalink.Metrics
	active  prometheus.Gauge
	tracer  trace.Tracer

	mu       sync.RWMutex
	sessions map[string]*session
	seq      uint64
}

type session struct {
	mu      sync.Mutex
	id      string
	seq     uint64
	created time.Time
	key     string

	link   *permalink.Permalink
	view   *viewport.Map
	loc    *location
	layers []*permalink.Layer
	base   *permalink.BaseLayerSync
}

// NewSessionService creates a session service over catalog. kv backs the
// local-storage mirror.
func NewSessionService(cfg SessionConfig, catalog *CatalogService, kv store.KV, bus *EventBus) *SessionService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if bus == nil {
		bus = NewEventBus()
	}
	return &SessionService{
		cfg:     cfg,
		catalog: catalog,
		kv:      kv,
		bus:     bus,
		log:     cfg.Logger,
		metrics: permalink.NewMetrics(cfg.Registerer),
		active: promauto.With(cfg.Registerer).NewGauge(prometheus.GaugeOpts{
			Namespace: "permalink",
			Name:      "sessions_active",
			Help:      "Number of live permalink sessions",
		}),
		tracer:   otel.Tracer("github.com/joeblew999/plat-permalink/internal/service"),
		sessions: make(map[string]*session),
	}
}

// Bus returns the bus session changes are published on.
func (s *SessionService) Bus() *EventBus { return s.bus }

// Create starts a session at opts.Href. The catalog is snapshotted, so
// later catalog edits do not change the session's aliases.
func (s *SessionService) Create(ctx context.Context, opts SessionOptions) (SessionInfo, error) {
	id := uuid.NewString()
	_, span := s.start(ctx, "create", id)
	defer span.End()

	mode := s.cfg.Mode
	if opts.Mode != "" {
		m, err := permalink.ParseMode(opts.Mode)
		if err != nil {
			return SessionInfo{}, fail(span, fmt.Errorf("%w: %v", ErrInvalid, err))
		}
		mode = m
	}
	if _, err := url.Parse(opts.Href); err != nil || opts.Href == "" {
		return SessionInfo{}, fail(span, fmt.Errorf("%w: bad href %q", ErrInvalid, opts.Href))
	}
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}

	all, initial := s.catalog.Snapshot()
	view := viewport.New(image.Pt(w, h), orb.Point{}, DefaultZoom)
	for _, l := range initial {
		view.AddLayer(l)
	}

	sess := &session{
		id:      id,
		created: time.Now(),
		key:     StorageKey + "/" + id,
		view:    view,
		loc:     newLocation(opts.Href),
		layers:  all,
		base:    permalink.NewBaseLayerSync(all),
	}
	sess.link = permalink.New(permalink.Config{
		Mode:            mode,
		Location:        sess.loc,
		UseLocalStorage: boolOr(opts.UseLocalStorage, s.cfg.UseLocalStorage),
		Storage:         store.Entry(s.kv, sess.key),
		WriteLocation:   boolOr(opts.WriteLocation, s.cfg.WriteLocation),
		Text:            s.cfg.Text,
		Logger:          s.log.With("session", id),
		Metrics:         s.metrics,
	}, permalink.NewViewSync(), sess.base, permalink.NewOverlaySync(all))
	sess.link.OnAddress(func(href string) {
		s.bus.Publish(Event{Resource: "sessions", Action: "address", ID: id, Href: href})
	})

	sess.mu.Lock()
	sess.link.AddTo(view)
	info := sess.info()
	sess.mu.Unlock()

	s.mu.Lock()
	s.seq++
	sess.seq = s.seq
	s.sessions[id] = sess
	s.mu.Unlock()
	s.active.Inc()

	s.bus.Publish(Event{Resource: "sessions", Action: "created", ID: id, Href: info.Href})
	s.log.Info("session created", "session", id, "mode", mode, "href", info.Href)
	return info, nil
}

// Get returns the current state of a session.
func (s *SessionService) Get(ctx context.Context, id string) (SessionInfo, error) {
	return s.with(ctx, "get", id, func(*session) error { return nil })
}

// List returns every session, oldest first.
func (s *SessionService) List() []SessionInfo {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b *session) int { return cmp.Compare(a.seq, b.seq) })
	result := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		result = append(result, sess.info())
		sess.mu.Unlock()
	}
	return result
}

// Delete stops a session and drops its stored params.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	_, span := s.start(ctx, "delete", id)
	defer span.End()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fail(span, fmt.Errorf("session %q: %w", id, ErrNotFound))
	}

	sess.mu.Lock()
	sess.link.Remove()
	sess.mu.Unlock()
	if err := s.kv.Delete(sess.key); err != nil {
		s.log.Warn("dropping stored params", "session", id, "err", err)
	}
	s.active.Dec()
	s.bus.Publish(Event{Resource: "sessions", Action: "deleted", ID: id})
	s.log.Info("session deleted", "session", id)
	return nil
}

// Navigate changes the session's address from outside, as a user editing
// the address bar would. In query mode the new address is read as on a
// page load.
func (s *SessionService) Navigate(ctx context.Context, id, href string) (SessionInfo, error) {
	if _, err := url.Parse(href); err != nil || href == "" {
		return SessionInfo{}, fmt.Errorf("%w: bad href %q", ErrInvalid, href)
	}
	return s.with(ctx, "navigate", id, func(sess *session) error {
		sess.loc.navigate(href)
		if sess.link.Mode() == permalink.ModeQuery {
			sess.link.IngestAddress()
		}
		return nil
	})
}

// SetView moves the session's map.
func (s *SessionService) SetView(ctx context.Context, id string, lat, lon, zoom float64) (SessionInfo, error) {
	return s.with(ctx, "set_view", id, func(sess *session) error {
		sess.view.SetView(orb.Point{lon, lat}, zoom)
		return nil
	})
}

// SetLayer shows or hides a catalog layer on the session's map. Base
// layers can only be switched to, not hidden.
func (s *SessionService) SetLayer(ctx context.Context, id, layerID string, visible bool) (SessionInfo, error) {
	return s.with(ctx, "set_layer", id, func(sess *session) error {
		i := slices.IndexFunc(sess.layers, func(l *permalink.Layer) bool { return l.ID == layerID })
		if i < 0 {
			return fmt.Errorf("layer %q: %w", layerID, ErrNotFound)
		}
		l := sess.layers[i]
		switch {
		case l.BaseLayer && visible:
			sess.base.Choose(sess.link, l.ID)
		case l.BaseLayer:
			return fmt.Errorf("%w: base layer %q cannot be hidden", ErrInvalid, l.ID)
		case visible:
			sess.view.AddLayer(l.Target())
		default:
			sess.view.RemoveLayer(l.Target())
		}
		return nil
	})
}

// with runs fn on a session under its lock and returns the resulting
// state.
func (s *SessionService) with(ctx context.Context, op, id string, fn func(*session) error) (SessionInfo, error) {
	_, span := s.start(ctx, op, id)
	defer span.End()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return SessionInfo{}, fail(span, fmt.Errorf("session %q: %w", id, ErrNotFound))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := fn(sess); err != nil {
		return SessionInfo{}, fail(span, err)
	}
	info := sess.info()
	span.SetAttributes(attribute.String("permalink.href", info.Href))
	return info, nil
}

func (s *SessionService) start(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "session."+op, trace.WithAttributes(attribute.String("session.id", id)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// info must be called with sess.mu held.
func (sess *session) info() SessionInfo {
	params := sess.link.Params()
	center := sess.view.Center()
	layers := make([]string, 0)
	for _, l := range sess.view.Layers() {
		layers = append(layers, l.ID)
	}
	return SessionInfo{
		ID:      sess.id,
		Href:    sess.link.Href(),
		BaseURL: sess.link.BaseURL(),
		Query:   params.Encode(),
		Params:  params.Map(),
		Keys:    params.Keys(),
		Mode:    sess.link.Mode().String(),
		Text:    sess.link.Text(),
		State:   sess.link.State().String(),
		Zoom:    sess.view.Zoom(),
		Lat:     center.Lat(),
		Lon:     center.Lon(),
		Layers:  layers,
		Created: sess.created,
	}
}

func boolOr(b *bool, def bool) bool {
	if b != nil {
		return *b
	}
	return def
}

// location is a session's address bar. Replacing the address with a
// different one notifies subscribers synchronously.
type location struct {
	href   string
	subs   map[int]func()
	nextID int
}

func newLocation(href string) *location {
	return &location{href: href, subs: make(map[int]func())}
}

func (l *location) Href() string { return l.href }

func (l *location) Replace(href string) { l.navigate(href) }

func (l *location) navigate(href string) {
	if href == l.href {
		return
	}
	l.href = href
	for id := 1; id <= l.nextID; id++ {
		if fn, ok := l.subs[id]; ok {
			fn()
		}
	}
}

func (l *location) Subscribe(fn func()) func() {
	l.nextID++
	id := l.nextID
	l.subs[id] = fn
	return func() { delete(l.subs, id) }
}
