package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/plat-permalink/internal/api"
	"github.com/joeblew999/plat-permalink/internal/api/live"
	"github.com/joeblew999/plat-permalink/internal/db"
	"github.com/joeblew999/plat-permalink/internal/permalink"
	"github.com/joeblew999/plat-permalink/internal/service"
	"github.com/joeblew999/plat-permalink/internal/store"
	"github.com/joeblew999/plat-permalink/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // optional; serves static/ and overrides templates/fragments
	Catalog string // catalog seed file; the built-in catalog when empty
	Store   string // local-storage backend: memory, bolt or duckdb

	// Session defaults.
	Mode          string
	LocalStorage  bool
	WriteLocation bool
	LinkText      string

	Logger *slog.Logger
	// Registerer receives the server's metrics. /metrics serves it when it
	// is also a Gatherer, and the default gatherer otherwise.
	Registerer prometheus.Registerer
}

// Server is the permalink HTTP server.
type Server struct {
	config   Config
	mode     permalink.Mode
	log      *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	kv       store.KV
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new permalink server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = permalink.ModeQuery.String()
	}
	mode, err := permalink.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-permalink API", api.Version)
	humaConfig.Info.Description = "Keeps map viewports and their permalink addresses in sync."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	catalog := service.NewCatalogService(cfg.DataDir, cfg.Logger)
	switch {
	case cfg.Catalog != "":
		if err := catalog.LoadFile(cfg.Catalog); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	case catalog.Len() == 0:
		if err := catalog.Import(service.DefaultCatalog()); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	kv, err := store.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	renderer, err := newRenderer(cfg, cfg.Logger)
	if err != nil {
		kv.Close()
		return nil, err
	}

	sessions := service.NewSessionService(service.SessionConfig{
		Mode:            mode,
		UseLocalStorage: cfg.LocalStorage,
		WriteLocation:   cfg.WriteLocation,
		Text:            cfg.LinkText,
		Logger:          cfg.Logger,
		Registerer:      cfg.Registerer,
	}, catalog, kv, service.NewEventBus())

	s := &Server{
		config:   cfg,
		mode:     mode,
		log:      cfg.Logger,
		mux:      mux,
		humaAPI:  humaAPI,
		kv:       kv,
		services: &api.Services{Catalog: catalog, Sessions: sessions},
		renderer: renderer,
	}
	s.routes()
	return s, nil
}

// newRenderer loads fragments from the web directory when it has them,
// and the built-in ones otherwise.
func newRenderer(cfg Config, log *slog.Logger) (*templates.Renderer, error) {
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.NewFromDir(fragmentsDir); err == nil {
			log.Info("loaded fragment templates", "dir", fragmentsDir)
			return r, nil
		}
	}
	return templates.New()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the server's services.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close ends every session and releases the session store.
func (s *Server) Close() error {
	for _, sess := range s.services.Sessions.List() {
		if err := s.services.Sessions.Delete(context.Background(), sess.ID); err != nil {
			s.log.Warn("closing session", "session", sess.ID, "err", err)
		}
	}
	return errors.Join(s.kv.Close(), db.Close())
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, storeName(s.config.Store), s.mode.String()).RegisterRoutes(s.humaAPI)
	api.NewStorageHandler(s.kv).RegisterRoutes(s.humaAPI)

	// Live permalink updates using Huma + Datastar SDK
	live.NewHandler(s.services.Sessions, s.renderer).RegisterRoutes(s.humaAPI)

	gatherer := prometheus.DefaultGatherer
	if g, ok := s.config.Registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}
	s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-permalink",
		"status":  "running",
	})
}

func storeName(kind string) string {
	if kind == "" {
		return store.KindMemory
	}
	return kind
}
