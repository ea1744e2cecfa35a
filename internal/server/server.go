// Package server wires the overlay editor, its HTTP API and the SSE
// surface channel into one http.Handler.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-overlay/internal/api"
	apieditor "github.com/joeblew999/plat-overlay/internal/api/editor"
	"github.com/joeblew999/plat-overlay/internal/config"
	"github.com/joeblew999/plat-overlay/internal/db"
	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/surface"
	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	ConfigPath string // optional editor settings file (YAML)
	// FragmentsDir overrides the compiled-in HTML fragments, for development.
	FragmentsDir string
}

// Server is the overlay editor HTTP server.
type Server struct {
	config   Config
	log      *slog.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	bus      *service.EventBus
	surface  *surface.Remote
	editor   *editor.Editor
	store    *db.Store
	renderer *templates.Renderer
	unbridge func()
}

// New creates a new overlay server. A nil logger uses slog.Default.
func New(cfg Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	settings, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	renderer, err := newRenderer(cfg.FragmentsDir)
	if err != nil {
		return nil, fmt.Errorf("load fragments: %w", err)
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-overlay API", api.Version)
	humaConfig.Info.Description = "Interactive map overlay editor: draw, drag and resize markers, circles, rectangles and polygons."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	bus := service.NewEventBus(256)
	remote := surface.NewRemote(bus, settings.FitDelay)
	ed := editor.New(remote, settings.Editor(), log)

	s := &Server{
		config:   cfg,
		log:      log,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		bus:      bus,
		surface:  remote,
		editor:   ed,
		renderer: renderer,
		unbridge: apieditor.Bridge(ed, bus),
	}

	// The SQL endpoint is optional; the editor works without it.
	if store, err := db.Open(context.Background()); err != nil {
		log.Warn("duckdb unavailable, query endpoints disabled", "error", err)
	} else {
		s.store = store
	}

	s.routes()
	s.handler = metrics.Middleware(mux)
	return s, nil
}

func newRenderer(dir string) (*templates.Renderer, error) {
	if dir != "" {
		return templates.NewFromDir(dir)
	}
	return templates.New()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Editor exposes the editor, e.g. to seed overlays at startup.
func (s *Server) Editor() *editor.Editor {
	return s.editor
}

// Close detaches listeners, stops pending fits and closes the database.
func (s *Server) Close() error {
	s.unbridge()
	s.surface.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.editor))
	api.NewInfoHandler(s.store != nil, s.editor.Len).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.store, s.editor.Snapshot).RegisterRoutes(s.humaAPI)

	// Editor SSE routes using Huma + Datastar SDK
	apieditor.NewEventHandler(s.bus, s.editor, s.surface, s.renderer, s.log).RegisterRoutes(s.humaAPI)

	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service":  "plat-overlay",
		"status":   "running",
		"overlays": s.editor.Len(),
	})
}
