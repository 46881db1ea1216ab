package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"timelinepanel/internal/editor"
	"timelinepanel/internal/models"
	"timelinepanel/internal/panel"
	"timelinepanel/internal/render"
	"timelinepanel/internal/storage"
)

//go:embed static/*
var embeddedStatic embed.FS

// maxBodyBytes bounds posted snapshots, frames included.
const maxBodyBytes = 8 << 20

// maxViewport is the largest width or height in pixels a posted snapshot may ask for.
const maxViewport = 16384

// Options tune a Server. Zero values select UTC, the default theme, no rate
// limit, the wall clock and a time-seeded random source.
type Options struct {
	Theme             render.Theme
	Location          *time.Location
	RequestsPerSecond float64
	Burst             int
	Now               func() time.Time
	Random            editor.Random
}

// Server wraps HTTP serving of API + static assets.
type Server struct {
	httpServer *http.Server
	store      *storage.PanelStore
	staticFS   fs.FS
	theme      render.Theme
	loc        *time.Location
	now        func() time.Time
	random     editor.Random
}

// New creates a configured HTTP server for the panel store.
func New(addr string, store *storage.PanelStore, opts Options) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}

	s := &Server{
		store:    store,
		staticFS: staticFS,
		theme:    opts.Theme,
		loc:      opts.Location,
		now:      opts.Now,
		random:   opts.Random,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.random == nil {
		s.random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.random = &lockedRandom{r: s.random}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var limiter *rateLimiter
	if opts.RequestsPerSecond > 0 {
		limiter = newRateLimiter(opts.RequestsPerSecond, opts.Burst)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           securityHeaders(limiter.middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	fileServer := http.FileServer(http.FS(s.staticFS))

	mux.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(s.staticFS, "index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fileServer))

	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("GET /api/panels", s.handleListPanels)
	mux.HandleFunc("GET /api/panels/{id}", s.handleGetPanel)
	mux.HandleFunc("PUT /api/panels/{id}", s.handlePutPanel)
	mux.HandleFunc("DELETE /api/panels/{id}", s.handleDeletePanel)
	mux.HandleFunc("GET /api/panels/{id}/model", s.handlePanelModel)
	mux.HandleFunc("GET /api/panels/{id}/svg", s.handlePanelSVG)
	mux.HandleFunc("GET /api/panels/{id}/png", s.handlePanelPNG)
	mux.HandleFunc("GET /api/panels/{id}/stats", s.handlePanelStats)
	mux.HandleFunc("GET /api/panels/{id}/sources", s.handlePanelSources)
	mux.HandleFunc("POST /api/panels/{id}/metrics", s.handleAddMetric)
	mux.HandleFunc("PATCH /api/panels/{id}/metrics/{metricID}", s.handleUpdateMetric)
	mux.HandleFunc("DELETE /api/panels/{id}/metrics/{metricID}", s.handleRemoveMetric)
	mux.HandleFunc("GET /api/panels/{id}/ws", s.handlePanelWS)
}

// model runs the pipeline for a snapshot at the current time.
func (s *Server) model(snap models.PanelSnapshot) models.Model {
	return panel.Build(panel.FromSnapshot(snap, s.now(), s.loc))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lockedRandom serialises access to a random source shared by handlers.
type lockedRandom struct {
	mu sync.Mutex
	r  editor.Random
}

func (l *lockedRandom) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}
