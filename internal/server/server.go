// Package server exposes the pipeline to editor frontends over HTTP: document
// lifecycle, edit notifications, outline, preview image, status, and the
// compile journal.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/texpreview/internal/compile"
	"git.home.luguber.info/inful/texpreview/internal/history"
	"git.home.luguber.info/inful/texpreview/internal/pipeline"
)

// Server is the HTTP collaborator surface for one pipeline service.
type Server struct {
	router  chi.Router
	svc     *pipeline.Service
	journal *history.Store // optional
	metrics http.Handler   // optional, mounted at /metrics
	log     *slog.Logger
}

// NewServer creates and configures the HTTP server. journal and metricsHandler
// may be nil to disable their endpoints.
func NewServer(svc *pipeline.Service, journal *history.Store, metricsHandler http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		svc:     svc,
		journal: journal,
		metrics: metricsHandler,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/document", s.handleLoadDocument)
		r.Delete("/document", s.handleCloseDocument)
		r.Post("/edit", s.handleEdit)
		r.Post("/save", s.handleSave)
		r.Post("/compile", s.handleCompile)
		r.Get("/outline", s.handleOutline)
		r.Get("/preview", s.handlePreview)
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type loadRequest struct {
	Path string `json:"path"`
	// Text optionally seeds the buffer; empty means read the file from disk.
	Text string `json:"text"`
}

func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	if err := s.svc.LoadDocument(r.Context(), req.Path, req.Text); err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleCloseDocument(w http.ResponseWriter, r *http.Request) {
	s.svc.CloseDocument(r.Context())
	writeJSON(w, http.StatusOK, s.svc.Status())
}

type editRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.svc.OnEdit(req.Text); err != nil {
		if errors.Is(err, pipeline.ErrNoDocument) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSave(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.SaveNow(); err != nil {
		if errors.Is(err, pipeline.ErrNoDocument) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	out := s.svc.CompileNow(r.Context())

	status := http.StatusOK
	if out.Compile.Kind == compile.KindInputError {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"request_id": out.RequestID,
		"compile":    out.Compile,
		"render":     out.Render,
		"superseded": out.Superseded,
	})
}

func (s *Server) handleOutline(w http.ResponseWriter, _ *http.Request) {
	root := s.svc.Outline()
	if root == nil {
		jsonError(w, "no outline available", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	out := s.svc.LastOutcome()
	if out == nil || out.Page == nil {
		jsonError(w, "no preview available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Page.PNG)))
	w.Header().Set("X-Page-Width", strconv.Itoa(out.Page.Width))
	w.Header().Set("X-Page-Height", strconv.Itoa(out.Page.Height))
	_, _ = w.Write(out.Page.PNG)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		jsonError(w, "history is not enabled", http.StatusNotFound)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": historyView(entries)})
}

type historyEntry struct {
	RequestID    string `json:"request_id"`
	StartedAt    string `json:"started_at"`
	DurationMS   int64  `json:"duration_ms"`
	Outcome      string `json:"outcome"`
	Diagnostic   string `json:"diagnostic,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Superseded   bool   `json:"superseded"`
}

func historyView(entries []history.Entry) []historyEntry {
	views := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		views = append(views, historyEntry{
			RequestID:    e.RequestID,
			StartedAt:    e.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			DurationMS:   e.DurationMS,
			Outcome:      e.Outcome,
			Diagnostic:   e.Diagnostic,
			ArtifactPath: e.ArtifactPath,
			Superseded:   e.Superseded,
		})
	}
	return views
}

// ListenAndServe blocks until the context is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.Info("HTTP server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
