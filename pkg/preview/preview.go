// Package preview implements the preview server. It serves a built
// output directory as static files with a single-page-app fallback and
// none of the dev server's transform machinery.
package preview

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fresnel-build/fresnel/pkg/config"
	"github.com/fresnel-build/fresnel/pkg/telemetry"
)

// DefaultOutputDir is the built output directory served relative to the
// project root.
const DefaultOutputDir = "dist"

// Server is the preview server.
type Server struct {
	cfg    *config.Config
	dir    string
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
}

// NewServer creates a preview server for the project's built output.
func NewServer(cfg *config.Config, root string, tel *telemetry.Telemetry) *Server {
	return &Server{
		cfg:    cfg,
		dir:    filepath.Join(filepath.Clean(root), DefaultOutputDir),
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("preview"),
	}
}

// Handler returns the preview server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

// Run starts the HTTP server, blocking until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("output directory not found, build the project first: %w", err)
	}

	addr := fmt.Sprintf(":%d", s.cfg.Preview.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).WithField("dir", s.dir).Info("preview server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("preview server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down preview server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	ctx := telemetry.WithRequestContext(s.tel.WithContext(r.Context()), requestID, r.Method, r.URL.Path)

	code := s.serve(w, r)
	telemetry.EndRequestContext(ctx, "preview", strconv.Itoa(code), nil)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) int {
	urlPath := path.Clean(r.URL.Path)
	if urlPath == "/" {
		urlPath = "/index.html"
	}

	rel := strings.TrimPrefix(urlPath, "/")
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		// Extensionless paths are client-side routes: fall back to the
		// app shell. Asset requests 404 as usual.
		if path.Ext(urlPath) == "" {
			return s.serveIndex(w)
		}
		http.NotFound(w, r)
		return http.StatusNotFound
	}

	contentType := mime.TypeByExtension(filepath.Ext(rel))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
	return http.StatusOK
}

func (s *Server) serveIndex(w http.ResponseWriter) int {
	data, err := os.ReadFile(filepath.Join(s.dir, "index.html"))
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
	return http.StatusOK
}
