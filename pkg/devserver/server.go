package devserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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
	"github.com/fresnel-build/fresnel/pkg/plugins"
	"github.com/fresnel-build/fresnel/pkg/stores"
	"github.com/fresnel-build/fresnel/pkg/telemetry"
)

// assetPrefix is the URL prefix under which asset plugins publish files.
const assetPrefix = "/@asset/"

// Server is the development server.
type Server struct {
	cfg      *config.Config
	root     string
	pipeline *plugins.Pipeline
	allow    *AllowList
	store    stores.Store
	tel      *telemetry.Telemetry
	logger   *telemetry.Logger
	watcher  *Watcher
}

// NewServer creates a dev server from a resolved configuration.
func NewServer(cfg *config.Config, root string, store stores.Store, tel *telemetry.Telemetry) (*Server, error) {
	pipeline, err := plugins.NewRegistry().BuildPipeline(cfg.Plugins)
	if err != nil {
		return nil, fmt.Errorf("failed to build plugin pipeline: %w", err)
	}

	root = filepath.Clean(root)

	watcher, err := NewWatcher(root, store, tel)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		root:     root,
		pipeline: pipeline,
		allow:    NewAllowList(root, cfg.Server.FS.Allow),
		store:    store,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("devserver"),
		watcher:  watcher,
	}, nil
}

// Handler returns the dev server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(assetPrefix, s.handleAsset)
	mux.HandleFunc("/", s.handleModule)
	return mux
}

// Run starts the watcher and the HTTP server, blocking until the context
// is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	go s.consumeReloads(ctx)

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("dev server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("dev server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down dev server")
	return srv.Shutdown(shutdownCtx)
}

// consumeReloads drains the watcher's reload batches.
func (s *Server) consumeReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-s.watcher.Reloads():
			if !ok {
				return
			}
			s.logger.WithField("modules", batch).Debug("modules invalidated")
		}
	}
}

// handleModule serves project files, transforming the ones claimed by the
// plugin pipeline.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	ctx := telemetry.WithRequestContext(s.tel.WithContext(r.Context()), requestID, r.Method, r.URL.Path)

	code, err := s.serveModule(ctx, w, r)
	telemetry.EndRequestContext(ctx, "dev", strconv.Itoa(code), err)

	if err != nil {
		s.logger.WithRequestID(requestID).WithError(err).
			WithField("path", r.URL.Path).Warn("request failed")
	}
}

func (s *Server) serveModule(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, error) {
	urlPath := path.Clean(r.URL.Path)
	if urlPath == "/" {
		urlPath = "/index.html"
	}

	rel := strings.TrimPrefix(urlPath, "/")
	fsPath := filepath.Join(s.root, filepath.FromSlash(rel))

	if !s.allow.Allowed(fsPath) {
		http.Error(w, "403 forbidden", http.StatusForbidden)
		return http.StatusForbidden, fmt.Errorf("path outside allow list: %s", urlPath)
	}

	source, err := os.ReadFile(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return http.StatusNotFound, nil
		}
		http.Error(w, "500 internal server error", http.StatusInternalServerError)
		return http.StatusInternalServerError, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	plugin, claimed := s.pipeline.ClaimedBy(rel)
	if !claimed {
		s.serveRaw(w, rel, source)
		return http.StatusOK, nil
	}

	output, contentType, err := s.transform(ctx, plugin, rel, source)
	if err != nil {
		http.Error(w, "500 internal server error", http.StatusInternalServerError)
		return http.StatusInternalServerError, err
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(output)
	return http.StatusOK, nil
}

// transform runs the module through the pipeline, consulting the
// persistent cache first.
func (s *Server) transform(ctx context.Context, plugin, rel string, source []byte) ([]byte, string, error) {
	hash := sourceHash(source)

	cached, err := s.store.GetTransform(ctx, rel, hash)
	if err != nil {
		s.logger.WithError(err).WithField("path", rel).Warn("transform cache lookup failed")
	}
	if cached != nil {
		s.tel.Metrics.RecordCacheHit()
		return []byte(cached.Output), cached.ContentType, nil
	}
	s.tel.Metrics.RecordCacheMiss()

	var result *plugins.TransformResult
	err = telemetry.RecordTransformOperation(ctx, plugin, rel, func() error {
		var terr error
		result, terr = s.pipeline.Transform(ctx, plugins.TransformRequest{
			Path:   rel,
			Source: source,
		})
		return terr
	})
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	entry := &stores.TransformEntry{
		Path:        rel,
		SourceHash:  hash,
		Plugin:      result.Plugin,
		Output:      string(result.Output),
		ContentType: result.ContentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutTransform(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("path", rel).Warn("failed to cache transform")
	}

	return result.Output, result.ContentType, nil
}

// handleAsset serves the raw bytes behind asset-plugin module URLs.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	ctx := telemetry.WithRequestContext(s.tel.WithContext(r.Context()), requestID, r.Method, r.URL.Path)

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), assetPrefix)
	fsPath := filepath.Join(s.root, filepath.FromSlash(rel))

	if !s.allow.Allowed(fsPath) {
		http.Error(w, "403 forbidden", http.StatusForbidden)
		telemetry.EndRequestContext(ctx, "dev", "403", fmt.Errorf("asset outside allow list: %s", rel))
		return
	}

	data, err := os.ReadFile(fsPath)
	if err != nil {
		http.NotFound(w, r)
		telemetry.EndRequestContext(ctx, "dev", "404", nil)
		return
	}

	s.serveRaw(w, rel, data)
	telemetry.EndRequestContext(ctx, "dev", "200", nil)
}

// sourceHash is the cache key component derived from file content.
func sourceHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// serveRaw writes file content with a MIME type derived from the
// extension.
func (s *Server) serveRaw(w http.ResponseWriter, rel string, data []byte) {
	contentType := mime.TypeByExtension(filepath.Ext(rel))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
