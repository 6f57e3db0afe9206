package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fresnel-build/fresnel/pkg/config"
	"github.com/fresnel-build/fresnel/pkg/plugins"
	"github.com/fresnel-build/fresnel/pkg/stores"
	"github.com/fresnel-build/fresnel/pkg/telemetry"
)

func setupServer(t *testing.T, raw config.RawOptions) (*Server, string) {
	t.Helper()

	root := t.TempDir()

	cfg, err := config.Resolve(raw, root)
	if err != nil {
		t.Fatalf("failed to resolve config: %v", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}

	srv, err := NewServer(cfg, root, store, tel)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	return srv, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestServeStaticFile(t *testing.T) {
	srv, root := setupServer(t, config.RawOptions{})
	writeFile(t, root, "index.html", "<html><body>hello</body></html>")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hello") {
		t.Errorf("body = %q, want index content", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

func TestServeMissingFile(t *testing.T) {
	srv, _ := setupServer(t, config.RawOptions{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.js", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServeTransformedAsset(t *testing.T) {
	raw := config.RawOptions{
		Plugins: []plugins.Descriptor{
			{
				Kind:  plugins.KindAsset,
				Name:  "images",
				Asset: &plugins.AssetOptions{Extensions: []string{".png"}},
			},
		},
	}
	srv, root := setupServer(t, raw)
	writeFile(t, root, "src/logo.png", "not-really-a-png")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/src/logo.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "export default") {
		t.Errorf("body = %q, want a module export", body)
	}
	if !strings.Contains(body, "/@asset/src/logo.png") {
		t.Errorf("body = %q, want asset URL", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("Content-Type = %q, want javascript", ct)
	}
}

func TestTransformCachePersistence(t *testing.T) {
	raw := config.RawOptions{
		Plugins: []plugins.Descriptor{
			{
				Kind:  plugins.KindAsset,
				Name:  "images",
				Asset: &plugins.AssetOptions{Extensions: []string{".png"}},
			},
		},
	}
	srv, root := setupServer(t, raw)
	writeFile(t, root, "logo.png", "png-bytes")

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	// The transform must now be cached for this path and content.
	entries, err := srv.store.GetTransform(context.Background(), "logo.png", sourceHash([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("cache lookup failed: %v", err)
	}
	if entries == nil {
		t.Fatal("transform was not cached")
	}
	if entries.Plugin != "images" {
		t.Errorf("cached plugin = %q, want images", entries.Plugin)
	}

	// Second request must serve the identical output.
	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	if second.Body.String() != first.Body.String() {
		t.Errorf("cached response differs:\nfirst:  %q\nsecond: %q", first.Body.String(), second.Body.String())
	}
}

func TestServeAssetBytes(t *testing.T) {
	srv, root := setupServer(t, config.RawOptions{})
	writeFile(t, root, "img/pic.png", "raw-image-bytes")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/@asset/img/pic.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "raw-image-bytes" {
		t.Errorf("body = %q, want raw bytes", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "image/png") {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestPathTraversalNeutralized(t *testing.T) {
	srv, root := setupServer(t, config.RawOptions{})
	writeFile(t, root, "safe.txt", "inside")

	// The mux cleans traversal segments before routing; the request is
	// redirected to the in-root path instead of escaping it.
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/../../safe.txt", nil))

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/safe.txt" {
		t.Errorf("Location = %q, want /safe.txt", loc)
	}
}
