package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fresnel-build/fresnel/pkg/plugins"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(RawOptions{}, "/proj")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Preview.Port != DefaultPort {
		t.Errorf("Preview.Port = %d, want %d", cfg.Preview.Port, DefaultPort)
	}
	if cfg.Test.Environment != EnvironmentNode {
		t.Errorf("Test.Environment = %q, want %q", cfg.Test.Environment, EnvironmentNode)
	}
	if cfg.Test.CSS {
		t.Error("Test.CSS = true, want false")
	}
	if cfg.Test.Coverage.Enabled {
		t.Error("Test.Coverage.Enabled = true, want false")
	}
	if want := []Reporter{ReporterText}; !reflect.DeepEqual(cfg.Test.Coverage.Reporters, want) {
		t.Errorf("Test.Coverage.Reporters = %v, want %v", cfg.Test.Coverage.Reporters, want)
	}
	if len(cfg.Plugins) != 0 {
		t.Errorf("Plugins = %v, want empty", cfg.Plugins)
	}
}

func TestResolvePortValidation(t *testing.T) {
	tests := []struct {
		name       string
		port       int
		wantField  string
		wantReason Reason
		wantErr    bool
	}{
		{name: "zero", port: 0, wantField: "server.port", wantReason: ReasonOutOfRange, wantErr: true},
		{name: "negative", port: -1, wantField: "server.port", wantReason: ReasonOutOfRange, wantErr: true},
		{name: "above range", port: 70000, wantField: "server.port", wantReason: ReasonOutOfRange, wantErr: true},
		{name: "lower bound", port: 1},
		{name: "upper bound", port: 65535},
		{name: "typical", port: 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawOptions{Server: &RawServer{Port: intPtr(tt.port)}}
			cfg, err := Resolve(raw, "/proj")

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				if cfg.Server.Port != tt.port {
					t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, tt.port)
				}
				return
			}

			if err == nil {
				t.Fatal("Resolve() error = nil, want error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type = %T, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if cfgErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", cfgErr.Reason, tt.wantReason)
			}
			if cfg != nil {
				t.Error("Resolve() returned a config alongside an error")
			}
		})
	}
}

func TestResolvePreviewPortValidation(t *testing.T) {
	raw := RawOptions{Preview: &RawPreview{Port: intPtr(0)}}
	_, err := Resolve(raw, "/proj")

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
	if cfgErr.Field != "preview.port" {
		t.Errorf("Field = %q, want %q", cfgErr.Field, "preview.port")
	}
	if cfgErr.Reason != ReasonOutOfRange {
		t.Errorf("Reason = %q, want %q", cfgErr.Reason, ReasonOutOfRange)
	}
}

func TestResolvePortCollisionPermitted(t *testing.T) {
	raw := RawOptions{
		Server:  &RawServer{Port: intPtr(3000)},
		Preview: &RawPreview{Port: intPtr(3000)},
	}

	cfg, err := Resolve(raw, "/proj")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Port != 3000 || cfg.Preview.Port != 3000 {
		t.Errorf("ports = (%d, %d), want (3000, 3000)", cfg.Server.Port, cfg.Preview.Port)
	}
}

func TestResolveEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		want    Environment
		wantErr bool
	}{
		{name: "node", env: "node", want: EnvironmentNode},
		{name: "dom", env: "dom", want: EnvironmentDOM},
		{name: "unknown", env: "jsdom", wantErr: true},
		{name: "cased", env: "Node", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawOptions{Test: &RawTest{Environment: strPtr(tt.env)}}
			cfg, err := Resolve(raw, "/proj")

			if tt.wantErr {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error = %v, want *ConfigError", err)
				}
				if cfgErr.Field != "test.environment" {
					t.Errorf("Field = %q, want %q", cfgErr.Field, "test.environment")
				}
				if cfgErr.Reason != ReasonUnrecognizedEnum {
					t.Errorf("Reason = %q, want %q", cfgErr.Reason, ReasonUnrecognizedEnum)
				}
				return
			}

			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if cfg.Test.Environment != tt.want {
				t.Errorf("Test.Environment = %q, want %q", cfg.Test.Environment, tt.want)
			}
		})
	}
}

func TestResolveCoverageReporters(t *testing.T) {
	tests := []struct {
		name       string
		coverage   *RawCoverage
		want       []Reporter
		wantField  string
		wantReason Reason
	}{
		{
			name: "declared order preserved",
			coverage: &RawCoverage{
				Enabled:  boolPtr(true),
				Reporter: []string{"text", "json-summary"},
			},
			want: []Reporter{ReporterText, ReporterJSONSummary},
		},
		{
			name:     "omitted defaults to text",
			coverage: &RawCoverage{Enabled: boolPtr(true)},
			want:     []Reporter{ReporterText},
		},
		{
			name: "unknown reporter rejected",
			coverage: &RawCoverage{
				Enabled:  boolPtr(true),
				Reporter: []string{"text", "cobertura"},
			},
			wantField:  "test.coverage.reporter[1]",
			wantReason: ReasonUnrecognizedEnum,
		},
		{
			name: "declared empty with coverage enabled",
			coverage: &RawCoverage{
				Enabled:  boolPtr(true),
				Reporter: []string{},
			},
			wantField:  "test.coverage.reporter",
			wantReason: ReasonMissingRequired,
		},
		{
			name: "declared empty with coverage disabled",
			coverage: &RawCoverage{
				Enabled:  boolPtr(false),
				Reporter: []string{},
			},
			want: []Reporter{},
		},
		{
			name: "all known reporters",
			coverage: &RawCoverage{
				Enabled:  boolPtr(true),
				Reporter: []string{"lcov", "html", "json", "json-summary", "text"},
			},
			want: []Reporter{ReporterLCOV, ReporterHTML, ReporterJSON, ReporterJSONSummary, ReporterText},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawOptions{Test: &RawTest{Coverage: tt.coverage}}
			cfg, err := Resolve(raw, "/proj")

			if tt.wantField != "" {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error = %v, want *ConfigError", err)
				}
				if cfgErr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
				}
				if cfgErr.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", cfgErr.Reason, tt.wantReason)
				}
				return
			}

			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !reflect.DeepEqual(cfg.Test.Coverage.Reporters, tt.want) {
				t.Errorf("Reporters = %v, want %v", cfg.Test.Coverage.Reporters, tt.want)
			}
		})
	}
}

func TestResolvePluginOrder(t *testing.T) {
	raw := RawOptions{
		Plugins: []plugins.Descriptor{
			{Kind: plugins.KindAsset, Name: "images", Asset: &plugins.AssetOptions{Extensions: []string{".png"}}},
			{Kind: plugins.KindFramework, Name: "svelte", Framework: &plugins.FrameworkOptions{}},
		},
	}

	cfg, err := Resolve(raw, "/proj")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(cfg.Plugins) != 2 {
		t.Fatalf("len(Plugins) = %d, want 2", len(cfg.Plugins))
	}
	if cfg.Plugins[0].Name != "images" || cfg.Plugins[1].Name != "svelte" {
		t.Errorf("plugin order = [%s, %s], want [images, svelte]",
			cfg.Plugins[0].Name, cfg.Plugins[1].Name)
	}
}

func TestResolvePluginValidation(t *testing.T) {
	tests := []struct {
		name       string
		descriptor plugins.Descriptor
		wantField  string
		wantReason Reason
	}{
		{
			name:       "unknown kind",
			descriptor: plugins.Descriptor{Kind: "bundler", Name: "x"},
			wantField:  "plugins[0].kind",
			wantReason: ReasonUnrecognizedEnum,
		},
		{
			name:       "missing name",
			descriptor: plugins.Descriptor{Kind: plugins.KindAsset, Asset: &plugins.AssetOptions{Extensions: []string{".png"}}},
			wantField:  "plugins[0].name",
			wantReason: ReasonMissingRequired,
		},
		{
			name:       "asset without extensions",
			descriptor: plugins.Descriptor{Kind: plugins.KindAsset, Name: "images", Asset: &plugins.AssetOptions{}},
			wantField:  "plugins[0].asset.extensions",
			wantReason: ReasonMissingRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawOptions{Plugins: []plugins.Descriptor{tt.descriptor}}
			_, err := Resolve(raw, "/proj")

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if cfgErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", cfgErr.Reason, tt.wantReason)
			}
		})
	}
}

func TestResolveFSAllow(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj")

	t.Run("relative entries resolved against root", func(t *testing.T) {
		raw := RawOptions{Server: &RawServer{FS: &RawFS{Allow: []string{"src", "../shared"}}}}
		cfg, err := Resolve(raw, root)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		want := []string{
			filepath.Join(root, "src"),
			filepath.Join(string(filepath.Separator), "shared"),
		}
		if !reflect.DeepEqual(cfg.Server.FS.Allow, want) {
			t.Errorf("Allow = %v, want %v", cfg.Server.FS.Allow, want)
		}
	})

	t.Run("absolute entries kept", func(t *testing.T) {
		abs := filepath.Join(string(filepath.Separator), "opt", "assets")
		raw := RawOptions{Server: &RawServer{FS: &RawFS{Allow: []string{abs}}}}
		cfg, err := Resolve(raw, root)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !reflect.DeepEqual(cfg.Server.FS.Allow, []string{abs}) {
			t.Errorf("Allow = %v, want [%s]", cfg.Server.FS.Allow, abs)
		}
	})

	t.Run("malformed entries rejected", func(t *testing.T) {
		tests := []struct {
			name  string
			entry string
		}{
			{name: "empty", entry: ""},
			{name: "whitespace", entry: "   "},
			{name: "nul byte", entry: "src\x00dir"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				raw := RawOptions{Server: &RawServer{FS: &RawFS{Allow: []string{"ok", tt.entry}}}}
				_, err := Resolve(raw, root)

				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error = %v, want *ConfigError", err)
				}
				if cfgErr.Field != "server.fs.allow[1]" {
					t.Errorf("Field = %q, want %q", cfgErr.Field, "server.fs.allow[1]")
				}
				if cfgErr.Reason != ReasonMalformedPath {
					t.Errorf("Reason = %q, want %q", cfgErr.Reason, ReasonMalformedPath)
				}
			})
		}
	})
}

func TestResolveIdempotent(t *testing.T) {
	raw := RawOptions{
		Plugins: []plugins.Descriptor{
			{Kind: plugins.KindAsset, Name: "images", Asset: &plugins.AssetOptions{Extensions: []string{".png", ".jpg"}}},
		},
		Server: &RawServer{Port: intPtr(3000), FS: &RawFS{Allow: []string{"src"}}},
		Test: &RawTest{
			Environment: strPtr("dom"),
			CSS:         boolPtr(true),
			Coverage:    &RawCoverage{Enabled: boolPtr(true), Reporter: []string{"text", "lcov"}},
		},
	}

	first, err := Resolve(raw, "/proj")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := Resolve(raw, "/proj")
	if err != nil {
		t.Fatalf("Resolve() second error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated resolution diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	raw := RawOptions{Server: &RawServer{FS: &RawFS{Allow: []string{"src"}}}}

	if _, err := Resolve(raw, "/proj"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if raw.Server.Port != nil {
		t.Error("input Server.Port was mutated")
	}
	if raw.Preview != nil || raw.Test != nil {
		t.Error("input gained defaulted sections")
	}
	if !reflect.DeepEqual(raw.Server.FS.Allow, []string{"src"}) {
		t.Errorf("input Allow mutated: %v", raw.Server.FS.Allow)
	}
}

func TestResolveFullProject(t *testing.T) {
	raw := RawOptions{
		Plugins: []plugins.Descriptor{
			{Kind: plugins.KindFramework, Name: "svelte", Framework: &plugins.FrameworkOptions{Hydrate: true}},
			{Kind: plugins.KindAsset, Name: "images", Asset: &plugins.AssetOptions{Extensions: []string{".png", ".svg"}}},
		},
		Server:  &RawServer{Port: intPtr(3000), FS: &RawFS{Allow: []string{"..", "static"}}},
		Preview: &RawPreview{Port: intPtr(3000)},
		Test: &RawTest{
			Environment: strPtr("dom"),
			CSS:         boolPtr(true),
			Coverage:    &RawCoverage{Enabled: boolPtr(true), Reporter: []string{"text", "json-summary"}},
		},
	}

	cfg, err := Resolve(raw, filepath.Join(string(filepath.Separator), "work", "app"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if cfg.Server.Port != 3000 || cfg.Preview.Port != 3000 {
		t.Errorf("ports = (%d, %d), want (3000, 3000)", cfg.Server.Port, cfg.Preview.Port)
	}
	if cfg.Test.Environment != EnvironmentDOM {
		t.Errorf("environment = %q, want dom", cfg.Test.Environment)
	}
	if !cfg.Test.CSS {
		t.Error("CSS = false, want true")
	}
	if want := []Reporter{ReporterText, ReporterJSONSummary}; !reflect.DeepEqual(cfg.Test.Coverage.Reporters, want) {
		t.Errorf("Reporters = %v, want %v", cfg.Test.Coverage.Reporters, want)
	}
	if cfg.Plugins[0].Name != "svelte" || cfg.Plugins[1].Name != "images" {
		t.Errorf("plugin order = [%s, %s], want [svelte, images]", cfg.Plugins[0].Name, cfg.Plugins[1].Name)
	}
	if want := filepath.Join(string(filepath.Separator), "work"); cfg.Server.FS.Allow[0] != want {
		t.Errorf("Allow[0] = %q, want %q", cfg.Server.FS.Allow[0], want)
	}
}
