package plugins

import (
	"fmt"
	"strings"
)

// Kind identifies a plugin variant.
type Kind string

const (
	// KindAsset is the asset-ingestion plugin.
	KindAsset Kind = "asset"

	// KindFramework is the framework-integration plugin.
	KindFramework Kind = "framework"
)

// Kinds lists all recognized plugin kinds.
func Kinds() []Kind {
	return []Kind{KindAsset, KindFramework}
}

// Descriptor declares a single plugin in the transform pipeline.
// Exactly one options variant must be set, matching the Kind tag.
type Descriptor struct {
	// Kind selects the plugin variant.
	Kind Kind `json:"kind" yaml:"kind"`

	// Name is the human-readable plugin name used in logs and metrics.
	Name string `json:"name" yaml:"name"`

	// Asset holds options for the asset-ingestion plugin.
	Asset *AssetOptions `json:"asset,omitempty" yaml:"asset,omitempty"`

	// Framework holds options for the framework-integration plugin.
	Framework *FrameworkOptions `json:"framework,omitempty" yaml:"framework,omitempty"`
}

// AssetOptions configures the asset-ingestion plugin.
type AssetOptions struct {
	// Extensions is the set of recognized file extensions, with leading
	// dots (e.g. ".png", ".gltf"). At least one is required for the
	// plugin to be meaningful.
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// FrameworkOptions configures the framework-integration plugin.
type FrameworkOptions struct {
	// Extension is the single-file-component extension the framework
	// claims (e.g. ".svelte"). Defaults to ".svelte" when empty.
	Extension string `json:"extension,omitempty" yaml:"extension,omitempty"`

	// Hydrate enables client-side hydration in the emitted module.
	Hydrate bool `json:"hydrate,omitempty" yaml:"hydrate,omitempty"`
}

// String returns a compact identity for logs, e.g. "asset(static-assets)".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s)", d.Kind, d.Name)
}

// Extensions returns the file extensions the descriptor claims,
// regardless of variant.
func (d Descriptor) Extensions() []string {
	switch d.Kind {
	case KindAsset:
		if d.Asset == nil {
			return nil
		}
		return d.Asset.Extensions
	case KindFramework:
		ext := ""
		if d.Framework != nil {
			ext = d.Framework.Extension
		}
		if ext == "" {
			ext = defaultFrameworkExtension
		}
		return []string{ext}
	}
	return nil
}

// normalizeExtension lower-cases an extension and ensures a leading dot.
func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
