package plugins

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// assetTransformer rewrites raw asset files into ES modules exporting the
// asset's served URL. The dev server serves the original bytes under the
// /@asset/ prefix; imports resolve to that URL.
type assetTransformer struct {
	name       string
	extensions map[string]bool
}

// newAssetTransformer builds a transformer from asset options. The
// extension set must be non-empty; the config resolver enforces that
// before a descriptor reaches the registry.
func newAssetTransformer(name string, opts *AssetOptions) (*assetTransformer, error) {
	if opts == nil || len(opts.Extensions) == 0 {
		return nil, fmt.Errorf("asset plugin %s has no extensions", name)
	}

	extensions := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		normalized := normalizeExtension(ext)
		if normalized == "" {
			return nil, fmt.Errorf("asset plugin %s has an empty extension", name)
		}
		extensions[normalized] = true
	}

	return &assetTransformer{
		name:       name,
		extensions: extensions,
	}, nil
}

// Name returns the declared plugin name.
func (t *assetTransformer) Name() string {
	return t.name
}

// Claims reports whether the file extension is in the recognized set.
func (t *assetTransformer) Claims(filePath string) bool {
	return t.extensions[strings.ToLower(path.Ext(filePath))]
}

// Transform emits a module whose default export is the asset URL. The URL
// carries a content hash so browsers can cache aggressively.
func (t *assetTransformer) Transform(_ context.Context, req TransformRequest) (*TransformResult, error) {
	sum := sha256.Sum256(req.Source)
	url := fmt.Sprintf("/@asset/%s?v=%s", req.Path, hex.EncodeToString(sum[:8]))

	output := fmt.Sprintf("export default %q;\n", url)

	return &TransformResult{
		Output:      []byte(output),
		Plugin:      t.name,
		ContentType: "text/javascript",
	}, nil
}
