package plugins

import (
	"context"
	"fmt"
	"path"
	"strings"
)

const defaultFrameworkExtension = ".svelte"

// frameworkTransformer claims the framework's single-file-component
// extension and wraps each component into a module stub that the external
// component compiler fills in. The compiler itself is not part of Fresnel;
// this transformer models only the pipeline boundary.
type frameworkTransformer struct {
	name      string
	extension string
	hydrate   bool
}

func newFrameworkTransformer(name string, opts *FrameworkOptions) (*frameworkTransformer, error) {
	ext := defaultFrameworkExtension
	hydrate := false

	if opts != nil {
		if opts.Extension != "" {
			ext = normalizeExtension(opts.Extension)
		}
		hydrate = opts.Hydrate
	}

	if ext == "" || ext == "." {
		return nil, fmt.Errorf("framework plugin %s has an invalid extension %q", name, ext)
	}

	return &frameworkTransformer{
		name:      name,
		extension: ext,
		hydrate:   hydrate,
	}, nil
}

// Name returns the declared plugin name.
func (t *frameworkTransformer) Name() string {
	return t.name
}

// Claims reports whether the file carries the framework extension.
func (t *frameworkTransformer) Claims(filePath string) bool {
	return strings.ToLower(path.Ext(filePath)) == t.extension
}

// Transform emits the component module stub.
func (t *frameworkTransformer) Transform(_ context.Context, req TransformRequest) (*TransformResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// module: %s\n", req.Path)
	fmt.Fprintf(&b, "import { mount } from %q;\n", "/@framework/runtime.js")
	fmt.Fprintf(&b, "const source = %q;\n", string(req.Source))
	fmt.Fprintf(&b, "export default mount(source, { hydrate: %t });\n", t.hydrate)

	return &TransformResult{
		Output:      []byte(b.String()),
		Plugin:      t.name,
		ContentType: "text/javascript",
	}, nil
}
