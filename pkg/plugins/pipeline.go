package plugins

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnhandled is returned by Pipeline.Transform when no plugin in the
// pipeline claims the requested file. Callers typically serve the file
// unchanged in that case.
var ErrUnhandled = errors.New("no plugin claims file")

// TransformRequest describes a single file handed to the pipeline.
type TransformRequest struct {
	// Path is the project-relative file path.
	Path string

	// Source is the raw file content.
	Source []byte
}

// TransformResult is the output of a plugin transform.
type TransformResult struct {
	// Output is the transformed module source.
	Output []byte

	// Plugin is the name of the plugin that produced the output.
	Plugin string

	// ContentType is the MIME type of the output.
	ContentType string
}

// Transformer is a constructed plugin instance.
type Transformer interface {
	// Name returns the declared plugin name.
	Name() string

	// Claims reports whether the plugin handles the given file path.
	Claims(path string) bool

	// Transform converts the file into an importable module.
	Transform(ctx context.Context, req TransformRequest) (*TransformResult, error)
}

// Pipeline applies transformers in declaration order. The first
// transformer that claims a file handles it; later ones never see it.
type Pipeline struct {
	transformers []Transformer
}

// NewPipeline creates a pipeline from an ordered transformer list.
func NewPipeline(transformers []Transformer) *Pipeline {
	return &Pipeline{transformers: transformers}
}

// Len returns the number of transformers in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.transformers)
}

// Names returns transformer names in pipeline order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.transformers))
	for i, t := range p.transformers {
		names[i] = t.Name()
	}
	return names
}

// Claims reports whether any transformer handles the given path.
func (p *Pipeline) Claims(path string) bool {
	_, ok := p.ClaimedBy(path)
	return ok
}

// ClaimedBy returns the name of the first transformer claiming the path.
func (p *Pipeline) ClaimedBy(path string) (string, bool) {
	for _, t := range p.transformers {
		if t.Claims(path) {
			return t.Name(), true
		}
	}
	return "", false
}

// Transform runs the request through the pipeline. Returns ErrUnhandled
// when no transformer claims the file.
func (p *Pipeline) Transform(ctx context.Context, req TransformRequest) (*TransformResult, error) {
	for _, t := range p.transformers {
		if !t.Claims(req.Path) {
			continue
		}

		result, err := t.Transform(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("plugin %s failed on %s: %w", t.Name(), req.Path, err)
		}
		return result, nil
	}

	return nil, ErrUnhandled
}
