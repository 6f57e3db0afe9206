package testrunner

import (
	"context"
	"fmt"

	"github.com/fresnel-build/fresnel/pkg/config"
)

// Environment is a simulated execution context for test files. The
// runner prepares the environment once per run and hands it to the
// executor with every file; the execution engine itself is an external
// collaborator.
type Environment interface {
	// Name returns the environment identifier used in run records and
	// metrics labels.
	Name() string

	// Setup prepares the environment before any file executes.
	Setup(ctx context.Context) error

	// Globals returns the ambient bindings the environment provides to
	// executing files.
	Globals() map[string]interface{}

	// Teardown releases the environment after the run completes.
	Teardown(ctx context.Context) error
}

// NewEnvironment builds the environment for a validated environment
// name. The resolver guarantees the name is one of the known values.
func NewEnvironment(env config.Environment) (Environment, error) {
	switch env {
	case config.EnvironmentNode:
		return &nodeEnvironment{}, nil
	case config.EnvironmentDOM:
		return &domEnvironment{}, nil
	default:
		return nil, fmt.Errorf("unknown test environment %q", env)
	}
}

// nodeEnvironment is the plain server-side context. It provides process
// bindings and nothing browser-shaped.
type nodeEnvironment struct {
	globals map[string]interface{}
}

func (e *nodeEnvironment) Name() string {
	return string(config.EnvironmentNode)
}

func (e *nodeEnvironment) Setup(_ context.Context) error {
	e.globals = map[string]interface{}{
		"process": map[string]interface{}{
			"env":      map[string]interface{}{"NODE_ENV": "test"},
			"platform": "linux",
		},
	}
	return nil
}

func (e *nodeEnvironment) Globals() map[string]interface{} {
	return e.globals
}

func (e *nodeEnvironment) Teardown(_ context.Context) error {
	e.globals = nil
	return nil
}

// domEnvironment layers a simulated browser context on top of the node
// bindings: window, document, and navigator objects that test files can
// touch without a real browser.
type domEnvironment struct {
	globals map[string]interface{}
}

func (e *domEnvironment) Name() string {
	return string(config.EnvironmentDOM)
}

func (e *domEnvironment) Setup(_ context.Context) error {
	document := map[string]interface{}{
		"title":       "",
		"readyState":  "complete",
		"body":        map[string]interface{}{"children": []interface{}{}},
		"styleSheets": []interface{}{},
	}
	e.globals = map[string]interface{}{
		"process": map[string]interface{}{
			"env": map[string]interface{}{"NODE_ENV": "test"},
		},
		"window": map[string]interface{}{
			"location": map[string]interface{}{"href": "http://localhost/"},
			"document": document,
		},
		"document": document,
		"navigator": map[string]interface{}{
			"userAgent": "fresnel/simulated",
		},
	}
	return nil
}

func (e *domEnvironment) Globals() map[string]interface{} {
	return e.globals
}

func (e *domEnvironment) Teardown(_ context.Context) error {
	e.globals = nil
	return nil
}
