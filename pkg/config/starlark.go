package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// StarlarkFileName is the optional procedural config script probed next
// to the declared config file.
const StarlarkFileName = "fresnel.star"

// StarlarkEvaluator executes the procedural configuration hook. Scripts
// run sandboxed: no filesystem access, no network access, print
// suppressed, and a hard timeout.
type StarlarkEvaluator struct {
	timeout time.Duration
}

// NewStarlarkEvaluator creates an evaluator with the given timeout.
func NewStarlarkEvaluator(timeout time.Duration) *StarlarkEvaluator {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &StarlarkEvaluator{timeout: timeout}
}

// LoadOptions runs the script at path and decodes its `config` global
// into RawOptions. The input map (e.g. {"mode": "development"}) is
// exposed to the script as predeclared globals.
func (se *StarlarkEvaluator) LoadOptions(ctx context.Context, path string, input map[string]interface{}) (RawOptions, error) {
	script, err := os.ReadFile(path)
	if err != nil {
		return RawOptions{}, fmt.Errorf("failed to read script: %w", err)
	}

	globals, err := se.Evaluate(ctx, string(script), input)
	if err != nil {
		return RawOptions{}, err
	}

	declared, ok := globals["config"]
	if !ok {
		return RawOptions{}, fmt.Errorf("%s does not define a config value", path)
	}

	// Round-trip through JSON so the loosely typed Starlark output lands
	// in the same typed structure the file loaders produce.
	encoded, err := json.Marshal(declared)
	if err != nil {
		return RawOptions{}, fmt.Errorf("failed to encode script output: %w", err)
	}

	var raw RawOptions
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return RawOptions{}, fmt.Errorf("failed to decode script output: %w", err)
	}

	return raw, nil
}

// Evaluate executes a script and returns its exported globals as Go
// values. Globals starting with an underscore are treated as private and
// skipped.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, script string, input map[string]interface{}) (map[string]interface{}, error) {
	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	resultCh := make(chan map[string]interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		output, err := se.evaluateSync(script, input)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- output
	}()

	select {
	case <-evalCtx.Done():
		return nil, fmt.Errorf("script execution timeout after %v", se.timeout)
	case err := <-errCh:
		return nil, err
	case output := <-resultCh:
		return output, nil
	}
}

func (se *StarlarkEvaluator) evaluateSync(script string, input map[string]interface{}) (map[string]interface{}, error) {
	thread := &starlark.Thread{
		Name: "fresnel",
		Print: func(_ *starlark.Thread, msg string) {
			// Suppressed: scripts have no output channel.
		},
	}

	predeclared := starlark.StringDict{
		"struct": starlarkstruct.Default,
	}

	for key, val := range input {
		starlarkVal, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = starlarkVal
	}

	globals, err := starlark.ExecFile(thread, StarlarkFileName, script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("script execution failed: %w", err)
	}

	output := make(map[string]interface{})
	for name, val := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert output %s: %w", name, err)
		}
		output[name] = goVal
	}

	return output, nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			starlarkVal, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlark.Function:
		return nil, fmt.Errorf("function %s cannot be exported", val.Name())
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
