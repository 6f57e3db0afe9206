package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// configFileNames are probed in order by FindConfig.
var configFileNames = []string{"fresnel.cue", "fresnel.yaml", "fresnel.yml"}

// ParseError is a config file syntax or decode failure with source
// location information when the format provides it.
type ParseError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed, 0 when unknown).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed, 0 when unknown).
	Column int `json:"column,omitempty"`

	// Message is the parser's message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Loader parses declared configuration files into RawOptions.
type Loader struct {
	ctx *cue.Context
}

// NewLoader creates a config file loader.
func NewLoader() *Loader {
	return &Loader{
		ctx: cuecontext.New(),
	}
}

// FindConfig locates the project's config file under root. Returns the
// path of the first match, or an error when none exists.
func FindConfig(root string) (string, error) {
	for _, name := range configFileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no config file found in %s (looked for %s)",
		root, strings.Join(configFileNames, ", "))
}

// Load parses the config file at path, dispatching on its extension.
func (l *Loader) Load(path string) (RawOptions, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return l.loadCUE(path)
	case ".yaml", ".yml":
		return l.loadYAML(path)
	default:
		return RawOptions{}, fmt.Errorf("unsupported config format %s", filepath.Ext(path))
	}
}

// LoadInline parses inline CUE content, attributing errors to the given
// synthetic filename.
func (l *Loader) LoadInline(content, filename string) (RawOptions, error) {
	if filename == "" {
		filename = "inline"
	}
	return l.decodeCUE(l.ctx.CompileString(content, cue.Filename(filename)), filename)
}

func (l *Loader) loadCUE(path string) (RawOptions, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return RawOptions{}, fmt.Errorf("failed to read config: %w", err)
	}

	val := l.ctx.CompileString(string(content), cue.Filename(path))
	return l.decodeCUE(val, path)
}

func (l *Loader) decodeCUE(val cue.Value, path string) (RawOptions, error) {
	if err := val.Err(); err != nil {
		return RawOptions{}, convertCUEError(err, path)
	}

	var raw RawOptions
	if err := val.Decode(&raw); err != nil {
		return RawOptions{}, convertCUEError(err, path)
	}

	return raw, nil
}

func (l *Loader) loadYAML(path string) (RawOptions, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return RawOptions{}, fmt.Errorf("failed to read config: %w", err)
	}

	var raw RawOptions
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return RawOptions{}, &ParseError{
			File:    path,
			Message: strings.TrimPrefix(err.Error(), "yaml: "),
		}
	}

	return raw, nil
}

// convertCUEError turns a CUE error into a ParseError carrying the first
// reported source position.
func convertCUEError(err error, fallbackFile string) *ParseError {
	parseErr := &ParseError{
		File:    fallbackFile,
		Message: errors.Details(err, nil),
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return parseErr
	}

	first := errs[0]
	parseErr.Message = first.Error()
	if pos := errors.Positions(first); len(pos) > 0 {
		parseErr.File = pos[0].Filename()
		parseErr.Line = pos[0].Line()
		parseErr.Column = pos[0].Column()
	}

	return parseErr
}
