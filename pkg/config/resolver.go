package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fresnel-build/fresnel/pkg/plugins"
)

// Resolver transforms declared options into a validated Config.
type Resolver struct {
	validate *validator.Validate
}

// NewResolver creates a resolver with the validation rules registered.
func NewResolver() *Resolver {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field paths by json tag so errors name the declared option
	// ("server.port"), not the Go field.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Resolver{validate: v}
}

// Resolve applies defaults, instantiates plugin descriptors, validates,
// and returns the immutable configuration record. root is the project
// root used to resolve server.fs.allow entries at load time.
//
// Resolution is pure: no sockets, no filesystem reads, no retained
// references. Any failure is a *ConfigError; no partial record is ever
// returned. Resolving structurally equal inputs yields structurally equal
// records.
func (r *Resolver) Resolve(raw RawOptions, root string) (*Config, error) {
	work, err := applyDefaults(raw)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Plugins: clonePlugins(work.Plugins),
		Server: ServerConfig{
			Port: *work.Server.Port,
		},
		Preview: PreviewConfig{
			Port: *work.Preview.Port,
		},
		Test: TestConfig{
			Environment: Environment(*work.Test.Environment),
			CSS:         *work.Test.CSS,
			Coverage: CoverageConfig{
				Enabled:   *work.Test.Coverage.Enabled,
				Reporters: toReporters(work.Test.Coverage.Reporter),
			},
		},
	}

	allow, err := resolveFSAllow(work.Server.FS.Allow, root)
	if err != nil {
		return nil, err
	}
	cfg.Server.FS.Allow = allow

	if err := r.validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve is a convenience wrapper using a fresh resolver.
func Resolve(raw RawOptions, root string) (*Config, error) {
	return NewResolver().Resolve(raw, root)
}

// validateConfig checks the resolved record and maps every failure to a
// field-attributed ConfigError.
func (r *Resolver) validateConfig(cfg *Config) error {
	if err := validatePlugins(cfg.Plugins); err != nil {
		return err
	}

	// Coverage reporters are only required once collection is enabled;
	// validator's required_if cannot see across nested structs, so the
	// check lives here.
	if cfg.Test.Coverage.Enabled && len(cfg.Test.Coverage.Reporters) == 0 {
		return newConfigError("test.coverage.reporter", ReasonMissingRequired,
			"at least one reporter is required when coverage is enabled")
	}

	if err := r.validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !asValidationErrors(err, &fieldErrs) || len(fieldErrs) == 0 {
			return fmt.Errorf("validation failed: %w", err)
		}
		return toConfigError(fieldErrs[0])
	}

	return nil
}

// validatePlugins checks each descriptor: recognized kind, a name, and
// the asset plugin's non-empty extension set.
func validatePlugins(descriptors []plugins.Descriptor) error {
	for i, d := range descriptors {
		field := func(suffix string) string {
			return fmt.Sprintf("plugins[%d].%s", i, suffix)
		}

		switch d.Kind {
		case plugins.KindAsset:
			if d.Asset == nil || len(d.Asset.Extensions) == 0 {
				return newConfigError(field("asset.extensions"), ReasonMissingRequired,
					"asset plugin requires at least one file extension")
			}
			for _, ext := range d.Asset.Extensions {
				if strings.TrimSpace(ext) == "" {
					return newConfigError(field("asset.extensions"), ReasonMissingRequired,
						"extension must not be empty")
				}
			}
		case plugins.KindFramework:
			// No required options; extension defaults inside the plugin.
		default:
			return newConfigError(field("kind"), ReasonUnrecognizedEnum,
				fmt.Sprintf("unknown plugin kind %q", d.Kind))
		}

		if strings.TrimSpace(d.Name) == "" {
			return newConfigError(field("name"), ReasonMissingRequired,
				"plugin name is required")
		}
	}

	return nil
}

// resolveFSAllow resolves allow-list entries against the project root.
// Entries must be syntactically valid path fragments; relative entries are
// joined with root, absolute entries are kept. Pure string work, nothing
// is stat'ed.
func resolveFSAllow(allow []string, root string) ([]string, error) {
	if len(allow) == 0 {
		return nil, nil
	}

	resolved := make([]string, 0, len(allow))
	for i, entry := range allow {
		field := fmt.Sprintf("server.fs.allow[%d]", i)

		if strings.TrimSpace(entry) == "" {
			return nil, newConfigError(field, ReasonMalformedPath, "empty path")
		}
		if strings.ContainsRune(entry, 0) {
			return nil, newConfigError(field, ReasonMalformedPath, "path contains NUL byte")
		}

		cleaned := filepath.Clean(filepath.FromSlash(entry))
		if !filepath.IsAbs(cleaned) {
			cleaned = filepath.Join(root, cleaned)
		}
		resolved = append(resolved, cleaned)
	}

	return resolved, nil
}

// toConfigError maps a validator field error onto the resolution error
// taxonomy.
func toConfigError(fe validator.FieldError) *ConfigError {
	// Namespace is "Config.server.port" after the tag-name function;
	// strip the struct prefix to get the declared option path.
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	var reason Reason
	switch fe.Tag() {
	case "min", "max", "gte", "lte":
		reason = ReasonOutOfRange
	case "oneof":
		reason = ReasonUnrecognizedEnum
	case "required", "required_if":
		reason = ReasonMissingRequired
	default:
		reason = ReasonMissingRequired
	}

	detail := fmt.Sprintf("value %v failed %s", fe.Value(), fe.Tag())
	if fe.Tag() == "min" || fe.Tag() == "max" {
		detail = fmt.Sprintf("value %v outside valid range", fe.Value())
	}

	return newConfigError(field, reason, detail)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = fieldErrs
	return true
}

func clonePlugins(descriptors []plugins.Descriptor) []plugins.Descriptor {
	if descriptors == nil {
		return nil
	}
	out := make([]plugins.Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

func toReporters(names []string) []Reporter {
	if names == nil {
		return nil
	}
	out := make([]Reporter, len(names))
	for i, name := range names {
		out[i] = Reporter(name)
	}
	return out
}
