package config

import (
	"fmt"

	"dario.cat/mergo"
)

// defaultOptions returns the documented defaults as a RawOptions value.
// server.port and preview.port default to the same standard dev port;
// fs.allow defaults to no extra filesystem access; tests default to the
// node-like environment with CSS processing disabled and coverage off.
func defaultOptions() RawOptions {
	devPort := DefaultPort
	previewPort := DefaultPort
	env := string(EnvironmentNode)
	css := false
	coverage := false

	return RawOptions{
		Server: &RawServer{
			Port: &devPort,
			FS:   &RawFS{},
		},
		Preview: &RawPreview{
			Port: &previewPort,
		},
		Test: &RawTest{
			Environment: &env,
			CSS:         &css,
			Coverage: &RawCoverage{
				Enabled: &coverage,
			},
		},
	}
}

// applyDefaults returns a copy of raw with every omitted field filled from
// the documented defaults. Declared values always win, including declared
// zeros: only nil pointers and nil slices are filled. Defaulting runs
// before validation and never corrects an invalid declaration.
func applyDefaults(raw RawOptions) (RawOptions, error) {
	// Deep-copy first: mergo fills nil fields in place, and the caller's
	// declaration must never be written through.
	work := raw.clone()

	// WithoutDereference keeps declared zeros: a non-nil pointer is a
	// declaration and must never be overwritten, even when it points at a
	// zero value.
	if err := mergo.Merge(&work, defaultOptions(), mergo.WithoutDereference); err != nil {
		return RawOptions{}, fmt.Errorf("failed to apply defaults: %w", err)
	}

	// With dereferencing off mergo only fills nil top-level sections;
	// inner fields of declared sections are defaulted here.
	if work.Server.FS == nil {
		work.Server.FS = &RawFS{}
	}
	if work.Server.Port == nil {
		port := DefaultPort
		work.Server.Port = &port
	}
	if work.Preview.Port == nil {
		port := DefaultPort
		work.Preview.Port = &port
	}
	if work.Test.Coverage == nil {
		enabled := false
		work.Test.Coverage = &RawCoverage{Enabled: &enabled}
	}
	if work.Test.Coverage.Enabled == nil {
		enabled := false
		work.Test.Coverage.Enabled = &enabled
	}
	if work.Test.Environment == nil {
		env := string(EnvironmentNode)
		work.Test.Environment = &env
	}
	if work.Test.CSS == nil {
		css := false
		work.Test.CSS = &css
	}

	// mergo cannot tell a declared empty reporter list from an omitted
	// one, and an explicitly empty list must stay empty so validation can
	// reject it when coverage is enabled. Default only the nil case.
	if work.Test.Coverage.Reporter == nil && raw.coverageReporterOmitted() {
		work.Test.Coverage.Reporter = []string{string(ReporterText)}
	}

	return work, nil
}

// coverageReporterOmitted reports whether test.coverage.reporter was left
// out of the declaration entirely (as opposed to declared empty).
func (r RawOptions) coverageReporterOmitted() bool {
	if r.Test == nil || r.Test.Coverage == nil {
		return true
	}
	return r.Test.Coverage.Reporter == nil
}

// clone deep-copies the declared options so defaulting can fill gaps
// without writing through to the caller.
func (r RawOptions) clone() RawOptions {
	out := RawOptions{
		Plugins: clonePlugins(r.Plugins),
	}

	if r.Server != nil {
		server := &RawServer{Port: cloneInt(r.Server.Port)}
		if r.Server.FS != nil {
			server.FS = &RawFS{Allow: cloneStrings(r.Server.FS.Allow)}
		}
		out.Server = server
	}

	if r.Preview != nil {
		out.Preview = &RawPreview{Port: cloneInt(r.Preview.Port)}
	}

	if r.Test != nil {
		test := &RawTest{
			Environment: cloneString(r.Test.Environment),
			CSS:         cloneBool(r.Test.CSS),
		}
		if r.Test.Coverage != nil {
			test.Coverage = &RawCoverage{
				Enabled:  cloneBool(r.Test.Coverage.Enabled),
				Reporter: cloneStrings(r.Test.Coverage.Reporter),
			}
		}
		out.Test = test
	}

	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
