package devserver

import (
	"path/filepath"
	"testing"
)

func abs(parts ...string) string {
	return filepath.Join(append([]string{string(filepath.Separator)}, parts...)...)
}

func TestAllowList(t *testing.T) {
	root := abs("work", "app")
	allow := NewAllowList(root, []string{
		abs("work", "shared"),
		abs("opt", "assets"),
	})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "project root itself", path: root, want: true},
		{name: "file inside root", path: filepath.Join(root, "src", "main.js"), want: true},
		{name: "allowed sibling", path: abs("work", "shared", "lib.js"), want: true},
		{name: "allowed prefix root", path: abs("opt", "assets"), want: true},
		{name: "outside everything", path: abs("etc", "passwd"), want: false},
		{name: "parent of root", path: abs("work"), want: false},
		{name: "prefix name collision", path: abs("work", "shared-secrets", "key"), want: false},
		{name: "dotdot normalized into root", path: filepath.Join(root, "src", "..", "index.html"), want: true},
		{name: "dotdot escaping root", path: filepath.Join(root, "..", "other", "file"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allow.Allowed(tt.path); got != tt.want {
				t.Errorf("Allowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAllowListEmptyPrefixes(t *testing.T) {
	root := abs("proj")
	allow := NewAllowList(root, nil)

	if !allow.Allowed(filepath.Join(root, "src", "app.js")) {
		t.Error("path inside root rejected")
	}
	if allow.Allowed(abs("other")) {
		t.Error("path outside root allowed with no prefixes")
	}
}
