package devserver

import (
	"path/filepath"
	"strings"
)

// AllowList decides which filesystem paths the dev server may serve.
// Paths inside the project root are always allowed; paths outside it must
// sit under one of the configured allow prefixes. Checks are pure string
// operations against already-resolved absolute prefixes.
type AllowList struct {
	root     string
	prefixes []string
}

// NewAllowList creates an allow list for the given project root and the
// resolved server.fs.allow prefixes.
func NewAllowList(root string, prefixes []string) *AllowList {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		cleaned = append(cleaned, filepath.Clean(p))
	}
	return &AllowList{
		root:     filepath.Clean(root),
		prefixes: cleaned,
	}
}

// Allowed reports whether the absolute path may be served.
func (a *AllowList) Allowed(path string) bool {
	path = filepath.Clean(path)

	if underPrefix(path, a.root) {
		return true
	}
	for _, prefix := range a.prefixes {
		if underPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// underPrefix reports whether path equals prefix or sits below it. A raw
// strings.HasPrefix would let /srv-data slip past an /srv prefix, so the
// check is separator-aware.
func underPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if prefix == string(filepath.Separator) {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}
