// Package service holds the declarative service specification model:
// names, secret slots, dependency bindings, and the in-memory registry.
package service

import "strings"

// Name holds the three canonical, derivable forms of a service's name, all
// computed from the same path-relative-to-repo-root source string.
type Name struct {
	// Proper is the path segments joined by "/", extension removed.
	Proper string
	// Domain is the path segments reversed and joined by ".".
	Domain string
	// Sanitized is Proper with every "/" replaced by "_".
	Sanitized string
}

// NewName derives the three canonical forms from a spec file path relative
// to the repository root, with its extension already stripped by the
// caller (see TrimSpecExt).
func NewName(relPath string) Name {
	proper := strings.Trim(relPath, "/")

	segments := strings.Split(proper, "/")
	reversed := make([]string, len(segments))
	for i, seg := range segments {
		reversed[len(segments)-1-i] = seg
	}

	return Name{
		Proper:    proper,
		Domain:    strings.Join(reversed, "."),
		Sanitized: strings.ReplaceAll(proper, "/", "_"),
	}
}

// TrimSpecExt removes the trailing ".toml" extension from a repo-relative
// path, if present.
func TrimSpecExt(path string) string {
	return strings.TrimSuffix(path, ".toml")
}
