package service

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LoadDirectory recursively scans root for ".toml" spec files and parses
// each into the registry, per spec.md §3: "specs enter the registry at
// boot (recursive directory scan of the working copy)". A file that
// fails to parse is logged and skipped; it does not abort the scan
// (the same scoped-failure policy PlanUpdate applies to a single changed
// file at spec.md §4.2).
func LoadDirectory(root string, registry *Registry, log zerolog.Logger) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".toml" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", rel).Msg("read spec file failed during boot scan")
			return nil
		}

		spec, err := ParseSpec(data)
		if err != nil {
			log.Error().Err(err).Str("path", rel).Msg("parse spec failed during boot scan")
			return nil
		}

		name := NewName(TrimSpecExt(rel))
		registry.Put(name.Proper, spec)
		return nil
	})
}
