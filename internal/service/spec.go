package service

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Spec is a fully-parsed, immutable service specification. A new version
// replaces the old atomically in the Registry; Spec values themselves are
// never mutated after ParseSpec returns.
type Spec struct {
	Image   string
	Tag     string
	TagAuto bool
	TagGlobs []string

	Env map[string]string

	Secrets map[string]Secret

	Dependencies map[string]DependencyBinding

	Web WebConfig
}

// WebConfig is the spec's routing declaration.
type WebConfig struct {
	Enabled bool
	Domain  string
	Path    string
}

// rawSpec mirrors the on-disk TOML shape before the untagged unions
// (secrets, dependencies) are converted into their typed Go forms.
type rawSpec struct {
	Docker struct {
		Image string `toml:"image"`
		Tag   string `toml:"tag"`
		Update struct {
			Auto  bool     `toml:"auto"`
			Globs []string `toml:"globs"`
		} `toml:"update"`
	} `toml:"docker"`

	Env map[string]string `toml:"env"`

	Secrets map[string]rawSecret `toml:"secrets"`

	Dependencies map[string]any `toml:"dependencies"`

	Web struct {
		Enabled bool   `toml:"enabled"`
		Domain  string `toml:"domain,omitempty"`
		Path    string `toml:"path,omitempty"`
	} `toml:"web"`
}

// ParseSpec parses the bytes of one service spec file.
func ParseSpec(data []byte) (Spec, error) {
	var raw rawSpec
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Spec{}, fmt.Errorf("parse: %w", err)
	}

	if raw.Docker.Image == "" {
		return Spec{}, fmt.Errorf("docker.image is required")
	}
	if raw.Docker.Tag == "" {
		raw.Docker.Tag = "latest"
	}

	secrets := make(map[string]Secret, len(raw.Secrets))
	for name, rs := range raw.Secrets {
		s, err := secretFromRaw(rs)
		if err != nil {
			return Spec{}, fmt.Errorf("secret %q: %w", name, err)
		}
		secrets[name] = s
	}

	deps := make(map[string]DependencyBinding, len(raw.Dependencies))
	for kind, v := range raw.Dependencies {
		b, err := dependencyBindingFromRaw(v)
		if err != nil {
			return Spec{}, fmt.Errorf("dependency %q: %w", kind, err)
		}
		deps[kind] = b
	}

	return Spec{
		Image:        raw.Docker.Image,
		Tag:          raw.Docker.Tag,
		TagAuto:      raw.Docker.Update.Auto,
		TagGlobs:     raw.Docker.Update.Globs,
		Env:          raw.Env,
		Secrets:      secrets,
		Dependencies: deps,
		Web: WebConfig{
			Enabled: raw.Web.Enabled,
			Domain:  raw.Web.Domain,
			Path:    raw.Web.Path,
		},
	}, nil
}

// ImageRef is the fully-qualified image:tag reference.
func (s Spec) ImageRef() string {
	return s.Image + ":" + s.Tag
}

// SortedSecretNames returns secret slot names in a deterministic order, as
// required by §4.4 S2 ("Walk the spec's secret slots in deterministic
// order").
func (s Spec) SortedSecretNames() []string {
	names := make([]string, 0, len(s.Secrets))
	for name := range s.Secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
