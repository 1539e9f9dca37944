package service

import "fmt"

// DependencyBindingKind discriminates the four dependency-binding shapes a
// service spec may declare for a dependency kind.
type DependencyBindingKind string

const (
	BindingDisabled            DependencyBindingKind = "disabled"
	BindingEnabledDefaultEnv   DependencyBindingKind = "enabled-default-env"
	BindingEnabledWithRename   DependencyBindingKind = "enabled-with-env-rename"
	BindingRoleWithOptionalEnv DependencyBindingKind = "role-with-optional-env"
)

// DependencyBinding is a spec's declared binding for one dependency kind
// (e.g. "redis", "postgres"). It is an untagged union decoded from TOML:
// a bare bool, a bare string, or a table with a "role" key.
type DependencyBinding struct {
	Kind DependencyBindingKind
	Env  string // set for EnabledWithRename and optionally for RoleWithOptionalEnv
	Role string // set for RoleWithOptionalEnv
}

// Resolved is the outcome of resolving a binding against its dependency
// kind's default env var name.
type Resolved struct {
	Present bool
	EnvVar  string
	Role    string
}

// Resolve yields (env_var_name, role_id) or "absent" per spec §3, given
// the dependency kind's configured default env var name and (for role
// bindings) its default role.
func (b DependencyBinding) Resolve(defaultEnv, defaultRole string) Resolved {
	switch b.Kind {
	case BindingDisabled:
		return Resolved{Present: false}
	case BindingEnabledDefaultEnv:
		return Resolved{Present: true, EnvVar: defaultEnv}
	case BindingEnabledWithRename:
		return Resolved{Present: true, EnvVar: b.Env}
	case BindingRoleWithOptionalEnv:
		env := b.Env
		if env == "" {
			env = defaultEnv
		}
		role := b.Role
		if role == "" {
			role = defaultRole
		}
		return Resolved{Present: true, EnvVar: env, Role: role}
	default:
		return Resolved{Present: false}
	}
}

// dependencyBindingFromRaw converts a decoded raw TOML value into a
// DependencyBinding. ParseSpec (spec.go) passes the value through as
// decoded, because go-toml decodes untagged unions into `any`; this
// function type-switches over its shape.
func dependencyBindingFromRaw(raw any) (DependencyBinding, error) {
	switch v := raw.(type) {
	case bool:
		if v {
			return DependencyBinding{Kind: BindingEnabledDefaultEnv}, nil
		}
		return DependencyBinding{Kind: BindingDisabled}, nil
	case string:
		return DependencyBinding{Kind: BindingEnabledWithRename, Env: v}, nil
	case map[string]any:
		binding := DependencyBinding{Kind: BindingRoleWithOptionalEnv}
		if role, ok := v["role"].(string); ok {
			binding.Role = role
		}
		if name, ok := v["name"].(string); ok {
			binding.Env = name
		}
		return binding, nil
	case nil:
		return DependencyBinding{Kind: BindingDisabled}, nil
	default:
		return DependencyBinding{}, fmt.Errorf("dependency binding: unsupported shape %T", raw)
	}
}
