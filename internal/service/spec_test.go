package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `
[docker]
image = "example/app"
tag = "1.0"

[docker.update]
auto = true
globs = ["1.*"]

[env]
LOG_LEVEL = "info"

[secrets.api_key]
kind = "generate"
format = "hex"
length = 32
regenerate = false

[secrets.password]
kind = "load"

[secrets.db_creds]
kind = "dynamic"
role = "app"
part = "access"

[dependencies]
redis = true
postgres = { role = "app" }
cache = "CACHE_URL"

[web]
enabled = true
domain = "app.example.com"
path = "/api"
`

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, "example/app:1.0", spec.ImageRef())
	assert.True(t, spec.TagAuto)
	assert.Equal(t, []string{"1.*"}, spec.TagGlobs)
	assert.Equal(t, "info", spec.Env["LOG_LEVEL"])

	assert.Equal(t, SlotGenerate, spec.Secrets["api_key"].Kind)
	assert.Equal(t, FormatHex, spec.Secrets["api_key"].Format)
	assert.Equal(t, 32, spec.Secrets["api_key"].Length)
	assert.False(t, spec.Secrets["api_key"].Regenerate)

	assert.Equal(t, SlotLoad, spec.Secrets["password"].Kind)

	assert.Equal(t, SlotDynamic, spec.Secrets["db_creds"].Kind)
	assert.Equal(t, "app", spec.Secrets["db_creds"].Role)
	assert.Equal(t, PartAccess, spec.Secrets["db_creds"].Part)

	assert.Equal(t, BindingEnabledDefaultEnv, spec.Dependencies["redis"].Kind)
	assert.Equal(t, BindingRoleWithOptionalEnv, spec.Dependencies["postgres"].Kind)
	assert.Equal(t, "app", spec.Dependencies["postgres"].Role)
	assert.Equal(t, BindingEnabledWithRename, spec.Dependencies["cache"].Kind)
	assert.Equal(t, "CACHE_URL", spec.Dependencies["cache"].Env)

	assert.True(t, spec.Web.Enabled)
	assert.Equal(t, "app.example.com", spec.Web.Domain)
	assert.Equal(t, "/api", spec.Web.Path)
}

func TestParseSpec_MissingImage(t *testing.T) {
	_, err := ParseSpec([]byte(`[docker]
tag = "1.0"
`))
	assert.Error(t, err)
}

func TestParseSpec_UnknownSecretKind(t *testing.T) {
	_, err := ParseSpec([]byte(`
[docker]
image = "x"

[secrets.bad]
kind = "teleport"
`))
	assert.ErrorContains(t, err, "unknown secret slot kind")
}

func TestParseSpec_DefaultTagLatest(t *testing.T) {
	spec, err := ParseSpec([]byte(`[docker]
image = "x"
`))
	require.NoError(t, err)
	assert.Equal(t, "x:latest", spec.ImageRef())
}

func TestSortedSecretNames(t *testing.T) {
	spec, err := ParseSpec([]byte(sampleSpec))
	require.NoError(t, err)
	names := spec.SortedSecretNames()
	assert.Equal(t, []string{"api_key", "db_creds", "password"}, names)
}

func TestDependencyBinding_Resolve(t *testing.T) {
	disabled := DependencyBinding{Kind: BindingDisabled}
	assert.False(t, disabled.Resolve("DEFAULT_ENV", "").Present)

	enabled := DependencyBinding{Kind: BindingEnabledDefaultEnv}
	r := enabled.Resolve("DEFAULT_ENV", "")
	assert.True(t, r.Present)
	assert.Equal(t, "DEFAULT_ENV", r.EnvVar)

	rename := DependencyBinding{Kind: BindingEnabledWithRename, Env: "MY_ENV"}
	r = rename.Resolve("DEFAULT_ENV", "")
	assert.Equal(t, "MY_ENV", r.EnvVar)

	role := DependencyBinding{Kind: BindingRoleWithOptionalEnv, Role: "custom"}
	r = role.Resolve("DEFAULT_ENV", "default-role")
	assert.Equal(t, "DEFAULT_ENV", r.EnvVar)
	assert.Equal(t, "custom", r.Role)

	roleDefaulted := DependencyBinding{Kind: BindingRoleWithOptionalEnv}
	r = roleDefaulted.Resolve("DEFAULT_ENV", "default-role")
	assert.Equal(t, "default-role", r.Role)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Get("a")
	assert.False(t, ok)

	reg.Put("a", Spec{Image: "x"})
	spec, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "x", spec.Image)

	assert.ElementsMatch(t, []string{"a"}, reg.Names())

	assert.True(t, reg.Delete("a"))
	assert.False(t, reg.Delete("a"))
}
