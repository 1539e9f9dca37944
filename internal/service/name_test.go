package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewName(t *testing.T) {
	cases := []struct {
		path      string
		proper    string
		domain    string
		sanitized string
	}{
		{"a/b", "a/b", "b.a", "a_b"},
		{"a", "a", "a", "a"},
		{"a/b/c", "a/b/c", "c.b.a", "a_b_c"},
	}

	for _, tc := range cases {
		n := NewName(tc.path)
		assert.Equal(t, tc.proper, n.Proper, tc.path)
		assert.Equal(t, tc.domain, n.Domain, tc.path)
		assert.Equal(t, tc.sanitized, n.Sanitized, tc.path)
	}
}

func TestTrimSpecExt(t *testing.T) {
	assert.Equal(t, "a/b", TrimSpecExt("a/b.toml"))
	assert.Equal(t, "a/b", TrimSpecExt("a/b"))
}

func TestNewName_RoundTrip(t *testing.T) {
	// service_name(path).sanitized == proper with "/" -> "_"
	n := NewName("foo/bar/baz")
	assert.Equal(t, "foo_bar_baz", n.Sanitized)

	// domain is proper reversed-segments joined by "."
	n2 := NewName("team/service")
	assert.Equal(t, "service.team", n2.Domain)
}
