package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStatic_NotFoundReturnsEmptyBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	bundle, err := c.FetchStatic(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Empty(t, bundle)
}

func TestFetchStatic_ReturnsBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Vault-Token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data": map[string]string{"api_key": "abc123"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	bundle, err := c.FetchStatic(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, "abc123", bundle["api_key"])
}

func TestPutStatic(t *testing.T) {
	var captured StaticBundle
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data StaticBundle `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		captured = body.Data
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	err := c.PutStatic(context.Background(), "svc-a", StaticBundle{"x": "y"})
	require.NoError(t, err)
	assert.Equal(t, "y", captured["x"])
}

func TestCheckPerms_Denies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string][]string{
				"services/data/svc-a": {"deny"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	err := c.CheckPerms(context.Background(), []string{"services/data/svc-a"})
	require.Error(t, err)
	var permErr *ErrInvalidPermissions
	require.ErrorAs(t, err, &permErr)
	assert.Contains(t, permErr.Paths, "services/data/svc-a")
}

func TestCheckPerms_Allows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string][]string{
				"services/data/svc-a": {"read", "create"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	err := c.CheckPerms(context.Background(), []string{"services/data/svc-a"})
	assert.NoError(t, err)
}

func TestListDatabaseRoles_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	roles, err := c.ListDatabaseRoles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, roles)
}
