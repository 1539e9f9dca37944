package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WaffleHacks/wafflemaker/internal/config"
	"github.com/WaffleHacks/wafflemaker/internal/jobqueue"
	"github.com/WaffleHacks/wafflemaker/internal/jobs"
	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/service"
	"github.com/WaffleHacks/wafflemaker/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	reg := service.NewRegistry()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			ManagementToken: "mgmt-token",
			Webhooks: config.WebhooksConfig{
				Docker: "user:docker-token",
				GitHub: "github-secret",
			},
		},
		Git: config.GitConfig{Repository: "acme/config", Branch: "main"},
	}

	st, err := store.Open(t.TempDir() + "/state.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	deps := &jobs.Deps{
		Registry: reg,
		Queue:    jobqueue.New(),
		Store:    st,
		Leases:   leases.NewRegistry(),
		Log:      zerolog.Nop(),
	}
	return New(deps, cfg, zerolog.Nop())
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleDockerWebhook_DispatchesMatchingService(t *testing.T) {
	s := newTestServer(t)
	s.deps.Registry.Put("api/web", service.Spec{
		Image: "acme/web", Tag: "v1", TagAuto: true, TagGlobs: []string{"v*"},
	})
	s.deps.Registry.Put("api/other", service.Spec{
		Image: "acme/other", Tag: "v1", TagAuto: true,
	})

	body, _ := json.Marshal(map[string]any{
		"callback_url": "https://example.com",
		"push_data":    map[string]string{"tag": "v2"},
		"repository":   map[string]string{"repo_name": "acme/web"},
	})
	r := httptest.NewRequest(http.MethodPost, "/docker", bytes.NewReader(body))
	r.SetBasicAuth("user", "docker-token")
	w := httptest.NewRecorder()

	s.handleDockerWebhook(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	job, ok := s.deps.Queue.Pop()
	require.True(t, ok)
	require.Equal(t, "update-service:api/web", job.Name())
}

func TestHandleDockerWebhook_Unauthorized(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/docker", bytes.NewReader([]byte(`{}`)))
	r.SetBasicAuth("user", "wrong")
	w := httptest.NewRecorder()

	s.handleDockerWebhook(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func signGitHub(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleGitHubWebhook_Ping(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"zen": "hello", "hook_id": 42})

	r := httptest.NewRequest(http.MethodPost, "/github", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature-256", signGitHub(body, "github-secret"))
	w := httptest.NewRecorder()

	s.handleGitHubWebhook(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleGitHubWebhook_InvalidSignature(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"zen": "hello"})

	r := httptest.NewRequest(http.MethodPost, "/github", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	w := httptest.NewRecorder()

	s.handleGitHubWebhook(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleGitHubWebhook_DisallowedRepository(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]any{
		"after":  "abc123",
		"before": "def456",
		"ref":    "refs/heads/main",
		"repository": map[string]string{
			"full_name": "someone-else/config",
			"clone_url": "https://example.com/someone-else/config.git",
		},
	})

	r := httptest.NewRequest(http.MethodPost, "/github", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature-256", signGitHub(body, "github-secret"))
	w := httptest.NewRecorder()

	s.handleGitHubWebhook(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)
}
