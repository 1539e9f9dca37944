package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/service"
	"github.com/stretchr/testify/require"
)

func TestHandleServicesList(t *testing.T) {
	s := newTestServer(t)
	s.deps.Registry.Put("api/web", service.Spec{Image: "acme/web", Tag: "v1"})

	r := httptest.NewRequest(http.MethodGet, "/services", nil)
	r.SetPathValue("name", "")
	w := httptest.NewRecorder()
	s.handleServicesList(w, r)

	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	require.Equal(t, []string{"api/web"}, names)
}

func TestHandleServicesRead_NotFound(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/services/nope", nil)
	r.SetPathValue("name", "nope")
	w := httptest.NewRecorder()
	s.handleServicesRead(w, r)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleServicesDelete_DispatchesJob(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodDelete, "/services/api/web", nil)
	r.SetPathValue("name", "api/web")
	w := httptest.NewRecorder()
	s.handleServicesDelete(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	job, ok := s.deps.Queue.Pop()
	require.True(t, ok)
	require.Equal(t, "delete-service:api/web", job.Name())
}

func TestHandleLeasesAdd_RegistersAgainstContainerID(t *testing.T) {
	s := newTestServer(t)
	s.deps.Leases = leases.NewRegistry()
	require.NoError(t, s.deps.Store.Put("api/web", "container-1", "acme/web:v1"))

	body := `{"id":"lease-1","ttl":3600,"updated_at":100}`
	r := httptest.NewRequest(http.MethodPut, "/leases/api/web", strings.NewReader(body))
	r.SetPathValue("service", "api/web")
	w := httptest.NewRecorder()
	s.handleLeasesAdd(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	snap := s.deps.Leases.Snapshot()
	require.Len(t, snap["container-1"], 1)
	require.Equal(t, "lease-1", snap["container-1"][0].ID)
}
