//go:build integration

package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WaffleHacks/wafflemaker/internal/dnspublisher"
	"github.com/WaffleHacks/wafflemaker/internal/docker"
	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/notifier"
	"github.com/WaffleHacks/wafflemaker/internal/service"
	"github.com/WaffleHacks/wafflemaker/internal/store"
	"github.com/WaffleHacks/wafflemaker/internal/vault"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// These tests require a reachable Docker daemon (DOCKER_HOST or the
// default socket) and are excluded from the default test run, matching
// the teacher's cmd/orchestrator integration-test convention.

func newIntegrationDeps(t *testing.T) *Deps {
	t.Helper()

	ctx := context.Background()
	cli, err := docker.NewClient(ctx)
	require.NoError(t, err)

	dbPath := t.TempDir() + "/state.db"
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	vaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(vaultSrv.Close)

	mr := miniredis.RunT(t)
	dns, err := dnspublisher.New("redis://"+mr.Addr(), "dns:", "test.internal")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dns.Close() })

	return &Deps{
		Registry: service.NewRegistry(),
		Store:    st,
		Vault:    vault.New(vaultSrv.URL, "test-token"),
		Leases:   leases.NewRegistry(),
		DNS:      dns,
		Notify:   notifier.New(zerolog.Nop()),
		Engine:   docker.NewEngine(cli),
		Network:  "bridge",
		Log:      zerolog.Nop(),
	}
}

func TestDeleteService_AbsentFromRegistryIsNoop(t *testing.T) {
	deps := newIntegrationDeps(t)
	name := service.NewName("integration/absent")

	job := NewDeleteService(deps, name)
	job.Run(context.Background())

	_, _, err := deps.Store.Get(name.Proper)
	require.Error(t, err)
}

func TestDeleteService_TearsDownContainer(t *testing.T) {
	deps := newIntegrationDeps(t)
	name := service.NewName("integration/hello")
	deps.Registry.Put(name.Proper, service.Spec{Image: "busybox", Tag: "latest"})

	require.NoError(t, deps.Engine.PullImage(context.Background(), "busybox:latest"))
	id, err := deps.Engine.Create(context.Background(), docker.CreateOptions{
		Name:    "waffle-integration-hello",
		Image:   "busybox:latest",
		Env:     []string{},
		Network: deps.Network,
	})
	require.NoError(t, err)
	require.NoError(t, deps.Store.Put(name.Proper, id, "busybox:latest"))

	job := NewDeleteService(deps, name)
	job.Run(context.Background())

	_, _, err = deps.Store.Get(name.Proper)
	require.Error(t, err)

	// Container should be gone; a second delete is a harmless no-op.
	require.NoError(t, deps.Engine.Delete(context.Background(), id))

	time.Sleep(10 * time.Millisecond) // let the daemon settle before test teardown
}
