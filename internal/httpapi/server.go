// Package httpapi implements the webhook receivers and authenticated
// management API described in spec.md §6, atop the standard library's
// net/http.ServeMux (no ecosystem router improves on thirteen routes — see
// DESIGN.md).
package httpapi

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/WaffleHacks/wafflemaker/internal/config"
	"github.com/WaffleHacks/wafflemaker/internal/jobs"
	"github.com/WaffleHacks/wafflemaker/internal/metrics"
	"github.com/rs/zerolog"
)

// Server bundles the collaborators every handler needs.
type Server struct {
	deps *jobs.Deps
	cfg  *config.Config
	log  zerolog.Logger
}

// New constructs the Server.
func New(deps *jobs.Deps, cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{deps: deps, cfg: cfg, log: log}
}

// Handler builds the full routing table: unauthenticated webhook/health
// routes plus the bearer-token-gated management API (spec.md §6).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /docker", s.handleDockerWebhook)
	mux.HandleFunc("POST /github", s.handleGitHubWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	token := s.cfg.HTTP.ManagementToken
	mux.HandleFunc("GET /deployments", requireBearer(token, s.handleDeploymentsInfo))
	mux.HandleFunc("POST /deployments/{before}", requireBearer(token, s.handleDeploymentsRerun))
	mux.HandleFunc("GET /leases", requireBearer(token, s.handleLeasesList))
	mux.HandleFunc("PUT /leases/{service}", requireBearer(token, s.handleLeasesAdd))
	mux.HandleFunc("DELETE /leases/{service}", requireBearer(token, s.handleLeasesDelete))
	mux.HandleFunc("GET /services", requireBearer(token, s.handleServicesList))
	mux.HandleFunc("GET /services/{name}", requireBearer(token, s.handleServicesRead))
	mux.HandleFunc("PUT /services/{name}", requireBearer(token, s.handleServicesRedeploy))
	mux.HandleFunc("DELETE /services/{name}", requireBearer(token, s.handleServicesDelete))

	return mux
}

// readSpecFile reads a spec file's contents from the Git worker's current
// working copy, for PlanUpdate's post-diff parse step.
func (s *Server) readSpecFile(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.deps.Git.CloneDir(), relPath))
}
