package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/WaffleHacks/wafflemaker/internal/jobs"
	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/service"
)

type deploymentsInfoResponse struct {
	Commit   string `json:"commit"`
	Services int    `json:"services"`
	Running  int    `json:"running"`
}

func (s *Server) handleDeploymentsInfo(w http.ResponseWriter, r *http.Request) {
	commit, err := s.deps.Git.Head()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	running, err := s.deps.Store.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, deploymentsInfoResponse{
		Commit:   commit,
		Services: len(s.deps.Registry.Names()),
		Running:  len(running),
	})
}

func (s *Server) handleDeploymentsRerun(w http.ResponseWriter, r *http.Request) {
	before := r.PathValue("before")

	current, err := s.deps.Git.Head()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.deps.Queue.Dispatch(jobs.NewPlanUpdate(s.deps, before, current, s.readSpecFile))
	w.WriteHeader(http.StatusNoContent)
}

type httpLease struct {
	ID        string `json:"id"`
	TTL       int64  `json:"ttl"`
	UpdatedAt int64  `json:"updated_at"`
}

type leasesListResponse struct {
	Leases   map[string][]httpLease `json:"leases"`
	Services map[string]string      `json:"services"`
}

func (s *Server) handleLeasesList(w http.ResponseWriter, r *http.Request) {
	snapshot := s.deps.Leases.Snapshot()
	out := make(map[string][]httpLease, len(snapshot))
	for id, ls := range snapshot {
		converted := make([]httpLease, len(ls))
		for i, l := range ls {
			converted[i] = httpLease{ID: l.ID, TTL: l.TTLSeconds, UpdatedAt: l.UpdatedAtUnix}
		}
		out[id] = converted
	}

	services, err := s.deps.Store.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, leasesListResponse{Leases: out, Services: services})
}

func (s *Server) handleLeasesAdd(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("service")

	var body httpLease
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	id, _, err := s.deps.Store.Get(name)
	if err == nil {
		s.deps.Leases.Register(id, leases.Lease{ID: body.ID, TTLSeconds: body.TTL, UpdatedAtUnix: body.UpdatedAt})
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeasesDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("service")
	leaseID := r.URL.Query().Get("id")

	id, _, err := s.deps.Store.Get(name)
	if err == nil {
		s.deps.Leases.Drop(id, leaseID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServicesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.deps.Registry.Names())
}

type serviceReadResponse struct {
	Dependencies     []string `json:"dependencies"`
	Image            string   `json:"image"`
	AutomaticUpdates bool     `json:"automatic_updates"`
	Domain           string   `json:"domain,omitempty"`
	DeploymentID     string   `json:"deployment_id,omitempty"`
}

func (s *Server) handleServicesRead(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	spec, ok := s.deps.Registry.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	deps := make([]string, 0, len(spec.Dependencies))
	for kind := range spec.Dependencies {
		deps = append(deps, kind)
	}

	id, _, _ := s.deps.Store.Get(name)

	writeJSON(w, serviceReadResponse{
		Dependencies:     deps,
		Image:            spec.ImageRef(),
		AutomaticUpdates: spec.TagAuto,
		Domain:           spec.Web.Domain,
		DeploymentID:     id,
	})
}

func (s *Server) handleServicesRedeploy(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	spec, ok := s.deps.Registry.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.deps.Queue.Dispatch(jobs.NewUpdateService(s.deps, spec, service.NewName(name)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServicesDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.deps.Queue.Dispatch(jobs.NewDeleteService(s.deps, service.NewName(name)))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
