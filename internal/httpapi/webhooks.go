package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/WaffleHacks/wafflemaker/internal/jobs"
	"github.com/WaffleHacks/wafflemaker/internal/service"
)

func (s *Server) handleDockerWebhook(w http.ResponseWriter, r *http.Request) {
	if !validateDockerAuth(r, s.cfg.HTTP.Webhooks.Docker) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body dockerWebhook
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	log := s.log.With().Str("image", body.Repository.RepoName).Str("tag", body.PushData.Tag).Logger()
	log.Info().Msg("got new image update hook")

	for _, name := range s.deps.Registry.Names() {
		spec, ok := s.deps.Registry.Get(name)
		if !ok || spec.Image != body.Repository.RepoName || !spec.TagAuto {
			continue
		}

		if !matchesAnyGlob(spec.TagGlobs, body.PushData.Tag) {
			continue
		}

		updated := spec
		updated.Tag = body.PushData.Tag

		s.deps.Queue.Dispatch(jobs.NewUpdateService(s.deps, updated, service.NewName(name)))
		log.Info().Str("service", name).Msg("updating service from image push")
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !validateGitHubSignature(raw, r.Header.Get("X-Hub-Signature-256"), []byte(s.cfg.HTTP.Webhooks.GitHub)) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body gitHubWebhook
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !body.isPush() {
		s.log.Info().Int64("hook_id", body.HookID).Str("zen", body.Zen).Msg("received ping")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if body.Repository.FullName != s.cfg.Git.Repository || !strings.HasSuffix(body.Reference, s.cfg.Git.Branch) {
		http.Error(w, "disallowed repository", http.StatusForbidden)
		return
	}

	if err := s.deps.Git.Pull(body.Repository.CloneURL, body.Reference, body.After); err != nil {
		s.log.Error().Err(err).Msg("git pull failed")
		http.Error(w, "pull failed", http.StatusInternalServerError)
		return
	}

	s.deps.Queue.Dispatch(jobs.NewPlanUpdate(s.deps, body.Before, body.After, s.readSpecFile))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func matchesAnyGlob(globs []string, tag string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, _ := path.Match(g, tag); ok {
			return true
		}
	}
	return false
}
