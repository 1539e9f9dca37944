package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/WaffleHacks/wafflemaker/internal/gitworker"
	"github.com/WaffleHacks/wafflemaker/internal/notifier"
	"github.com/WaffleHacks/wafflemaker/internal/service"
)

// PlanUpdate diffs two commits and fans out UpdateService/DeleteService
// jobs for every affected spec file, per spec.md §4.2.
type PlanUpdate struct {
	deps          *Deps
	before, after string
	workingCopy   string // repo-root absolute path, for reading spec files
	readFile      func(relPath string) ([]byte, error)
}

// NewPlanUpdate constructs the job. readFile resolves a repo-relative
// path to its file contents at the current working-copy checkout.
func NewPlanUpdate(deps *Deps, before, after string, readFile func(relPath string) ([]byte, error)) *PlanUpdate {
	return &PlanUpdate{deps: deps, before: before, after: after, readFile: readFile}
}

func (j *PlanUpdate) Name() string { return "plan-update:" + j.before + ".." + j.after }

func (j *PlanUpdate) Run(ctx context.Context) {
	d := j.deps
	log := d.Log.With().Str("job", j.Name()).Logger()

	if j.before == j.after {
		return
	}

	d.Notify.Notify(ctx, notifier.DeploymentEvent(j.after, notifier.InProgress()))

	entries, err := d.Git.Diff(j.before, j.after)
	if err != nil {
		log.Error().Err(err).Msg("git diff failed")
		d.Notify.Notify(ctx, notifier.DeploymentEvent(j.after, notifier.Failure(err.Error())))
		return
	}

	var failures []string

	for _, entry := range entries {
		if entry.Binary || !strings.HasSuffix(entry.Path, ".toml") {
			continue
		}
		if entry.Action == gitworker.ActionUnknown {
			log.Warn().Str("path", entry.Path).Msg("skipping unknown diff action")
			continue
		}

		name := service.NewName(service.TrimSpecExt(entry.Path))

		switch entry.Action {
		case gitworker.ActionModified:
			data, err := j.readFile(entry.Path)
			if err != nil {
				failures = append(failures, entry.Path)
				log.Error().Err(err).Str("path", entry.Path).Msg("read spec file failed")
				continue
			}
			spec, err := service.ParseSpec(data)
			if err != nil {
				failures = append(failures, entry.Path)
				log.Error().Err(err).Str("path", entry.Path).Msg("parse spec failed")
				continue
			}
			d.Queue.Dispatch(NewUpdateService(d, spec, name))

		case gitworker.ActionDeleted:
			d.Queue.Dispatch(NewDeleteService(d, name))
		}
	}

	if len(failures) == 0 {
		d.Notify.Notify(ctx, notifier.DeploymentEvent(j.after, notifier.Success()))
	} else {
		d.Notify.Notify(ctx, notifier.DeploymentEvent(j.after, notifier.Failure(fmt.Sprintf("failed to parse: %s", strings.Join(failures, ", ")))))
	}
}
