// Package gitworker owns the single *git.Repository handle on a
// dedicated OS thread, since go-git's working-tree operations are not
// safe for concurrent use (spec.md §4.3).
package gitworker

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

// Action labels a changed path in a diff entry.
type Action string

const (
	ActionModified Action = "modified"
	ActionDeleted  Action = "deleted"
	ActionUnknown  Action = "unknown"
)

// DiffEntry is one changed path between two commits.
type DiffEntry struct {
	Action Action
	Path   string
	Binary bool
}

type requestKind int

const (
	reqPull requestKind = iota
	reqDiff
	reqHead
	reqSync
	reqShutdown
)

type request struct {
	kind    requestKind
	cloneURL, refspec, targetCommit string
	before, after                   string
	reply                           chan response
}

type response struct {
	err   error
	diff  []DiffEntry
	head  string
}

// Worker is the public, goroutine-safe handle to the Git worker thread.
// Every method sends a request over a buffered channel and blocks for
// the typed reply (spec.md §4.3: "Requests are (method, reply_channel)
// tuples; each reply is variant-typed to the method").
type Worker struct {
	requests chan request
	cloneDir string
}

// Start spawns the dedicated OS thread and returns a handle to it.
// cloneDir is the local working-copy path (config.clone_to).
func Start(cloneDir string, log zerolog.Logger) *Worker {
	w := &Worker{
		requests: make(chan request, 8),
		cloneDir: cloneDir,
	}
	go w.run(log)
	return w
}

func (w *Worker) run(log zerolog.Logger) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var repo *git.Repository

	for req := range w.requests {
		switch req.kind {
		case reqPull:
			err := w.handlePull(&repo, req.cloneURL, req.refspec, req.targetCommit, log)
			req.reply <- response{err: err}
		case reqDiff:
			diff, err := handleDiff(repo, req.before, req.after)
			req.reply <- response{diff: diff, err: err}
		case reqHead:
			head, err := handleHead(repo)
			req.reply <- response{head: head, err: err}
		case reqSync:
			head, err := w.handleSync(&repo, req.cloneURL, req.refspec, log)
			req.reply <- response{head: head, err: err}
		case reqShutdown:
			req.reply <- response{}
			return
		}
	}
}

func (w *Worker) handlePull(repoPtr **git.Repository, cloneURL, refspec, targetCommit string, log zerolog.Logger) error {
	repo := *repoPtr
	var err error

	if repo == nil {
		repo, err = git.PlainOpen(w.cloneDir)
		if errors.Is(err, git.ErrRepositoryNotExists) {
			repo, err = git.PlainClone(w.cloneDir, false, &git.CloneOptions{URL: cloneURL})
			if err != nil {
				return fmt.Errorf("gitworker: clone %s: %w", cloneURL, err)
			}
		} else if err != nil {
			return fmt.Errorf("gitworker: open %s: %w", w.cloneDir, err)
		}
		*repoPtr = repo
	}

	if err := setOriginURL(repo, cloneURL); err != nil {
		return err
	}

	fetchErr := repo.Fetch(&git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(refspec)},
		Force:      true,
	})
	if fetchErr != nil && !errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("gitworker: fetch %s: %w", refspec, fetchErr)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("gitworker: worktree: %w", err)
	}

	target := plumbing.NewHash(targetCommit)
	if err := wt.Reset(&git.ResetOptions{Commit: target, Mode: git.HardReset}); err != nil {
		log.Warn().Err(err).Str("target_commit", targetCommit).Msg("gitworker: hard reset failed, leaving index as-is")
		return fmt.Errorf("gitworker: reset to %s: %w", targetCommit, err)
	}

	return nil
}

// handleSync clones cloneURL if the working copy is empty, fetches
// refspec, resolves the resulting remote-tracking branch reference, and
// hard-resets the worktree to it. Used once at boot, where (unlike a
// webhook delivery) no explicit target commit is known in advance.
func (w *Worker) handleSync(repoPtr **git.Repository, cloneURL, refspec string, log zerolog.Logger) (string, error) {
	repo := *repoPtr
	var err error

	if repo == nil {
		repo, err = git.PlainOpen(w.cloneDir)
		if errors.Is(err, git.ErrRepositoryNotExists) {
			repo, err = git.PlainClone(w.cloneDir, false, &git.CloneOptions{URL: cloneURL})
			if err != nil {
				return "", fmt.Errorf("gitworker: clone %s: %w", cloneURL, err)
			}
		} else if err != nil {
			return "", fmt.Errorf("gitworker: open %s: %w", w.cloneDir, err)
		}
		*repoPtr = repo
	}

	if err := setOriginURL(repo, cloneURL); err != nil {
		return "", err
	}

	rs := config.RefSpec(refspec)
	fetchErr := repo.Fetch(&git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{rs},
		Force:      true,
	})
	if fetchErr != nil && !errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("gitworker: fetch %s: %w", refspec, fetchErr)
	}

	dst := rs.Dst(plumbing.ReferenceName(rs.Src()))
	ref, err := repo.Reference(dst, true)
	if err != nil {
		ref, err = repo.Head()
		if err != nil {
			return "", fmt.Errorf("gitworker: resolve synced ref: %w", err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("gitworker: worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		log.Warn().Err(err).Str("target_commit", ref.Hash().String()).Msg("gitworker: hard reset failed, leaving index as-is")
		return "", fmt.Errorf("gitworker: reset to %s: %w", ref.Hash(), err)
	}

	return ref.Hash().String(), nil
}

func setOriginURL(repo *git.Repository, cloneURL string) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("gitworker: read config: %w", err)
	}
	remote, ok := cfg.Remotes["origin"]
	if !ok {
		_, err := repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{cloneURL}})
		if err != nil {
			return fmt.Errorf("gitworker: create origin remote: %w", err)
		}
		return nil
	}
	remote.URLs = []string{cloneURL}
	return repo.SetConfig(cfg)
}

func handleHead(repo *git.Repository) (string, error) {
	if repo == nil {
		return "", fmt.Errorf("gitworker: repository not yet initialized")
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("gitworker: head: %w", err)
	}
	return ref.Hash().String(), nil
}

// Pull sets the origin remote to cloneURL, fetches refspec, then
// hard-resets the working tree to targetCommit. The fetched branch is not
// merged into any local branch; the working tree and HEAD simply move to
// targetCommit. A failed reset is logged and returned as an error.
func (w *Worker) Pull(cloneURL, refspec, targetCommit string) error {
	reply := make(chan response, 1)
	w.requests <- request{kind: reqPull, cloneURL: cloneURL, refspec: refspec, targetCommit: targetCommit, reply: reply}
	return (<-reply).err
}

// Sync clones the repository at cloneURL into the working copy if it
// isn't already present, fetches refspec, and hard-resets the worktree to
// whatever commit that refspec resolves to, returning its hash. Used once
// at process startup to establish the initial working copy before the
// first webhook delivery supplies an explicit target commit.
func (w *Worker) Sync(cloneURL, refspec string) (string, error) {
	reply := make(chan response, 1)
	w.requests <- request{kind: reqSync, cloneURL: cloneURL, refspec: refspec, reply: reply}
	r := <-reply
	return r.head, r.err
}

// Diff computes the tree-level diff between two commits. Files are
// compared by content hash, so whitespace-only changes are reported like
// any other modification.
func (w *Worker) Diff(before, after string) ([]DiffEntry, error) {
	reply := make(chan response, 1)
	w.requests <- request{kind: reqDiff, before: before, after: after, reply: reply}
	r := <-reply
	return r.diff, r.err
}

// Head returns the current HEAD commit hex.
func (w *Worker) Head() (string, error) {
	reply := make(chan response, 1)
	w.requests <- request{kind: reqHead, reply: reply}
	r := <-reply
	return r.head, r.err
}

// CloneDir returns the local working-copy path, for callers that need to
// read a spec file's contents directly off disk after a Pull.
func (w *Worker) CloneDir() string {
	return w.cloneDir
}

// Shutdown terminates the worker thread and waits for it to exit.
func (w *Worker) Shutdown() {
	reply := make(chan response, 1)
	w.requests <- request{kind: reqShutdown, reply: reply}
	<-reply
	close(w.requests)
}
