package gitworker

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// handleDiff computes the changed-path list between two commit hexes,
// translating go-git's change-type classification into the
// modified/deleted/unknown action labels spec.md §4.2 expects.
func handleDiff(repo *git.Repository, before, after string) ([]DiffEntry, error) {
	if repo == nil {
		return nil, fmt.Errorf("gitworker: repository not yet initialized")
	}

	beforeTree, err := treeForCommit(repo, before)
	if err != nil {
		return nil, fmt.Errorf("gitworker: resolve before commit %s: %w", before, err)
	}
	afterTree, err := treeForCommit(repo, after)
	if err != nil {
		return nil, fmt.Errorf("gitworker: resolve after commit %s: %w", after, err)
	}

	changes, err := object.DiffTree(beforeTree, afterTree)
	if err != nil {
		return nil, fmt.Errorf("gitworker: diff trees: %w", err)
	}

	entries := make([]DiffEntry, 0, len(changes))
	for _, change := range changes {
		entry, err := entryFromChange(change)
		if err != nil {
			return nil, fmt.Errorf("gitworker: read change: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func treeForCommit(repo *git.Repository, commitHex string) (*object.Tree, error) {
	commit, err := repo.CommitObject(plumbing.NewHash(commitHex))
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func entryFromChange(change *object.Change) (DiffEntry, error) {
	action, err := change.Action()
	if err != nil {
		return DiffEntry{}, err
	}

	var path string
	var action2 Action
	switch action {
	case merkletrie.Delete:
		path = change.From.Name
		action2 = ActionDeleted
	case merkletrie.Insert, merkletrie.Modify:
		path = change.To.Name
		action2 = ActionModified
	default:
		path = change.To.Name
		if path == "" {
			path = change.From.Name
		}
		action2 = ActionUnknown
	}

	binary, err := isBinaryChange(change, action2)
	if err != nil {
		return DiffEntry{}, err
	}

	return DiffEntry{Action: action2, Path: path, Binary: binary}, nil
}

func isBinaryChange(change *object.Change, action Action) (bool, error) {
	var file *object.File
	var err error
	if action == ActionDeleted {
		file, err = change.From.Tree.File(change.From.Name)
	} else {
		file, err = change.To.Tree.File(change.To.Name)
	}
	if err != nil {
		return false, nil
	}
	return file.IsBinary()
}
