package gitworker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = object.Signature{
	Name:  "wafflemaker-test",
	Email: "test@example.com",
	When:  time.Unix(1700000000, 0),
}

func commitFile(t *testing.T, repo *git.Repository, dir, path, content string) string {
	t.Helper()
	full := filepath.Join(dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(path)
	require.NoError(t, err)

	hash, err := wt.Commit("commit "+path, &git.CommitOptions{
		Author: &testAuthor,
	})
	require.NoError(t, err)
	return hash.String()
}

func removeFile(t *testing.T, repo *git.Repository, dir, path string) string {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(dir, path)))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(path)
	require.NoError(t, err)

	hash, err := wt.Commit("remove "+path, &git.CommitOptions{Author: &testAuthor})
	require.NoError(t, err)
	return hash.String()
}

func TestHandleDiff_ModifiedAndDeleted(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	c1 := commitFile(t, repo, dir, "a/b.toml", "x = 1")
	c2 := commitFile(t, repo, dir, "a/c.toml", "y = 2")
	c3 := removeFile(t, repo, dir, "a/b.toml")

	entries, err := handleDiff(repo, c1, c2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionModified, entries[0].Action)
	assert.Equal(t, "a/c.toml", entries[0].Path)

	entries, err = handleDiff(repo, c2, c3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionDeleted, entries[0].Action)
	assert.Equal(t, "a/b.toml", entries[0].Path)
}

func TestHandleHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	c1 := commitFile(t, repo, dir, "a.toml", "z = 1")

	head, err := handleHead(repo)
	require.NoError(t, err)
	assert.Equal(t, c1, head)
}

func TestHandleDiff_NoChangesForSameCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	c1 := commitFile(t, repo, dir, "a.toml", "z = 1")

	entries, err := handleDiff(repo, c1, c1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
