package gitworker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_Sync(t *testing.T) {
	sourceDir := t.TempDir()
	source, err := git.PlainInit(sourceDir, false)
	require.NoError(t, err)
	head := commitFile(t, source, sourceDir, "services/a.toml", "image = \"a\"")

	cloneDir := filepath.Join(t.TempDir(), "clone")
	w := Start(cloneDir, zerolog.Nop())
	defer w.Shutdown()

	refspec := "+refs/heads/master:refs/remotes/origin/master"
	synced, err := w.Sync(sourceDir, refspec)
	require.NoError(t, err)
	assert.Equal(t, head, synced)

	data, err := os.ReadFile(filepath.Join(cloneDir, "services/a.toml"))
	require.NoError(t, err)
	assert.Equal(t, "image = \"a\"", string(data))

	gotHead, err := w.Head()
	require.NoError(t, err)
	assert.Equal(t, head, gotHead)
}

func TestWorker_SyncPicksUpSubsequentCommit(t *testing.T) {
	sourceDir := t.TempDir()
	source, err := git.PlainInit(sourceDir, false)
	require.NoError(t, err)
	commitFile(t, source, sourceDir, "services/a.toml", "image = \"a\"")

	cloneDir := filepath.Join(t.TempDir(), "clone")
	w := Start(cloneDir, zerolog.Nop())
	defer w.Shutdown()

	refspec := "+refs/heads/master:refs/remotes/origin/master"
	_, err = w.Sync(sourceDir, refspec)
	require.NoError(t, err)

	head2 := commitFile(t, source, sourceDir, "services/b.toml", "image = \"b\"")

	synced, err := w.Sync(sourceDir, refspec)
	require.NoError(t, err)
	assert.Equal(t, head2, synced)

	data, err := os.ReadFile(filepath.Join(cloneDir, "services/b.toml"))
	require.NoError(t, err)
	assert.Equal(t, "image = \"b\"", string(data))
}
