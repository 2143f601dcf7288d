package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepo initialises a temporary git repository and returns a GitClient
// pointing at it. The repository contains a single "Initial commit".
func newTestRepo(t *testing.T) *GitClient {
	t.Helper()
	dir := t.TempDir()

	mustRun(t, dir, "git", "init", "-b", "main")
	mustRun(t, dir, "git", "config", "user.email", "test@example.com")
	mustRun(t, dir, "git", "config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-m", "Initial commit")

	c, err := NewGitClient(dir)
	require.NoError(t, err)
	return c
}

func mustRun(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "command failed: %s %v\n%s", name, args, out)
}

func TestNewGitClient_ValidRepo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustRun(t, dir, "git", "init", "-b", "main")
	mustRun(t, dir, "git", "config", "user.email", "test@example.com")
	mustRun(t, dir, "git", "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hi\n"), 0o644))
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-m", "init")

	c, err := NewGitClient(dir)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, dir, c.WorkDir)
}

func TestNewGitClient_NotARepo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir() // plain directory, no git init

	_, err := NewGitClient(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prerequisites")
}

func TestHeadCommit_ReturnsShortSHAOfLatestCommit(t *testing.T) {
	t.Parallel()

	c := newTestRepo(t)
	sha, err := c.HeadCommit(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sha)
	assert.LessOrEqual(t, len(sha), 12)
}

func TestHeadCommit_ChangesAfterNewCommit(t *testing.T) {
	t.Parallel()

	c := newTestRepo(t)
	ctx := context.Background()

	first, err := c.HeadCommit(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(c.WorkDir, "second.txt"), []byte("more\n"), 0o644))
	mustRun(t, c.WorkDir, "git", "add", ".")
	mustRun(t, c.WorkDir, "git", "commit", "-m", "second commit")

	second, err := c.HeadCommit(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
