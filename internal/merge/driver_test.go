package merge

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abennata/incmerge/internal/git"
	"github.com/abennata/incmerge/internal/repo"
)

// The driver shells out for every mutating operation, so these tests run
// against real repositories and skip when no git binary is available.

func initRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	mustGit(t, dir, "init")
	mustGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")
	mustGit(t, dir, "config", "user.name", "Test User")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "commit.gpgsign", "false")

	commitFile(t, dir, "base.txt", "base\n", "base commit")
	commitFile(t, dir, "shared.txt", "original\n", "add shared file")
	return dir
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, file, content, msg string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	mustGit(t, dir, "add", file)
	mustGit(t, dir, "commit", "-m", msg)
	return mustGit(t, dir, "rev-parse", "HEAD")
}

func newDriver(t *testing.T, dir string) (*Driver, *bytes.Buffer) {
	t.Helper()

	r, err := repo.Open(dir)
	require.NoError(t, err)

	d := New(r, git.New(dir))
	var out bytes.Buffer
	d.Out = &out
	return d, &out
}

func TestRunMergesCleanUpstream(t *testing.T) {
	dir := initRepo(t)

	mustGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "feature work\n", "feature commit")

	mustGit(t, dir, "checkout", "master")
	commitFile(t, dir, "one.txt", "one\n", "upstream one")
	commitFile(t, dir, "two.txt", "two\n", "upstream two")
	commitFile(t, dir, "three.txt", "three\n", "upstream three")

	d, out := newDriver(t, dir)
	require.NoError(t, d.Run("feature", "master"))

	assert.Equal(t, 3, strings.Count(out.String(), "No conflicts"))

	// Feature carries all upstream changes via a single two-parent merge commit.
	mustGit(t, dir, "checkout", "feature")
	for _, f := range []string{"one.txt", "two.txt", "three.txt", "feature.txt"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
	parents := strings.Fields(mustGit(t, dir, "rev-list", "--parents", "-n", "1", "HEAD"))
	assert.Len(t, parents, 3, "expected a two-parent merge commit at the feature tip")
	assert.Empty(t, mustGit(t, dir, "status", "--porcelain"))

	// Running again finds nothing left to integrate and changes nothing.
	tip := mustGit(t, dir, "rev-parse", "feature")
	d2, out2 := newDriver(t, dir)
	require.NoError(t, d2.Run("feature", "master"))
	assert.Contains(t, out2.String(), "already up to date")
	assert.Equal(t, tip, mustGit(t, dir, "rev-parse", "feature"))
}

func TestRunHaltsOnFirstConflict(t *testing.T) {
	dir := initRepo(t)

	mustGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "shared.txt", "feature change\n", "feature edit")

	mustGit(t, dir, "checkout", "master")
	commitFile(t, dir, "one.txt", "one\n", "upstream one")
	conflictSHA := commitFile(t, dir, "shared.txt", "upstream change\n", "upstream two")
	commitFile(t, dir, "three.txt", "three\n", "upstream three")

	featureBefore := mustGit(t, dir, "rev-parse", "feature")

	d, _ := newDriver(t, dir)
	err := d.Run("feature", "master")

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, conflictSHA, conflict.Commit.SHA)
	assert.Equal(t, "upstream two", conflict.Commit.Summary())
	assert.Equal(t, []string{"shared.txt"}, conflict.Paths)

	// The first probe left no trace on the feature ref; the conflicted merge
	// is left in progress for the operator.
	assert.Equal(t, featureBefore, mustGit(t, dir, "rev-parse", "feature"))
	assert.Equal(t, conflictSHA, mustGit(t, dir, "rev-parse", "MERGE_HEAD"))
	assert.Equal(t, "shared.txt", mustGit(t, dir, "diff", "--name-only", "--diff-filter=U"))
}

func TestRunContinuesAfterResolution(t *testing.T) {
	dir := initRepo(t)

	mustGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "shared.txt", "feature change\n", "feature edit")

	mustGit(t, dir, "checkout", "master")
	commitFile(t, dir, "one.txt", "one\n", "upstream one")
	commitFile(t, dir, "shared.txt", "upstream change\n", "upstream two")
	threeSHA := commitFile(t, dir, "three.txt", "three\n", "upstream three")

	d, _ := newDriver(t, dir)
	var conflict *ConflictError
	require.ErrorAs(t, d.Run("feature", "master"), &conflict)

	// Operator resolves the conflict and finalizes the merge.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.txt"), []byte("merged change\n"), 0o644))
	mustGit(t, dir, "add", "shared.txt")
	mustGit(t, dir, "commit", "-m", "Merge upstream two into feature")

	// The re-run derives the advanced divergence point and only probes the
	// remaining commit.
	d2, out := newDriver(t, dir)
	require.NoError(t, d2.Run("feature", "master"))
	assert.Contains(t, out.String(), "[1/1]")
	assert.Contains(t, out.String(), "upstream three")

	mustGit(t, dir, "merge-base", "--is-ancestor", threeSHA, "feature")
	assert.Empty(t, mustGit(t, dir, "status", "--porcelain"))
}

func TestRunRefusesDirtyWorktree(t *testing.T) {
	dir := initRepo(t)

	mustGit(t, dir, "checkout", "-b", "feature")
	mustGit(t, dir, "checkout", "master")
	commitFile(t, dir, "one.txt", "one\n", "upstream one")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("uncommitted\n"), 0o644))

	d, _ := newDriver(t, dir)
	err := d.Run("feature", "master")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not clean")
}

func TestRunRefusesMergeInProgress(t *testing.T) {
	dir := initRepo(t)

	mustGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "shared.txt", "feature change\n", "feature edit")

	mustGit(t, dir, "checkout", "master")
	commitFile(t, dir, "shared.txt", "upstream change\n", "upstream edit")

	d, _ := newDriver(t, dir)
	var conflict *ConflictError
	require.ErrorAs(t, d.Run("feature", "master"), &conflict)

	// A second invocation before the operator finishes must refuse to touch
	// the in-progress merge.
	d2, _ := newDriver(t, dir)
	err := d2.Run("feature", "master")
	require.Error(t, err)
	assert.NotErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), "merge is already in progress")
}
