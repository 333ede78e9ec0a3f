package git

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Git runs git commands against a single repository working tree. All
// operations that mutate the tree or the merge state go through one instance,
// so the driver has a single handle to enforce its clean-before-next-probe
// precondition against.
type Git struct {
	dir string
}

// New returns a Git bound to the repository at dir.
func New(dir string) *Git {
	return &Git{dir: dir}
}

// Run executes a git command, forwarding stdout/stderr to the terminal.
func (g *Git) Run(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	fmt.Fprintf(os.Stderr, "=> git %s\n", strings.Join(args, " "))
	return cmd.Run()
}

// Output executes a git command silently and returns its trimmed stdout.
func (g *Git) Output(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// Checkout switches the working tree to the given branch.
func (g *Git) Checkout(branch string) error {
	return g.Run("checkout", branch)
}

// MergeNoCommit attempts a trial merge of a single commit, staging the result
// without committing. Git itself exits non-zero when the merge conflicts;
// callers distinguish a conflict from other failures via UnmergedPaths.
func (g *Git) MergeNoCommit(sha string) error {
	return g.Run("merge", "--no-ff", "--no-commit", sha)
}

// AbortMerge discards an in-progress, uncommitted merge and restores the
// pre-merge working tree.
func (g *Git) AbortMerge() error {
	return g.Run("merge", "--abort")
}

// MergeBranch performs a real merge of ref into the current branch,
// committing it with the given message.
func (g *Git) MergeBranch(ref, message string) error {
	return g.Run("merge", "--no-ff", "-m", message, ref)
}

// MergeInProgress reports whether the repository has an uncommitted merge
// (MERGE_HEAD exists).
func (g *Git) MergeInProgress() bool {
	cmd := exec.Command("git", "rev-parse", "-q", "--verify", "MERGE_HEAD")
	cmd.Dir = g.dir
	return cmd.Run() == nil
}

// UnmergedPaths returns the paths carrying unresolved conflict entries in the
// index, one per path.
func (g *Git) UnmergedPaths() ([]string, error) {
	out, err := g.Output("diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("listing unmerged paths: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// IsClean reports whether the working tree has no staged or unstaged changes.
func (g *Git) IsClean() (bool, error) {
	out, err := g.Output("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("checking working tree status: %w", err)
	}
	return out == "", nil
}
