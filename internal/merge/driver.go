package merge

import (
	"fmt"
	"io"
	"os"

	"github.com/abennata/incmerge/internal/git"
	"github.com/abennata/incmerge/internal/model"
	"github.com/abennata/incmerge/internal/repo"
)

// ConflictError reports the single upstream commit whose trial merge left
// unresolved conflicts. The merge is intentionally left in progress for the
// operator to finish; nothing is rolled back.
type ConflictError struct {
	Commit model.Commit
	Paths  []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("commit %.12s (%s) conflicts with the feature branch", e.Commit.SHA, e.Commit.Summary())
}

// Driver integrates upstream into a feature branch one commit at a time.
// Each upstream-only commit is probed with a trial merge that is fully
// reverted when clean; the first conflicting commit halts the run. When every
// probe comes back clean, the full upstream tip is merged for real.
type Driver struct {
	repo *repo.Repo
	git  *git.Git

	// Out receives progress output. Defaults to os.Stderr.
	Out io.Writer
}

// New returns a Driver operating on the given repository handles. Both must
// point at the same working tree.
func New(r *repo.Repo, g *git.Git) *Driver {
	return &Driver{repo: r, git: g, Out: os.Stderr}
}

// Run performs the incremental merge of upstream into feature. It returns a
// *ConflictError when a probe finds conflicts, nil on full success, and any
// underlying git failure otherwise.
func (d *Driver) Run(feature, upstream string) error {
	if d.git.MergeInProgress() {
		return fmt.Errorf("a merge is already in progress; finish it with 'git merge --continue' or discard it with 'git merge --abort'")
	}
	clean, err := d.git.IsClean()
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("working tree is not clean; commit or stash your changes first")
	}

	featureHash, err := d.repo.ResolveBranch(feature)
	if err != nil {
		return err
	}
	upstreamHash, err := d.repo.ResolveBranch(upstream)
	if err != nil {
		return err
	}
	base, err := d.repo.MergeBase(featureHash, upstreamHash)
	if err != nil {
		return err
	}

	commits, err := d.repo.CommitsAfter(base, upstreamHash)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Fprintf(d.Out, "%s is already up to date with %s\n", feature, upstream)
		return nil
	}

	fmt.Fprintf(d.Out, "Divergence point:     %.12s\n", base.String())
	fmt.Fprintf(d.Out, "Commits to integrate: %d\n", len(commits))

	for i, c := range commits {
		fmt.Fprintf(d.Out, "\n[%d/%d] Attempting to merge %.12s %s\n", i+1, len(commits), c.SHA, c.Summary())
		if err := d.probe(feature, c); err != nil {
			return err
		}
	}

	fmt.Fprintf(d.Out, "\nNo conflicting commits found, merging %s into %s\n", upstream, feature)
	if err := d.git.Checkout(feature); err != nil {
		return fmt.Errorf("checking out %s: %w", feature, err)
	}
	message := fmt.Sprintf("Merge branch '%s' into %s", upstream, feature)
	if err := d.git.MergeBranch(upstream, message); err != nil {
		return fmt.Errorf("merging %s into %s: %w", upstream, feature, err)
	}

	fmt.Fprintf(d.Out, "\nDone. %d commit(s) from %s merged into %s\n", len(commits), upstream, feature)
	return nil
}

// probe trial-merges a single commit into feature. A clean result is fully
// reverted; a conflicted one is reported and left in progress.
func (d *Driver) probe(feature string, c model.Commit) error {
	if err := d.git.Checkout(feature); err != nil {
		return fmt.Errorf("checking out %s: %w", feature, err)
	}

	mergeErr := d.git.MergeNoCommit(c.SHA)

	paths, err := d.git.UnmergedPaths()
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		fmt.Fprintf(d.Out, "\nFound conflicting commit %.12s: %s\n", c.SHA, c.Summary())
		for _, p := range paths {
			fmt.Fprintf(d.Out, "  conflict: %s\n", p)
		}
		fmt.Fprintf(d.Out, "\nResolve the conflicts manually, then finalize the merge:\n")
		fmt.Fprintf(d.Out, "  git add <resolved files>\n")
		fmt.Fprintf(d.Out, "  git merge --continue\n")
		fmt.Fprintf(d.Out, "Re-run incmerge afterwards to continue with the remaining commits.\n")
		return &ConflictError{Commit: c, Paths: paths}
	}
	if mergeErr != nil {
		return fmt.Errorf("trial merge of %.12s: %w", c.SHA, mergeErr)
	}

	// A probe that had nothing to merge leaves no MERGE_HEAD behind, so there
	// is nothing to abort.
	if d.git.MergeInProgress() {
		if err := d.git.AbortMerge(); err != nil {
			return fmt.Errorf("aborting trial merge of %.12s: %w", c.SHA, err)
		}
	}

	clean, err := d.git.IsClean()
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("working tree not clean after reverting trial merge of %.12s", c.SHA)
	}

	fmt.Fprintf(d.Out, "No conflicts\n")
	return nil
}
