package repo

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/abennata/incmerge/internal/model"
)

// Repo answers structured queries about the commit graph: resolving branch
// names, finding the divergence point, and enumerating the commits pending
// integration. It never touches the working tree; all mutating operations go
// through internal/git.
type Repo struct {
	gr *gogit.Repository
}

// Open opens the repository containing dir, walking up to find .git the same
// way the git CLI does.
func Open(dir string) (*Repo, error) {
	gr, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	return &Repo{gr: gr}, nil
}

// ResolveBranch resolves a branch name (or any revision) to a commit hash.
func (r *Repo) ResolveBranch(name string) (plumbing.Hash, error) {
	h, err := r.gr.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving %q: %w", name, err)
	}
	return *h, nil
}

// MergeBase returns the nearest common ancestor of two commits.
func (r *Repo) MergeBase(a, b plumbing.Hash) (plumbing.Hash, error) {
	ca, err := r.gr.CommitObject(a)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("loading commit %s: %w", a, err)
	}
	cb, err := r.gr.CommitObject(b)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("loading commit %s: %w", b, err)
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("computing merge base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, fmt.Errorf("%s and %s share no common ancestor", a, b)
	}
	return bases[0].Hash, nil
}

// CommitsAfter returns the first-parent lineage of tip strictly after base,
// oldest first. Commits merged into that lineage from other branches stay
// collapsed inside their merge commit; only the lineage's own direct steps
// are returned. base == tip yields an empty sequence.
func (r *Repo) CommitsAfter(base, tip plumbing.Hash) ([]model.Commit, error) {
	if base == tip {
		return nil, nil
	}

	c, err := r.gr.CommitObject(tip)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", tip, err)
	}

	var commits []model.Commit
	for {
		commits = append(commits, toCommit(c))
		if c.NumParents() == 0 {
			return nil, fmt.Errorf("%s is not on the first-parent history of %s", base, tip)
		}
		parent, err := c.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("loading first parent of %s: %w", c.Hash, err)
		}
		if parent.Hash == base {
			break
		}
		c = parent
	}

	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

func toCommit(c *object.Commit) model.Commit {
	return model.Commit{
		SHA:     c.Hash.String(),
		Date:    c.Author.When,
		Author:  c.Author.Name,
		Message: c.Message,
	}
}
