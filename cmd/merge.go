package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abennata/incmerge/internal/git"
	"github.com/abennata/incmerge/internal/merge"
	"github.com/abennata/incmerge/internal/repo"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <feature-branch> <upstream-branch>",
	Short: "Merge upstream into the feature branch one commit at a time",
	Long: `Merge every upstream commit since the two branches diverged into the
feature branch, one commit at a time.

Steps performed per upstream commit (oldest first, first-parent only):
  1. Checkout the feature branch
  2. Trial-merge the commit without committing
  3. If the trial is clean, discard it entirely and continue
  4. If it conflicts, report the commit and halt, leaving the merge in
     progress for you to resolve and finalize

When every commit probes clean, the full upstream tip is merged into the
feature branch with a single merge commit. After resolving a reported
conflict, re-run the same command: the remaining commits are re-derived from
the new divergence point.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	feature, upstream := args[0], args[1]

	r, err := repo.Open(".")
	if err != nil {
		return err
	}

	driver := merge.New(r, git.New("."))
	err = driver.Run(feature, upstream)

	var conflict *merge.ConflictError
	if errors.As(err, &conflict) {
		// The driver already printed the commit and the remediation steps;
		// returning the error makes Execute exit non-zero.
		return fmt.Errorf("halted on conflicting commit %.12s", conflict.Commit.SHA)
	}
	return err
}
