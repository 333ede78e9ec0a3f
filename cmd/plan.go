package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abennata/incmerge/internal/model"
	"github.com/abennata/incmerge/internal/repo"
)

var planOutputFormat string

var planCmd = &cobra.Command{
	Use:   "plan <feature-branch> <upstream-branch>",
	Short: "List upstream commits not yet merged into the feature branch",
	Long: `List the upstream commits that merge would probe, without touching the
working tree: the first-parent-only upstream history strictly after the
divergence point, oldest first.`,
	Args: cobra.ExactArgs(2),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutputFormat, "output", "o", "table", "output format: table or yaml")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planOutputFormat != "table" && planOutputFormat != "yaml" {
		return fmt.Errorf("unsupported output format %q, must be table or yaml", planOutputFormat)
	}
	feature, upstream := args[0], args[1]

	r, err := repo.Open(".")
	if err != nil {
		return err
	}

	featureHash, err := r.ResolveBranch(feature)
	if err != nil {
		return err
	}
	upstreamHash, err := r.ResolveBranch(upstream)
	if err != nil {
		return err
	}
	base, err := r.MergeBase(featureHash, upstreamHash)
	if err != nil {
		return err
	}
	commits, err := r.CommitsAfter(base, upstreamHash)
	if err != nil {
		return err
	}

	if len(commits) == 0 {
		fmt.Println("No pending upstream commits.")
		return nil
	}

	switch planOutputFormat {
	case "yaml":
		return printYAML(feature, upstream, base.String(), commits)
	default:
		return printTable(commits)
	}
}

func printTable(commits []model.Commit) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "SHA\tDATE\tAUTHOR\tMESSAGE\n")
	for _, c := range commits {
		fmt.Fprintf(w, "%.12s\t%s\t%s\t%s\n",
			c.SHA,
			c.Date.Format("2006-01-02 15:04"),
			c.Author,
			truncate(c.Summary(), 80),
		)
	}

	w.Flush()
	fmt.Fprintf(os.Stderr, "\nTotal: %d pending commits\n", len(commits))
	return nil
}

func printYAML(feature, upstream, base string, commits []model.Commit) error {
	out := model.MergePlan{
		Feature:  feature,
		Upstream: upstream,
		Base:     base,
		Commits:  commits,
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
