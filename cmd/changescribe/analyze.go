package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/changescribe/changescribe/internal/ghpr"
	"github.com/changescribe/changescribe/internal/models"
	"github.com/changescribe/changescribe/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a diff and write the QA changelog and developer README",
	Long: `Analyzes the change set between two refs of a local repository, or a
pre-produced unified diff, or a GitHub pull request, and writes two
Markdown artifacts into the output directory.

Input modes (mutually exclusive with --base/--head):
  --diff-file   read a unified diff from a file ("-" for stdin)
  --github-pr   fetch the diff of owner/repo#number via the GitHub API`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("base", "main", "base ref")
	analyzeCmd.Flags().String("head", "HEAD", "head ref")
	analyzeCmd.Flags().String("repo", "", "repository path (default: config or current directory)")
	analyzeCmd.Flags().String("out", "", "output directory (default: config)")
	analyzeCmd.Flags().String("diff-file", "", `unified diff file to analyze ("-" for stdin)`)
	analyzeCmd.Flags().String("github-pr", "", "pull request to analyze (owner/repo#number)")

	analyzeCmd.MarkFlagsMutuallyExclusive("diff-file", "github-pr")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if repo, _ := cmd.Flags().GetString("repo"); repo != "" {
		cfg.Repo.Path = repo
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Output.Dir = out
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	diffFile, _ := cmd.Flags().GetString("diff-file")
	prSpec, _ := cmd.Flags().GetString("github-pr")

	var report *models.Report
	switch {
	case diffFile != "":
		report, err = analyzeDiffFile(p, diffFile)
	case prSpec != "":
		report, err = analyzePR(ctx, p, prSpec)
	default:
		base, _ := cmd.Flags().GetString("base")
		head, _ := cmd.Flags().GetString("head")
		report, err = p.RunGit(ctx, base, head)
	}
	if err != nil {
		return err
	}

	changelog, readme, err := p.WriteReports(report)
	if err != nil {
		return err
	}

	printSummary(report, changelog, readme)
	return nil
}

func analyzeDiffFile(p *pipeline.Pipeline, path string) (*models.Report, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading diff: %w", err)
	}
	return p.RunLiteral(string(data), "base", "head", "diff-file")
}

func analyzePR(ctx context.Context, p *pipeline.Pipeline, spec string) (*models.Report, error) {
	ref, err := ghpr.ParsePRRef(spec)
	if err != nil {
		return nil, err
	}
	fetcher := ghpr.NewFetcher(cfg.GitHub.Token, cfg.GitHub.RateLimit)
	diffText, base, head, err := fetcher.FetchDiff(ctx, ref)
	if err != nil {
		return nil, err
	}
	return p.RunLiteral(diffText, base, head, "github-pr")
}

// printSummary writes a short run summary to stdout. On a terminal the
// risk level is highlighted; piped output stays plain.
func printSummary(r *models.Report, changelog, readme string) {
	if r.NoChanges {
		fmt.Println("No changes detected.")
		fmt.Printf("Reports written: %s, %s\n", changelog, readme)
		return
	}

	risk := string(r.OverallRisk())
	if term.IsTerminal(int(os.Stdout.Fd())) {
		risk = colorize(r.OverallRisk())
	}

	breaking := 0
	for _, e := range r.Endpoints {
		if e.Breaking == models.BreakingYes {
			breaking++
		}
	}

	fmt.Printf("Overall risk: %s\n", risk)
	fmt.Printf("Files: %d  Endpoints: %d (%d breaking)  Tables: %d  Test cases: %d\n",
		len(r.Changes), len(r.Endpoints), breaking, len(r.Schemas), len(r.TestCases))
	if len(r.ManualReview) > 0 {
		fmt.Printf("Manual review needed for %d file(s); see the changelog.\n", len(r.ManualReview))
	}
	fmt.Printf("Reports written: %s, %s\n", changelog, readme)
}

func colorize(p models.Priority) string {
	switch p {
	case models.PriorityCritical:
		return "\033[31m" + string(p) + "\033[0m"
	case models.PriorityHigh:
		return "\033[33m" + string(p) + "\033[0m"
	default:
		return "\033[32m" + string(p) + "\033[0m"
	}
}
