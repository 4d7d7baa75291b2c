package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/changescribe/changescribe/internal/apidiff"
	"github.com/changescribe/changescribe/internal/classify"
	"github.com/changescribe/changescribe/internal/config"
	cserr "github.com/changescribe/changescribe/internal/errors"
	"github.com/changescribe/changescribe/internal/gitdiff"
	"github.com/changescribe/changescribe/internal/logging"
	"github.com/changescribe/changescribe/internal/models"
	"github.com/changescribe/changescribe/internal/report"
	"github.com/changescribe/changescribe/internal/testgen"
)

// Pipeline wires collection, classification, diffing, test synthesis
// and report rendering into one run. Each run is stateless; nothing is
// carried over between invocations.
type Pipeline struct {
	cfg        *config.Config
	classifier *classify.Classifier
	synth      *testgen.Synthesizer
}

// New builds a pipeline from configuration, loading the rule table and
// invariant catalog when custom files are configured.
func New(cfg *config.Config) (*Pipeline, error) {
	classifier := classify.NewClassifier()
	if cfg.RulesFile != "" {
		rules, err := classify.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", cfg.RulesFile, err)
		}
		classifier, err = classify.NewClassifierFromRules(rules)
		if err != nil {
			return nil, fmt.Errorf("invalid rules in %s: %w", cfg.RulesFile, err)
		}
	}

	synth := testgen.NewSynthesizer()
	if cfg.CatalogFile != "" {
		catalog, err := testgen.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("loading invariant catalog from %s: %w", cfg.CatalogFile, err)
		}
		synth = testgen.NewSynthesizerWithCatalog(catalog)
	}

	return &Pipeline{cfg: cfg, classifier: classifier, synth: synth}, nil
}

// RunGit analyzes the diff between two refs of the configured repo.
// Identical refs produce a no-changes report rather than an error; only
// collection failures (bad ref, timeout) abort the run.
func (p *Pipeline) RunGit(ctx context.Context, base, head string) (*models.Report, error) {
	run := newRun(p.cfg.Repo.Path, base, head, "git")

	if p.cfg.Repo.CollectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Repo.CollectTimeout)
		defer cancel()
	}

	logging.Info("collecting diff", "base", base, "head", head, "repo", p.cfg.Repo.Path)
	res, err := gitdiff.NewCollector(p.cfg.Repo.Path).Collect(ctx, base, head)
	if err != nil {
		if cserr.IsKind(err, cserr.KindEmptyDiff) {
			logging.Info("no changes between refs", "base", base, "head", head)
			return emptyReport(run), nil
		}
		return nil, err
	}
	run.BaseRef, run.HeadRef = res.BaseRef, res.HeadRef

	return p.analyze(run, res), nil
}

// RunLiteral analyzes a pre-produced unified diff. Snapshots are
// approximate reconstructions from hunks, so structured deltas may be
// partial; affected files end up under manual review.
func (p *Pipeline) RunLiteral(diffText, baseLabel, headLabel, source string) (*models.Report, error) {
	run := newRun(p.cfg.Repo.Path, baseLabel, headLabel, source)

	res, err := gitdiff.ParseLiteralDiff(diffText)
	if err != nil {
		if cserr.IsKind(err, cserr.KindEmptyDiff) {
			logging.Info("no changes in supplied diff", "source", source)
			return emptyReport(run), nil
		}
		return nil, err
	}
	if len(res.Files) == 0 {
		logging.Info("diff contains no file changes", "source", source)
		return emptyReport(run), nil
	}
	res.BaseRef, res.HeadRef = baseLabel, headLabel

	return p.analyze(run, res), nil
}

// analyze runs the downstream stages over a collected change set.
// Component failures past collection are recovered per file; the run
// itself never fails here.
func (p *Pipeline) analyze(run models.AnalysisRun, res *gitdiff.Result) *models.Report {
	records := p.classifier.ClassifyAll(res.Files)
	logging.Info("classified changes", "files", len(records))

	files := make(map[string]gitdiff.FileChange, len(res.Files))
	for _, f := range res.Files {
		files[f.Path] = f
	}

	endpoints, apiNotes := apidiff.DiffRoutes(records, files)
	logging.Info("computed endpoint deltas", "endpoints", len(endpoints), "review", len(apiNotes))

	schemas, schemaNotes := apidiff.DiffSchemas(records, files)
	logging.Info("computed schema deltas", "tables", len(schemas), "review", len(schemaNotes))

	cases := p.synth.Synthesize(endpoints, records)
	logging.Info("synthesized test cases", "cases", len(cases))

	run.Duration = time.Since(run.StartedAt)
	return &models.Report{
		Run:          run,
		Changes:      records,
		Endpoints:    endpoints,
		Schemas:      schemas,
		TestCases:    cases,
		ManualReview: mergeNotes(apiNotes, schemaNotes),
	}
}

// WriteReports renders and writes both Markdown artifacts, returning
// their paths.
func (p *Pipeline) WriteReports(r *models.Report) (changelog, readme string, err error) {
	dir := p.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", cserr.Internal("creating output directory", err)
	}

	changelog = filepath.Join(dir, p.cfg.Output.ChangelogName)
	if err := os.WriteFile(changelog, []byte(report.RenderChangelog(r)), 0o644); err != nil {
		return "", "", cserr.Internal("writing changelog", err)
	}

	readme = filepath.Join(dir, p.cfg.Output.ReadmeName)
	if err := os.WriteFile(readme, []byte(report.RenderReadme(r)), 0o644); err != nil {
		return "", "", cserr.Internal("writing readme", err)
	}

	logging.Info("wrote reports", "changelog", changelog, "readme", readme)
	return changelog, readme, nil
}

func newRun(repo, base, head, source string) models.AnalysisRun {
	return models.AnalysisRun{
		ID:        uuid.New().String(),
		Repo:      repo,
		BaseRef:   base,
		HeadRef:   head,
		StartedAt: time.Now(),
		Source:    source,
	}
}

func emptyReport(run models.AnalysisRun) *models.Report {
	run.Duration = time.Since(run.StartedAt)
	return &models.Report{Run: run, NoChanges: true}
}

// mergeNotes combines per-component review notes, dropping duplicates
// and ordering by path for stable output.
func mergeNotes(groups ...[]models.ReviewNote) []models.ReviewNote {
	seen := map[string]bool{}
	var out []models.ReviewNote
	for _, g := range groups {
		for _, n := range g {
			key := n.Path + "\x00" + n.Reason
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
