package gitdiff

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	cserr "github.com/changescribe/changescribe/internal/errors"
	"github.com/changescribe/changescribe/internal/logging"
	"github.com/changescribe/changescribe/internal/models"
)

// FileChange is one changed file with its raw diff and content snapshots
type FileChange struct {
	Path         string
	OldPath      string // set for renames
	Status       models.ChangeStatus
	Diff         string // raw unified diff scoped to this file
	LinesAdded   int
	LinesRemoved int
	Before       string // file content at base ("" when added)
	After        string // file content at head ("" when deleted)
}

// Result is the full set of change records for one base..head comparison
type Result struct {
	BaseRef  string
	HeadRef  string
	BaseSHA  string
	HeadSHA  string
	FullDiff string
	Files    []FileChange
}

// Collector runs read-only git queries against a repository.
// Each invocation is a pure read over a point-in-time snapshot; no state
// is kept between calls.
type Collector struct {
	repoPath string
}

// NewCollector creates a collector for the repository at repoPath
func NewCollector(repoPath string) *Collector {
	return &Collector{repoPath: repoPath}
}

// Collect gathers the change set between base and head.
// Per-file queries target disjoint file sets, so they fan out in parallel
// and join before classification. The caller supplies the blanket timeout
// via ctx; on timeout the whole collection fails.
func (c *Collector) Collect(ctx context.Context, base, head string) (*Result, error) {
	baseSHA, err := ResolveRef(ctx, c.repoPath, base)
	if err != nil {
		return nil, err
	}
	headSHA, err := ResolveRef(ctx, c.repoPath, head)
	if err != nil {
		return nil, err
	}

	if baseSHA == headSHA {
		return nil, cserr.EmptyDiff(base, head)
	}

	logging.Debug("collecting diff", "base", baseSHA[:8], "head", headSHA[:8])

	statuses, err := c.nameStatus(ctx, baseSHA, headSHA)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, cserr.EmptyDiff(base, head)
	}

	fullDiff, err := c.diff(ctx, baseSHA, headSHA, "")
	if err != nil {
		return nil, err
	}

	result := &Result{
		BaseRef:  base,
		HeadRef:  head,
		BaseSHA:  baseSHA,
		HeadSHA:  headSHA,
		FullDiff: fullDiff,
		Files:    make([]FileChange, len(statuses)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range statuses {
		i, st := i, st
		g.Go(func() error {
			fc, err := c.collectFile(gctx, baseSHA, headSHA, st)
			if err != nil {
				return err
			}
			result.Files[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, cserr.Timeout(ctx.Err())
		}
		return nil, err
	}

	logging.Info("diff collected", "files", len(result.Files))
	return result, nil
}

// PathScopedDiff returns the raw textual diff restricted to a path prefix
func (c *Collector) PathScopedDiff(ctx context.Context, base, head, prefix string) (string, error) {
	baseSHA, err := ResolveRef(ctx, c.repoPath, base)
	if err != nil {
		return "", err
	}
	headSHA, err := ResolveRef(ctx, c.repoPath, head)
	if err != nil {
		return "", err
	}
	return c.diff(ctx, baseSHA, headSHA, prefix)
}

// statusEntry is one parsed line of git diff --name-status output
type statusEntry struct {
	status  models.ChangeStatus
	path    string
	oldPath string
}

// nameStatus runs git diff --name-status -M and parses the records
func (c *Collector) nameStatus(ctx context.Context, baseSHA, headSHA string) ([]statusEntry, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", "-M", baseSHA, headSHA)
	cmd.Dir = c.repoPath

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, cserr.Timeout(ctx.Err())
		}
		return nil, fmt.Errorf("git diff --name-status failed: %w", err)
	}

	var entries []statusEntry
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		switch parts[0][0] {
		case 'A':
			entries = append(entries, statusEntry{status: models.StatusAdded, path: parts[1]})
		case 'M':
			entries = append(entries, statusEntry{status: models.StatusModified, path: parts[1]})
		case 'D':
			entries = append(entries, statusEntry{status: models.StatusDeleted, path: parts[1]})
		case 'R':
			// R<score>\told\tnew
			if len(parts) >= 3 {
				entries = append(entries, statusEntry{
					status:  models.StatusRenamed,
					path:    parts[2],
					oldPath: parts[1],
				})
			}
		case 'C':
			// Treat copies as additions of the new path
			if len(parts) >= 3 {
				entries = append(entries, statusEntry{status: models.StatusAdded, path: parts[2]})
			}
		default:
			entries = append(entries, statusEntry{status: models.StatusModified, path: parts[1]})
		}
	}
	return entries, nil
}

// collectFile gathers the scoped diff and before/after snapshots for one file
func (c *Collector) collectFile(ctx context.Context, baseSHA, headSHA string, st statusEntry) (FileChange, error) {
	fc := FileChange{
		Path:    st.path,
		OldPath: st.oldPath,
		Status:  st.status,
	}

	scoped, err := c.diff(ctx, baseSHA, headSHA, st.path)
	if err != nil {
		return fc, err
	}
	fc.Diff = scoped
	fc.LinesAdded, fc.LinesRemoved = CountDiffLines(scoped)

	beforePath := st.path
	if st.oldPath != "" {
		beforePath = st.oldPath
	}

	if st.status != models.StatusAdded {
		before, err := c.show(ctx, baseSHA, beforePath)
		if err != nil {
			return fc, err
		}
		fc.Before = before
	}
	if st.status != models.StatusDeleted {
		after, err := c.show(ctx, headSHA, st.path)
		if err != nil {
			return fc, err
		}
		fc.After = after
	}
	return fc, nil
}

// diff runs git diff, optionally scoped to a path prefix
func (c *Collector) diff(ctx context.Context, baseSHA, headSHA, prefix string) (string, error) {
	args := []string{"diff", "-M", baseSHA, headSHA}
	if prefix != "" {
		args = append(args, "--", prefix)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoPath

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", cserr.Timeout(ctx.Err())
		}
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return string(output), nil
}

// show returns a file's content at a given commit
func (c *Collector) show(ctx context.Context, sha, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "show", sha+":"+path)
	cmd.Dir = c.repoPath

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", cserr.Timeout(ctx.Err())
		}
		return "", fmt.Errorf("git show %s:%s failed: %w", sha[:8], path, err)
	}
	return string(output), nil
}

// CountDiffLines counts added and removed lines in a unified diff,
// ignoring the +++/--- header lines
func CountDiffLines(diffText string) (int, int) {
	if diffText == "" {
		return 0, 0
	}

	added := 0
	removed := 0
	for _, line := range strings.Split(diffText, "\n") {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+':
			if !strings.HasPrefix(line, "+++") {
				added++
			}
		case '-':
			if !strings.HasPrefix(line, "---") {
				removed++
			}
		}
	}
	return added, removed
}
