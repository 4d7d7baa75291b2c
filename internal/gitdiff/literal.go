package gitdiff

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	cserr "github.com/changescribe/changescribe/internal/errors"
	"github.com/changescribe/changescribe/internal/models"
)

// ParseLiteralDiff builds a Result from raw unified diff text.
// This is the fallback input mode for when no repository is available
// (e.g. a diff pasted into a request, or fetched from a PR).
// Snapshots are reconstructed from hunk context, so they cover the changed
// regions of each file rather than the whole file.
func ParseLiteralDiff(diffText string) (*Result, error) {
	trimmed := strings.TrimSpace(diffText)
	if trimmed == "" {
		return nil, cserr.EmptyDiff("base", "head")
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, cserr.Internal("failed to parse unified diff", err)
	}
	if len(fileDiffs) == 0 {
		return nil, cserr.EmptyDiff("base", "head")
	}

	result := &Result{
		BaseRef:  "base",
		HeadRef:  "head",
		FullDiff: diffText,
	}

	for _, fd := range fileDiffs {
		fc := FileChange{
			Path:   stripDiffPrefix(fd.NewName),
			Status: models.StatusModified,
		}

		origName := stripDiffPrefix(fd.OrigName)
		switch {
		case fd.OrigName == "/dev/null":
			fc.Status = models.StatusAdded
		case fd.NewName == "/dev/null":
			fc.Status = models.StatusDeleted
			fc.Path = origName
		case origName != fc.Path:
			fc.Status = models.StatusRenamed
			fc.OldPath = origName
		}

		perFile, perr := diff.PrintFileDiff(fd)
		if perr == nil {
			fc.Diff = string(perFile)
		}
		fc.LinesAdded, fc.LinesRemoved = CountDiffLines(fc.Diff)
		fc.Before, fc.After = reconstructSnapshots(fd)

		result.Files = append(result.Files, fc)
	}
	return result, nil
}

// stripDiffPrefix removes the a/ or b/ prefix git puts on diff names
func stripDiffPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

// reconstructSnapshots rebuilds approximate before/after content from
// hunk bodies: context + removed lines on the before side, context +
// added lines on the after side
func reconstructSnapshots(fd *diff.FileDiff) (before, after string) {
	var b, a strings.Builder
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case ' ':
				b.WriteString(line[1:])
				b.WriteByte('\n')
				a.WriteString(line[1:])
				a.WriteByte('\n')
			case '-':
				b.WriteString(line[1:])
				b.WriteByte('\n')
			case '+':
				a.WriteString(line[1:])
				a.WriteByte('\n')
			}
		}
	}
	if fd.OrigName == "/dev/null" {
		return "", a.String()
	}
	if fd.NewName == "/dev/null" {
		return b.String(), ""
	}
	return b.String(), a.String()
}
