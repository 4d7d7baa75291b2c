package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/changescribe/changescribe/internal/models"
)

const (
	headingFiles     = "Files Changed"
	headingTestLocal = "How to Test Locally"
	headingAPIDoc    = "API Documentation"
	headingLimits    = "Known Limitations"
	headingDeps      = "Dependencies"
)

// RenderReadme renders the developer-facing README for a change set
func RenderReadme(r *models.Report) string {
	var sb strings.Builder

	sb.WriteString("# Change README\n\n")
	fmt.Fprintf(&sb, "Analysis %s | %s...%s\n\n", r.Run.ID, r.Run.BaseRef, r.Run.HeadRef)

	writeFilesChanged(&sb, r)
	writeHowToTest(&sb, r)
	writeAPIDoc(&sb, r)
	writeKnownLimitations(&sb, r)
	writeDependencies(&sb, r)

	return sb.String()
}

func writeFilesChanged(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingFiles)

	t := newTable(sb, "File", "Status", "Category", "+", "-")
	for _, c := range r.Changes {
		path := c.Path
		if c.Status == models.StatusRenamed && c.OldPath != "" {
			path = c.OldPath + " -> " + c.Path
		}
		t.Row(path, string(c.Status), string(c.Category),
			fmt.Sprintf("%d", c.LinesAdded), fmt.Sprintf("%d", c.LinesRemoved))
	}
	t.Close()
}

func writeHowToTest(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingTestLocal)

	steps := []string{
		fmt.Sprintf("Check out the head ref: `git checkout %s`", r.Run.HeadRef),
		"Install dependencies: `npm install`",
	}
	if len(r.Schemas) > 0 {
		steps = append(steps, "Apply pending migrations: `npx prisma migrate dev`")
	}
	steps = append(steps, "Start the dev server: `npm run dev`")
	for _, e := range r.Endpoints {
		if e.ChangeType == models.EndpointDeleted {
			continue
		}
		steps = append(steps, fmt.Sprintf("Exercise `%s %s` and verify the response shape", e.Method, e.Path))
	}
	if len(r.Endpoints) == 0 && len(r.Schemas) == 0 {
		steps = append(steps, "Smoke-test the affected pages listed under Files Changed")
	}

	for i, s := range steps {
		fmt.Fprintf(sb, "%d. %s\n", i+1, s)
	}
	sb.WriteString("\n")
}

func writeAPIDoc(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingAPIDoc)

	if len(r.Endpoints) == 0 {
		sb.WriteString("No API changes in this change set.\n\n")
		return
	}

	for _, e := range r.Endpoints {
		fmt.Fprintf(sb, "### %s %s\n\n", e.Method, e.Path)
		fmt.Fprintf(sb, "Change: %s. Breaking: %s.", e.ChangeType, e.Breaking)
		if e.BreakingReason != "" {
			fmt.Fprintf(sb, " %s.", e.BreakingReason)
		}
		sb.WriteString("\n\n")

		if len(e.RequestFieldDiffs) > 0 {
			sb.WriteString("Request fields:\n\n")
			t := newTable(sb, "Field", "Before", "After")
			for _, fd := range e.RequestFieldDiffs {
				t.Row(fd.Field, fd.Before, fd.After)
			}
			t.Close()
		}
		if len(e.ResponseFieldDiffs) > 0 {
			sb.WriteString("Response fields:\n\n")
			t := newTable(sb, "Field", "Before", "After")
			for _, fd := range e.ResponseFieldDiffs {
				t.Row(fd.Field, fd.Before, fd.After)
			}
			t.Close()
		}
		if e.AuthChange != "" {
			fmt.Fprintf(sb, "Auth: %s\n\n", e.AuthChange)
		}
	}
}

func writeKnownLimitations(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingLimits)

	var items []string
	for _, e := range r.Endpoints {
		if e.Breaking == models.BreakingUnknown {
			items = append(items, fmt.Sprintf("Request body of %s %s is built dynamically; breaking status could not be determined", e.Method, e.Path))
		}
	}
	for _, n := range r.ManualReview {
		items = append(items, fmt.Sprintf("%s: %s", n.Path, n.Reason))
	}
	for _, s := range r.Schemas {
		if s.Reversible == models.ReversibleUnknown {
			items = append(items, fmt.Sprintf("Reversibility of the migration touching table %s is unknown", s.Table))
		}
	}
	items = dedupe(items)

	if len(items) == 0 {
		sb.WriteString("None known.\n\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	sb.WriteString("\n")
}

// depLineRe matches a dependency entry inside a package.json diff hunk,
// e.g. `+    "zod": "^3.22.0",`
var depLineRe = regexp.MustCompile(`^([+-])\s*"([^"]+)"\s*:\s*"([^"]+)"`)

// packageJSONDeps extracts dependency additions and removals from the
// raw diff of a package.json change. Returned as name -> [before, after].
func packageJSONDeps(rawDiff string) map[string][2]string {
	deps := map[string][2]string{}
	inDeps := false
	for _, line := range strings.Split(rawDiff, "\n") {
		trimmed := strings.TrimLeft(line, "+- \t")
		if strings.HasPrefix(trimmed, `"dependencies"`) || strings.HasPrefix(trimmed, `"devDependencies"`) {
			inDeps = true
			continue
		}
		if inDeps && strings.HasPrefix(trimmed, "}") {
			inDeps = false
			continue
		}
		if !inDeps {
			continue
		}
		m := depLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, version := m[2], m[3]
		entry := deps[name]
		if m[1] == "-" {
			entry[0] = version
		} else {
			entry[1] = version
		}
		deps[name] = entry
	}
	return deps
}

func writeDependencies(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingDeps)

	t := newTable(sb, "Package", "Before", "After", "Change")
	var names []string
	merged := map[string][2]string{}
	for _, c := range r.Changes {
		if !strings.HasSuffix(c.Path, "package.json") || c.RawDiff == "" {
			continue
		}
		for name, entry := range packageJSONDeps(c.RawDiff) {
			merged[name] = entry
			names = append(names, name)
		}
	}
	names = dedupe(names)
	sort.Strings(names)
	for _, name := range names {
		entry := merged[name]
		change := "updated"
		switch {
		case entry[0] == "" && entry[1] != "":
			change = "added"
		case entry[0] != "" && entry[1] == "":
			change = "removed"
		}
		t.Row(name, entry[0], entry[1], change)
	}
	t.Close()
}
