package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/changescribe/changescribe/internal/models"
)

// QA changelog section headings. Fixed ordering; every section always
// renders.
const (
	headingSummary    = "Summary"
	headingRisk       = "Risk Assessment"
	headingAPI        = "API Changes"
	headingEndpoints  = "Endpoints"
	headingFields     = "Field Changes"
	headingDatabase   = "Database Changes"
	headingColumns    = "Column Changes"
	headingTests      = "Test Cases"
	headingDeployment = "Deployment Notes"
	headingReview     = "Manual Review"
)

// RenderChangelog renders the QA changelog document
func RenderChangelog(r *models.Report) string {
	var sb strings.Builder

	sb.WriteString("# QA Changelog\n\n")
	fmt.Fprintf(&sb, "Analysis %s | %s...%s | %s\n\n",
		r.Run.ID, r.Run.BaseRef, r.Run.HeadRef, r.Run.StartedAt.UTC().Format("2006-01-02"))

	writeSummary(&sb, r)
	writeRiskAssessment(&sb, r)
	writeAPIChanges(&sb, r)
	writeDatabaseChanges(&sb, r)
	writeTestCases(&sb, r)
	writeDeploymentNotes(&sb, r)
	writeManualReview(&sb, r)

	return sb.String()
}

func writeSummary(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingSummary)

	if r.NoChanges {
		sb.WriteString("No changes detected between the given refs.\n\n")
		return
	}

	breaking := 0
	for _, e := range r.Endpoints {
		if e.Breaking == models.BreakingYes {
			breaking++
		}
	}
	fmt.Fprintf(sb, "%d files changed. Overall risk: **%s**. %d endpoint change(s), %d breaking. %d schema change(s). %d test case(s) below.\n\n",
		len(r.Changes), r.OverallRisk(), len(r.Endpoints), breaking, len(r.Schemas), len(r.TestCases))
}

func writeRiskAssessment(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingRisk)

	t := newTable(sb, "Priority", "Category", "File", "Status")

	// Highest priority first, stable within a bucket
	ordered := make([]models.ChangeRecord, len(r.Changes))
	copy(ordered, r.Changes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() < ordered[j].Priority.Rank()
	})

	for _, c := range ordered {
		t.Row(string(c.Priority), string(c.Category), c.Path, string(c.Status))
	}
	t.Close()
}

func writeAPIChanges(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingAPI)

	fmt.Fprintf(sb, "### %s\n\n", headingEndpoints)
	t := newTable(sb, "Method", "Path", "Change", "Breaking", "Notes")
	for _, e := range r.Endpoints {
		notes := e.BreakingReason
		if e.AuthChange != "" {
			if notes != "" {
				notes += "; "
			}
			notes += "auth: " + e.AuthChange
		}
		t.Row(e.Method, e.Path, string(e.ChangeType), string(e.Breaking), notes)
	}
	t.Close()

	fmt.Fprintf(sb, "### %s\n\n", headingFields)
	ft := newTable(sb, "Endpoint", "Scope", "Field", "Before", "After")
	for _, e := range r.Endpoints {
		endpoint := e.Method + " " + e.Path
		for _, fd := range e.RequestFieldDiffs {
			ft.Row(endpoint, "request", fd.Field, fd.Before, fd.After)
		}
		for _, fd := range e.ResponseFieldDiffs {
			ft.Row(endpoint, "response", fd.Field, fd.Before, fd.After)
		}
	}
	ft.Close()
}

func writeDatabaseChanges(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingDatabase)

	t := newTable(sb, "Table", "Change", "Migration", "Reversible", "Data Impact")
	for _, s := range r.Schemas {
		t.Row(s.Table, s.ChangeType, s.MigrationName, string(s.Reversible), s.DataImpact)
	}
	t.Close()

	fmt.Fprintf(sb, "### %s\n\n", headingColumns)
	ct := newTable(sb, "Table", "Column", "Change", "Before", "After")
	for _, s := range r.Schemas {
		for _, c := range s.Columns {
			after := c.TypeAfter
			if after != "" && c.Nullable {
				after += "?"
			}
			ct.Row(s.Table, c.Name, string(c.ChangeType), c.TypeBefore, after)
		}
		for _, rel := range s.Relations {
			change := "FK removed"
			after := ""
			if rel.Added {
				change = "FK added"
				after = "-> " + rel.References
			}
			ct.Row(s.Table, rel.Field, change, "", after)
		}
	}
	ct.Close()
}

func writeTestCases(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingTests)

	t := newTable(sb, "ID", "Priority", "Endpoint", "Title", "Expected Result")
	for _, tc := range r.TestCases {
		t.Row(tc.ID, string(tc.Priority), tc.Endpoint, tc.Title, tc.ExpectedResult)
	}
	t.Close()

	// Full steps below the table, for testers working a case end to end
	for _, tc := range r.TestCases {
		fmt.Fprintf(sb, "**%s — %s**\n\n", tc.ID, tc.Title)
		if tc.Preconditions != "" {
			fmt.Fprintf(sb, "Preconditions: %s\n\n", tc.Preconditions)
		}
		for i, step := range tc.Steps {
			fmt.Fprintf(sb, "%d. %s\n", i+1, step)
		}
		if len(tc.Steps) > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(sb, "Expected: %s\n\n", tc.ExpectedResult)
		for _, ec := range tc.EdgeCases {
			fmt.Fprintf(sb, "- Edge case: %s\n", ec)
		}
		if len(tc.EdgeCases) > 0 {
			sb.WriteString("\n")
		}
	}
}

func writeDeploymentNotes(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingDeployment)

	var items []string
	for _, s := range r.Schemas {
		if s.MigrationName != "" {
			items = append(items, fmt.Sprintf("Run migration `%s` before deploying", s.MigrationName))
		}
		if s.Reversible == models.ReversibleNo {
			items = append(items, fmt.Sprintf("Migration for table %s has no down migration; snapshot the database first", s.Table))
		}
		if s.DataImpact != "" && s.DataImpact != "None" {
			items = append(items, fmt.Sprintf("Data impact on %s: %s", s.Table, s.DataImpact))
		}
	}
	for _, e := range r.Endpoints {
		if e.Breaking == models.BreakingYes {
			items = append(items, fmt.Sprintf("Coordinate client rollout for breaking change on %s %s", e.Method, e.Path))
		}
	}
	items = dedupe(items)

	if len(items) == 0 {
		sb.WriteString("- [ ] No special deployment steps required\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(sb, "- [ ] %s\n", item)
	}
	sb.WriteString("\n")
}

func writeManualReview(sb *strings.Builder, r *models.Report) {
	fmt.Fprintf(sb, "## %s\n\n", headingReview)

	t := newTable(sb, "File", "Reason")
	for _, n := range r.ManualReview {
		t.Row(n.Path, n.Reason)
	}
	t.Close()
}

func dedupe(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
