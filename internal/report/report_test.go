package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changescribe/changescribe/internal/models"
)

func sampleReport() *models.Report {
	return &models.Report{
		Run: models.AnalysisRun{
			ID:        "run-1",
			Repo:      "/tmp/repo",
			BaseRef:   "main",
			HeadRef:   "feature/rename",
			StartedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			Source:    "git",
		},
		Changes: []models.ChangeRecord{
			{Path: "app/api/requests/route.ts", Status: models.StatusModified, Category: models.CategoryAPI, Priority: models.PriorityCritical, LinesAdded: 12, LinesRemoved: 4},
			{Path: "components/ui/button.tsx", Status: models.StatusModified, Category: models.CategoryUI, Priority: models.PriorityMedium, LinesAdded: 2, LinesRemoved: 2},
			{Path: "lib/palt.ts", Status: models.StatusAdded, Category: models.CategoryBusinessLogic, Priority: models.PriorityHigh, LinesAdded: 40},
		},
		Endpoints: []models.EndpointDelta{
			{
				Method:     "POST",
				Path:       "/api/requests",
				File:       "app/api/requests/route.ts",
				ChangeType: models.EndpointModified,
				RequestFieldDiffs: []models.FieldDiff{
					{Field: "name", Before: "", After: "string (required)"},
					{Field: "title", Before: "string (required)", After: ""},
				},
				Breaking:       models.BreakingYes,
				BreakingReason: "required request field title removed",
			},
		},
		Schemas: []models.SchemaDelta{
			{
				Table:         "Request",
				ChangeType:    "Modified",
				Columns:       []models.ColumnDiff{{Name: "fitaraStatus", ChangeType: models.ColumnAdded, TypeAfter: "String", Nullable: true}},
				MigrationName: "20260314_add_fitara_status",
				Reversible:    models.ReversibleYes,
				DataImpact:    "None",
			},
		},
		TestCases: []models.TestCase{
			{
				ID:             "TC-001",
				Priority:       models.PriorityCritical,
				Endpoint:       "POST /api/requests",
				Title:          "Regression: renamed request field",
				Preconditions:  "Authenticated session",
				Steps:          []string{"Submit a request using the old title field", "Submit a request using the new name field"},
				ExpectedResult: "Old payload rejected with 400, new payload accepted",
				EdgeCases:      []string{"Payload containing both fields"},
			},
		},
		ManualReview: []models.ReviewNote{
			{Path: "app/api/legacy/route.ts", Reason: "request body is built dynamically"},
		},
	}
}

func TestRenderChangelogSections(t *testing.T) {
	doc := RenderChangelog(sampleReport())

	for _, heading := range []string{
		"## Summary", "## Risk Assessment", "## API Changes", "### Endpoints",
		"### Field Changes", "## Database Changes", "### Column Changes",
		"## Test Cases", "## Deployment Notes", "## Manual Review",
	} {
		assert.Contains(t, doc, heading+"\n")
	}

	assert.Contains(t, doc, "Overall risk: **Critical**")
	assert.Contains(t, doc, "| TC-001 |")
	assert.Contains(t, doc, "required request field title removed")
	assert.Contains(t, doc, "- [ ] Run migration `20260314_add_fitara_status` before deploying")
	assert.Contains(t, doc, "Coordinate client rollout for breaking change on POST /api/requests")
	assert.Contains(t, doc, "app/api/legacy/route.ts")
}

func TestRenderChangelogSummaryCounts(t *testing.T) {
	doc := RenderChangelog(sampleReport())

	assert.Contains(t, doc,
		"3 files changed. Overall risk: **Critical**. 1 endpoint change(s), 1 breaking. 1 schema change(s). 1 test case(s) below.")
	assert.NotContains(t, doc, "MISSING")
}

func TestRenderChangelogEmptySectionsKeepPlaceholders(t *testing.T) {
	r := &models.Report{Run: models.AnalysisRun{ID: "run-2", BaseRef: "a", HeadRef: "b", StartedAt: time.Unix(0, 0)}}
	doc := RenderChangelog(r)

	// Every fixed section still renders, tables get placeholder rows
	for _, heading := range []string{
		"## Summary", "## Risk Assessment", "## API Changes",
		"## Database Changes", "## Test Cases", "## Deployment Notes", "## Manual Review",
	} {
		assert.Contains(t, doc, heading+"\n")
	}
	assert.Contains(t, doc, "| — | — | — | — |")
	assert.Contains(t, doc, "- [ ] No special deployment steps required")
}

func TestRenderChangelogNoChanges(t *testing.T) {
	r := &models.Report{
		Run:       models.AnalysisRun{ID: "run-3", BaseRef: "main", HeadRef: "main", StartedAt: time.Unix(0, 0)},
		NoChanges: true,
	}
	doc := RenderChangelog(r)
	assert.Contains(t, doc, "No changes detected")
	assert.Contains(t, doc, "## Risk Assessment")
}

func TestRenderChangelogDeterministic(t *testing.T) {
	r := sampleReport()
	first := RenderChangelog(r)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, RenderChangelog(r))
	}
}

func TestRenderChangelogRiskAssessmentOrderedByPriority(t *testing.T) {
	doc := RenderChangelog(sampleReport())
	rows := sectionTable(doc, headingRisk)
	require.Len(t, rows, 3)
	assert.Equal(t, "Critical", rows[0][0])
	assert.Equal(t, "High", rows[1][0])
	assert.Equal(t, "Medium", rows[2][0])
}

func TestRenderReadmeSections(t *testing.T) {
	doc := RenderReadme(sampleReport())

	for _, heading := range []string{
		"## Files Changed", "## How to Test Locally", "## API Documentation",
		"## Known Limitations", "## Dependencies",
	} {
		assert.Contains(t, doc, heading+"\n")
	}
	assert.Contains(t, doc, "### POST /api/requests")
	assert.Contains(t, doc, "npx prisma migrate dev")
	assert.Contains(t, doc, "Exercise `POST /api/requests`")
	assert.Contains(t, doc, "app/api/legacy/route.ts: request body is built dynamically")
}

func TestRenderReadmeDependencyTable(t *testing.T) {
	r := sampleReport()
	r.Changes = append(r.Changes, models.ChangeRecord{
		Path:     "package.json",
		Status:   models.StatusModified,
		Category: models.CategoryConfig,
		Priority: models.PriorityMedium,
		RawDiff: `diff --git a/package.json b/package.json
@@ -10,7 +10,8 @@
   "dependencies": {
-    "zod": "^3.21.0",
+    "zod": "^3.22.0",
+    "date-fns": "^3.0.0",
     "next": "14.1.0"
   },
`,
	})
	doc := RenderReadme(r)

	assert.Contains(t, doc, "| date-fns | — | ^3.0.0 | added |")
	assert.Contains(t, doc, "| zod | ^3.21.0 | ^3.22.0 | updated |")
}

func TestParseChangeTableRoundTrip(t *testing.T) {
	r := sampleReport()
	doc := RenderChangelog(r)

	got := ParseChangeTable(doc)
	require.Len(t, got, len(r.Changes))

	// Rendered table is priority-ordered; compare as sets of tuples
	want := map[string]models.ChangeRecord{}
	for _, c := range r.Changes {
		want[c.Path] = c
	}
	for _, g := range got {
		w, ok := want[g.Path]
		require.True(t, ok, "unexpected path %s", g.Path)
		assert.Equal(t, w.Priority, g.Priority)
		assert.Equal(t, w.Category, g.Category)
		assert.Equal(t, w.Status, g.Status)
	}
}

func TestParseEndpointTableRoundTrip(t *testing.T) {
	r := sampleReport()
	r.Endpoints = append(r.Endpoints, models.EndpointDelta{
		Method:     "POST",
		Path:       "/api/requests/archive",
		File:       "app/api/requests/archive/route.ts",
		ChangeType: models.EndpointNew,
		AuthChange: "session required",
		Breaking:   models.BreakingNo,
	})
	doc := RenderChangelog(r)

	got := ParseEndpointTable(doc)
	require.Len(t, got, 2)
	assert.Equal(t, "POST", got[0].Method)
	assert.Equal(t, "/api/requests", got[0].Path)
	assert.Equal(t, models.BreakingYes, got[0].Breaking)
	assert.Equal(t, "required request field title removed", got[0].BreakingReason)
	assert.Equal(t, models.EndpointNew, got[1].ChangeType)
	assert.Equal(t, "session required", got[1].AuthChange)
	assert.Empty(t, got[1].BreakingReason)
}

func TestParseTestCaseTableRoundTrip(t *testing.T) {
	doc := RenderChangelog(sampleReport())

	got := ParseTestCaseTable(doc)
	require.Len(t, got, 1)
	assert.Equal(t, "TC-001", got[0].ID)
	assert.Equal(t, models.PriorityCritical, got[0].Priority)
	assert.Equal(t, "POST /api/requests", got[0].Endpoint)
	assert.Equal(t, "Regression: renamed request field", got[0].Title)
}

func TestParseTablesIgnorePlaceholderRows(t *testing.T) {
	r := &models.Report{Run: models.AnalysisRun{ID: "run-4", BaseRef: "a", HeadRef: "b", StartedAt: time.Unix(0, 0)}}
	doc := RenderChangelog(r)

	assert.Empty(t, ParseChangeTable(doc))
	assert.Empty(t, ParseEndpointTable(doc))
	assert.Empty(t, ParseTestCaseTable(doc))
}

func TestEscapedPipesSurviveRoundTrip(t *testing.T) {
	r := sampleReport()
	r.TestCases[0].Title = "Handles a | in the title"
	doc := RenderChangelog(r)

	got := ParseTestCaseTable(doc)
	require.Len(t, got, 1)
	assert.Equal(t, "Handles a | in the title", got[0].Title)
}

func TestSplitRowHandlesEscapes(t *testing.T) {
	cells := splitRow(`| a | b \| c | d |`)
	assert.Equal(t, []string{"a", "b | c", "d"}, cells)
}

func TestTableWriterPlaceholderOnEmpty(t *testing.T) {
	var sb strings.Builder
	tw := newTable(&sb, "A", "B")
	tw.Close()
	assert.Contains(t, sb.String(), "| — | — |")
}
