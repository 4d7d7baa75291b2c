package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changescribe/changescribe/internal/config"
	"github.com/changescribe/changescribe/internal/models"
)

const renameDiff = `diff --git a/app/api/requests/route.ts b/app/api/requests/route.ts
--- a/app/api/requests/route.ts
+++ b/app/api/requests/route.ts
@@ -1,11 +1,11 @@
 import { z } from "zod";

 const schema = z.object({
-  title: z.string(),
+  name: z.string(),
   amount: z.number(),
 });

 export async function POST(req: Request) {
   const body = schema.parse(await req.json());
   return NextResponse.json({ id: created.id });
 }
`

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestRunLiteralFullPipeline(t *testing.T) {
	p := testPipeline(t)

	r, err := p.RunLiteral(renameDiff, "main", "feature", "diff-file")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.False(t, r.NoChanges)

	require.Len(t, r.Changes, 1)
	assert.Equal(t, models.CategoryAPI, r.Changes[0].Category)
	assert.Equal(t, models.PriorityCritical, r.Changes[0].Priority)

	require.Len(t, r.Endpoints, 1)
	e := r.Endpoints[0]
	assert.Equal(t, "POST", e.Method)
	assert.Equal(t, "/api/requests", e.Path)
	assert.Equal(t, models.BreakingYes, e.Breaking)

	// Happy path plus a regression case for the breaking change
	require.GreaterOrEqual(t, len(r.TestCases), 2)
	assert.Equal(t, "TC-001", r.TestCases[0].ID)

	assert.Equal(t, "diff-file", r.Run.Source)
	assert.NotEmpty(t, r.Run.ID)
}

func TestRunLiteralEmptyDiff(t *testing.T) {
	p := testPipeline(t)

	// An empty diff is a valid no-changes outcome, never an error
	for _, diffText := range []string{"", "   \n\n"} {
		r, err := p.RunLiteral(diffText, "main", "main", "diff-file")
		require.NoError(t, err)
		assert.True(t, r.NoChanges)
		assert.Empty(t, r.Changes)
		assert.Equal(t, "diff-file", r.Run.Source)
	}
}

func TestWriteReports(t *testing.T) {
	p := testPipeline(t)

	r, err := p.RunLiteral(renameDiff, "main", "feature", "diff-file")
	require.NoError(t, err)

	changelog, readme, err := p.WriteReports(r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.cfg.Output.Dir, "QA_CHANGELOG.md"), changelog)
	assert.Equal(t, filepath.Join(p.cfg.Output.Dir, "DEV_README.md"), readme)

	data, err := os.ReadFile(changelog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# QA Changelog")
	assert.Contains(t, string(data), "## Test Cases")

	data, err = os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Files Changed")
}

func TestNewRejectsBadRulesFile(t *testing.T) {
	cfg := config.Default()
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestMergeNotesDedupesAndSorts(t *testing.T) {
	a := []models.ReviewNote{
		{Path: "b.ts", Reason: "x"},
		{Path: "a.ts", Reason: "y"},
	}
	b := []models.ReviewNote{
		{Path: "b.ts", Reason: "x"},
		{Path: "a.ts", Reason: "z"},
	}
	got := mergeNotes(a, b)
	require.Len(t, got, 3)
	assert.Equal(t, "a.ts", got[0].Path)
	assert.Equal(t, "y", got[0].Reason)
	assert.Equal(t, "a.ts", got[1].Path)
	assert.Equal(t, "z", got[1].Reason)
	assert.Equal(t, "b.ts", got[2].Path)
}
