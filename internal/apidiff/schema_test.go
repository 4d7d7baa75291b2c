package apidiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changescribe/changescribe/internal/gitdiff"
	"github.com/changescribe/changescribe/internal/models"
)

const schemaBefore = `
model Package {
  id          String   @id @default(cuid())
  title       String
  needDate    DateTime
  tier        Int      @default(1)
  createdAt   DateTime @default(now())
}

model User {
  id    String @id
  email String @unique
}
`

const schemaAfter = `
model Package {
  id               String   @id @default(cuid())
  title            String
  needDate         DateTime
  tier             Int      @default(1)
  fitaraApprovalId String?
  createdAt        DateTime @default(now())
}

model User {
  id    String @id
  email String @unique
}

model FitaraApproval {
  id       String  @id @default(cuid())
  status   String
  package  Package @relation(fields: [packageId], references: [id])
  packageId String
}
`

func TestParseSchema(t *testing.T) {
	schemas := ParseSchema(schemaBefore)
	require.Len(t, schemas, 2)

	pkg, ok := schemas["Package"]
	require.True(t, ok)
	assert.Len(t, pkg.Columns, 5)
	assert.Equal(t, "String", pkg.Columns["title"].Type)
	assert.False(t, pkg.Columns["title"].Nullable)
	assert.Equal(t, "DateTime", pkg.Columns["needDate"].Type)
}

func TestParseSchemaNullableAndRelation(t *testing.T) {
	schemas := ParseSchema(schemaAfter)

	pkg := schemas["Package"]
	require.Contains(t, pkg.Columns, "fitaraApprovalId")
	assert.True(t, pkg.Columns["fitaraApprovalId"].Nullable)
	assert.Equal(t, "String", pkg.Columns["fitaraApprovalId"].Type)

	appr := schemas["FitaraApproval"]
	require.Contains(t, appr.Columns, "package")
	assert.Equal(t, "Package", appr.Columns["package"].Relation)
}

// Scenario: schema adds nullable column fitara_approval_id with migration
// 20240501_add_fitara and a down migration present -> reversible = yes,
// dataImpact = None.
func TestDiffSchemasNullableAddWithDownMigration(t *testing.T) {
	records := []models.ChangeRecord{
		{Path: "prisma/schema.prisma", Status: models.StatusModified, Category: models.CategoryDatabase, Priority: models.PriorityCritical},
		{Path: "prisma/migrations/20240501_add_fitara/migration.sql", Status: models.StatusAdded, Category: models.CategoryDatabase, Priority: models.PriorityCritical},
		{Path: "prisma/migrations/20240501_add_fitara/down.sql", Status: models.StatusAdded, Category: models.CategoryDatabase, Priority: models.PriorityCritical},
	}
	files := map[string]gitdiff.FileChange{
		"prisma/schema.prisma": {Path: "prisma/schema.prisma", Before: schemaBefore, After: schemaAfter},
	}

	deltas, notes := DiffSchemas(records, files)
	require.Empty(t, notes)
	require.Len(t, deltas, 2) // modified Package + new FitaraApproval

	var pkgDelta *models.SchemaDelta
	for i := range deltas {
		if deltas[i].Table == "Package" {
			pkgDelta = &deltas[i]
		}
	}
	require.NotNil(t, pkgDelta)

	assert.Equal(t, "Modified", pkgDelta.ChangeType)
	assert.Equal(t, "20240501_add_fitara", pkgDelta.MigrationName)
	assert.Equal(t, models.ReversibleYes, pkgDelta.Reversible)
	assert.Equal(t, "None", pkgDelta.DataImpact)

	require.Len(t, pkgDelta.Columns, 1)
	assert.Equal(t, "fitaraApprovalId", pkgDelta.Columns[0].Name)
	assert.Equal(t, models.ColumnAdded, pkgDelta.Columns[0].ChangeType)
	assert.True(t, pkgDelta.Columns[0].Nullable)
}

func TestDiffSchemasNewTableWithRelation(t *testing.T) {
	records := []models.ChangeRecord{
		{Path: "prisma/schema.prisma", Status: models.StatusModified, Category: models.CategoryDatabase},
	}
	files := map[string]gitdiff.FileChange{
		"prisma/schema.prisma": {Path: "prisma/schema.prisma", Before: schemaBefore, After: schemaAfter},
	}

	deltas, _ := DiffSchemas(records, files)

	var newTable *models.SchemaDelta
	for i := range deltas {
		if deltas[i].Table == "FitaraApproval" {
			newTable = &deltas[i]
		}
	}
	require.NotNil(t, newTable)

	assert.Equal(t, "New", newTable.ChangeType)
	// No migration output located anywhere in the change set
	assert.Equal(t, models.ReversibleUnknown, newTable.Reversible)
	require.Len(t, newTable.Relations, 1)
	assert.Equal(t, "package", newTable.Relations[0].Field)
	assert.Equal(t, "Package", newTable.Relations[0].References)
	assert.True(t, newTable.Relations[0].Added)
}

func TestFindMigration(t *testing.T) {
	tests := []struct {
		name           string
		paths          []string
		wantName       string
		wantReversible models.Reversibility
	}{
		{
			"migration with down",
			[]string{"prisma/migrations/20240501_add_fitara/migration.sql", "prisma/migrations/20240501_add_fitara/down.sql"},
			"20240501_add_fitara",
			models.ReversibleYes,
		},
		{
			"migration without down",
			[]string{"prisma/migrations/20240501_add_fitara/migration.sql"},
			"20240501_add_fitara",
			models.ReversibleNo,
		},
		{
			"no migration output",
			[]string{"prisma/schema.prisma"},
			"",
			models.ReversibleUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []models.ChangeRecord
			for _, p := range tt.paths {
				records = append(records, models.ChangeRecord{Path: p})
			}
			info := FindMigration(records)
			assert.Equal(t, tt.wantName, info.Name)
			assert.Equal(t, tt.wantReversible, info.Reversible)
		})
	}
}

func TestDiffSchemasColumnDropAndRetype(t *testing.T) {
	before := `
model Package {
  id     String @id
  title  String
  legacy String
}
`
	after := `
model Package {
  id    String @id
  title Int
}
`
	records := []models.ChangeRecord{
		{Path: "prisma/schema.prisma", Category: models.CategoryDatabase},
	}
	files := map[string]gitdiff.FileChange{
		"prisma/schema.prisma": {Before: before, After: after},
	}

	deltas, _ := DiffSchemas(records, files)
	require.Len(t, deltas, 1)

	delta := deltas[0]
	assert.Contains(t, delta.DataImpact, "data loss: column legacy dropped")
	assert.Contains(t, delta.DataImpact, "type conversion required for column title")
	require.Len(t, delta.Columns, 2)
	assert.Equal(t, models.ColumnDropped, delta.Columns[0].ChangeType)
	assert.Equal(t, "legacy", delta.Columns[0].Name)
	assert.Equal(t, models.ColumnRetyped, delta.Columns[1].ChangeType)
	assert.Equal(t, "title", delta.Columns[1].Name)
}
