package apidiff

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/changescribe/changescribe/internal/gitdiff"
	"github.com/changescribe/changescribe/internal/logging"
	"github.com/changescribe/changescribe/internal/models"
)

// Column is one parsed field of a Prisma model
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Relation string // referenced model, for @relation fields
}

// Model is one parsed Prisma model block
type Model struct {
	Name    string
	Columns map[string]Column
}

var modelRe = regexp.MustCompile(`(?m)^model\s+(\w+)\s*\{`)

// ParseSchema parses model blocks out of a Prisma schema file
func ParseSchema(content string) map[string]Model {
	schemas := map[string]Model{}

	for _, loc := range modelRe.FindAllStringSubmatchIndex(content, -1) {
		name := content[loc[2]:loc[3]]
		block, ok := braceBlock(content, loc[1]-1)
		if !ok {
			continue
		}
		model := Model{Name: name, Columns: map[string]Column{}}
		for _, line := range strings.Split(block, "\n") {
			col, ok := parseColumnLine(line)
			if ok {
				model.Columns[col.Name] = col
			}
		}
		schemas[name] = model
	}
	return schemas
}

// parseColumnLine parses one `name Type? @attr` field line. Block-level
// attributes (@@index, @@map) and comments are skipped.
func parseColumnLine(line string) (Column, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "@@") {
		return Column{}, false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Column{}, false
	}

	col := Column{Name: fields[0], Type: fields[1]}
	if strings.HasSuffix(col.Type, "?") {
		col.Type = strings.TrimSuffix(col.Type, "?")
		col.Nullable = true
	}
	if strings.HasSuffix(col.Type, "[]") {
		col.Type = strings.TrimSuffix(col.Type, "[]")
	}

	if strings.Contains(line, "@relation") {
		// The field's declared type is the referenced model
		col.Relation = col.Type
	}
	return col, true
}

// MigrationInfo captures what the change set tells us about migration
// tooling output
type MigrationInfo struct {
	Name       string
	Reversible models.Reversibility
}

// migrationPathRe matches prisma/migrations/<name>/migration.sql
var migrationPathRe = regexp.MustCompile(`^prisma/migrations/([^/]+)/migration\.sql$`)

// FindMigration locates migration tooling output in the change set.
// Reversible is yes only when a generated down migration is present,
// no when the migration dir exists without one, and unknown when no
// migration output can be located at all.
func FindMigration(records []models.ChangeRecord) MigrationInfo {
	info := MigrationInfo{Reversible: models.ReversibleUnknown}

	downDirs := map[string]bool{}
	for _, rec := range records {
		if path.Base(rec.Path) == "down.sql" {
			downDirs[path.Dir(rec.Path)] = true
		}
	}

	for _, rec := range records {
		m := migrationPathRe.FindStringSubmatch(rec.Path)
		if m == nil {
			continue
		}
		info.Name = m[1]
		if downDirs[path.Dir(rec.Path)] {
			info.Reversible = models.ReversibleYes
		} else {
			info.Reversible = models.ReversibleNo
		}
		break
	}
	return info
}

// DiffSchemas produces schema deltas for every change record that
// touches a Prisma schema file. Unparseable schema files are flagged
// for manual review instead of aborting.
func DiffSchemas(records []models.ChangeRecord, files map[string]gitdiff.FileChange) ([]models.SchemaDelta, []models.ReviewNote) {
	var deltas []models.SchemaDelta
	var notes []models.ReviewNote

	migration := FindMigration(records)

	for _, rec := range records {
		if rec.Category != models.CategoryDatabase {
			continue
		}
		if !strings.HasSuffix(rec.Path, ".prisma") {
			continue
		}

		fc, ok := files[rec.Path]
		if !ok {
			continue
		}

		before := ParseSchema(fc.Before)
		after := ParseSchema(fc.After)
		if len(before) == 0 && len(after) == 0 {
			notes = append(notes, models.ReviewNote{Path: rec.Path, Reason: "no model blocks found; manual review needed"})
			continue
		}

		for _, name := range unionModelNames(before, after) {
			b, hasBefore := before[name]
			a, hasAfter := after[name]

			switch {
			case !hasBefore && hasAfter:
				deltas = append(deltas, newTableDelta(a, migration))
			case hasBefore && hasAfter:
				if delta, changed := modifiedTableDelta(b, a, migration); changed {
					deltas = append(deltas, delta)
				}
			case hasBefore && !hasAfter:
				deltas = append(deltas, models.SchemaDelta{
					Table:         name,
					ChangeType:    "Dropped",
					MigrationName: migration.Name,
					Reversible:    migration.Reversible,
					DataImpact:    fmt.Sprintf("Data loss: table %s dropped", name),
				})
			}
		}
		logging.Debug("schema diffed", "path", rec.Path, "deltas", len(deltas))
	}
	return deltas, notes
}

// newTableDelta renders a brand-new model as a delta with every column
// added
func newTableDelta(m Model, migration MigrationInfo) models.SchemaDelta {
	delta := models.SchemaDelta{
		Table:         m.Name,
		ChangeType:    "New",
		MigrationName: migration.Name,
		Reversible:    migration.Reversible,
		DataImpact:    "None",
	}
	for _, col := range sortedColumns(m.Columns) {
		if col.Relation != "" {
			delta.Relations = append(delta.Relations, models.RelationDiff{
				Field: col.Name, References: col.Relation, Added: true,
			})
			continue
		}
		delta.Columns = append(delta.Columns, models.ColumnDiff{
			Name: col.Name, ChangeType: models.ColumnAdded, TypeAfter: col.Type, Nullable: col.Nullable,
		})
	}
	return delta
}

// modifiedTableDelta diffs two versions of a model. Returns changed =
// false when the columns are identical.
func modifiedTableDelta(before, after Model, migration MigrationInfo) (models.SchemaDelta, bool) {
	delta := models.SchemaDelta{
		Table:         after.Name,
		ChangeType:    "Modified",
		MigrationName: migration.Name,
		Reversible:    migration.Reversible,
	}

	var impacts []string

	names := map[string]bool{}
	for n := range before.Columns {
		names[n] = true
	}
	for n := range after.Columns {
		names[n] = true
	}

	for _, n := range sortedKeys(names) {
		b, hasBefore := before.Columns[n]
		a, hasAfter := after.Columns[n]

		switch {
		case !hasBefore && hasAfter:
			if a.Relation != "" {
				delta.Relations = append(delta.Relations, models.RelationDiff{
					Field: a.Name, References: a.Relation, Added: true,
				})
				continue
			}
			delta.Columns = append(delta.Columns, models.ColumnDiff{
				Name: n, ChangeType: models.ColumnAdded, TypeAfter: a.Type, Nullable: a.Nullable,
			})
			if !a.Nullable {
				impacts = append(impacts, fmt.Sprintf("backfill required for non-nullable column %s", n))
			}
		case hasBefore && !hasAfter:
			if b.Relation != "" {
				delta.Relations = append(delta.Relations, models.RelationDiff{
					Field: b.Name, References: b.Relation, Added: false,
				})
				continue
			}
			delta.Columns = append(delta.Columns, models.ColumnDiff{
				Name: n, ChangeType: models.ColumnDropped, TypeBefore: b.Type, Nullable: b.Nullable,
			})
			impacts = append(impacts, fmt.Sprintf("data loss: column %s dropped", n))
		case b.Type != a.Type:
			delta.Columns = append(delta.Columns, models.ColumnDiff{
				Name: n, ChangeType: models.ColumnRetyped, TypeBefore: b.Type, TypeAfter: a.Type, Nullable: a.Nullable,
			})
			impacts = append(impacts, fmt.Sprintf("type conversion required for column %s", n))
		}
	}

	if len(delta.Columns) == 0 && len(delta.Relations) == 0 {
		return delta, false
	}

	if len(impacts) == 0 {
		delta.DataImpact = "None"
	} else {
		delta.DataImpact = strings.Join(impacts, "; ")
	}
	return delta, true
}

func unionModelNames(before, after map[string]Model) []string {
	set := map[string]bool{}
	for n := range before {
		set[n] = true
	}
	for n := range after {
		set[n] = true
	}
	return sortedKeys(set)
}

func sortedColumns(m map[string]Column) []Column {
	cols := make([]Column, 0, len(m))
	for _, c := range m {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols
}
