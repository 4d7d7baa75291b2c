package report

import (
	"strings"

	"github.com/changescribe/changescribe/internal/models"
)

// cellValue maps a rendered cell back to its source value
func cellValue(c string) string {
	if c == placeholder {
		return ""
	}
	return c
}

// ParseChangeTable recovers the classified change records from a
// rendered QA changelog's risk assessment table.
func ParseChangeTable(doc string) []models.ChangeRecord {
	var out []models.ChangeRecord
	for _, row := range sectionTable(doc, headingRisk) {
		if len(row) < 4 {
			continue
		}
		out = append(out, models.ChangeRecord{
			Priority: models.Priority(cellValue(row[0])),
			Category: models.Category(cellValue(row[1])),
			Path:     cellValue(row[2]),
			Status:   models.ChangeStatus(cellValue(row[3])),
		})
	}
	return out
}

// ParseEndpointTable recovers endpoint deltas from a rendered QA
// changelog's endpoints table. Field-level diffs are not recovered.
func ParseEndpointTable(doc string) []models.EndpointDelta {
	var out []models.EndpointDelta
	for _, row := range sectionTable(doc, headingEndpoints) {
		if len(row) < 5 {
			continue
		}
		d := models.EndpointDelta{
			Method:     cellValue(row[0]),
			Path:       cellValue(row[1]),
			ChangeType: models.EndpointChangeType(cellValue(row[2])),
			Breaking:   models.BreakingVerdict(cellValue(row[3])),
		}
		notes := cellValue(row[4])
		if i := strings.Index(notes, "auth: "); i >= 0 {
			d.AuthChange = notes[i+len("auth: "):]
			notes = strings.TrimSuffix(notes[:i], "; ")
		}
		d.BreakingReason = notes
		out = append(out, d)
	}
	return out
}

// ParseTestCaseTable recovers test cases from a rendered QA changelog's
// test case table. Steps and edge cases live in the prose below the
// table and are not recovered.
func ParseTestCaseTable(doc string) []models.TestCase {
	var out []models.TestCase
	for _, row := range sectionTable(doc, headingTests) {
		if len(row) < 5 {
			continue
		}
		out = append(out, models.TestCase{
			ID:             cellValue(row[0]),
			Priority:       models.Priority(cellValue(row[1])),
			Endpoint:       cellValue(row[2]),
			Title:          cellValue(row[3]),
			ExpectedResult: cellValue(row[4]),
		})
	}
	return out
}
