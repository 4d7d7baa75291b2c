package apidiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changescribe/changescribe/internal/models"
)

func shapeWith(path string, fields map[string]Field, resp []string) *RouteShape {
	return &RouteShape{
		Path:           path,
		Methods:        []string{"PATCH"},
		RequestFields:  fields,
		ResponseFields: resp,
	}
}

// Each of the four breaking conditions, plus its negation.
func TestDiffEndpointBreakingConditions(t *testing.T) {
	base := map[string]Field{
		"title":       {Name: "title", Type: "string", Required: true},
		"description": {Name: "description", Type: "string", Required: false},
	}

	tests := []struct {
		name         string
		before       *RouteShape
		after        *RouteShape
		wantBreaking models.BreakingVerdict
	}{
		{
			// Condition (a): required field removed (and replaced)
			name:   "required request field removed",
			before: shapeWith("/api/packages/[id]", base, nil),
			after: shapeWith("/api/packages/[id]", map[string]Field{
				"name":        {Name: "name", Type: "string", Required: true},
				"description": {Name: "description", Type: "string", Required: false},
			}, nil),
			wantBreaking: models.BreakingYes,
		},
		{
			name:   "optional field removed is not breaking",
			before: shapeWith("/api/packages/[id]", base, nil),
			after: shapeWith("/api/packages/[id]", map[string]Field{
				"title": {Name: "title", Type: "string", Required: true},
			}, nil),
			wantBreaking: models.BreakingNo,
		},
		{
			// Condition (b): required field added without a default
			name:   "required field added without default",
			before: shapeWith("/api/packages/[id]", base, nil),
			after: shapeWith("/api/packages/[id]", map[string]Field{
				"title":       {Name: "title", Type: "string", Required: true},
				"description": {Name: "description", Type: "string", Required: false},
				"fiscalYear":  {Name: "fiscalYear", Type: "number", Required: true},
			}, nil),
			wantBreaking: models.BreakingYes,
		},
		{
			name:   "required field added with default is not breaking",
			before: shapeWith("/api/packages/[id]", base, nil),
			after: shapeWith("/api/packages/[id]", map[string]Field{
				"title":       {Name: "title", Type: "string", Required: true},
				"description": {Name: "description", Type: "string", Required: false},
				"status":      {Name: "status", Type: "string", Required: false, Default: true},
			}, nil),
			wantBreaking: models.BreakingNo,
		},
		{
			// Condition (c): response field removed
			name:         "response field removed",
			before:       shapeWith("/api/packages/[id]", base, []string{"id", "title", "palt"}),
			after:        shapeWith("/api/packages/[id]", base, []string{"id", "title"}),
			wantBreaking: models.BreakingYes,
		},
		{
			name:         "response field added is not breaking",
			before:       shapeWith("/api/packages/[id]", base, []string{"id"}),
			after:        shapeWith("/api/packages/[id]", base, []string{"id", "fitaraStatus"}),
			wantBreaking: models.BreakingNo,
		},
		{
			// Condition (d): path segment changed
			name:         "path changed for existing route",
			before:       shapeWith("/api/packages/[id]", base, nil),
			after:        shapeWith("/api/procurements/[id]", base, nil),
			wantBreaking: models.BreakingYes,
		},
		{
			name:         "identical shapes are not breaking",
			before:       shapeWith("/api/packages/[id]", base, []string{"id"}),
			after:        shapeWith("/api/packages/[id]", base, []string{"id"}),
			wantBreaking: models.BreakingNo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := DiffEndpoint("PATCH", "app/api/packages/[id]/route.ts", tt.before, tt.after)
			assert.Equal(t, tt.wantBreaking, delta.Breaking, "reason: %s", delta.BreakingReason)
		})
	}
}

// Scenario: base has PATCH with {title}; head removes title and adds
// required {name} -> breaking (field removed).
func TestDiffEndpointTitleRenamedToName(t *testing.T) {
	before := shapeWith("/api/packages/[id]", map[string]Field{
		"title": {Name: "title", Type: "string", Required: true},
	}, nil)
	after := shapeWith("/api/packages/[id]", map[string]Field{
		"name": {Name: "name", Type: "string", Required: true},
	}, nil)

	delta := DiffEndpoint("PATCH", "app/api/packages/[id]/route.ts", before, after)
	assert.Equal(t, models.BreakingYes, delta.Breaking)
	assert.Contains(t, delta.BreakingReason, "title")

	// The field diff table shows both sides of the rename
	require.Len(t, delta.RequestFieldDiffs, 2)
	assert.Equal(t, "name", delta.RequestFieldDiffs[0].Field)
	assert.Empty(t, delta.RequestFieldDiffs[0].Before)
	assert.Equal(t, "title", delta.RequestFieldDiffs[1].Field)
	assert.Empty(t, delta.RequestFieldDiffs[1].After)
}

// Scenario: head adds a new optional field -> not breaking.
func TestDiffEndpointOptionalFieldAdded(t *testing.T) {
	before := shapeWith("/api/packages/[id]", map[string]Field{
		"title": {Name: "title", Type: "string", Required: true},
	}, nil)
	after := shapeWith("/api/packages/[id]", map[string]Field{
		"title": {Name: "title", Type: "string", Required: true},
		"notes": {Name: "notes", Type: "string", Required: false},
	}, nil)

	delta := DiffEndpoint("PATCH", "app/api/packages/[id]/route.ts", before, after)
	assert.Equal(t, models.BreakingNo, delta.Breaking)
	require.Len(t, delta.RequestFieldDiffs, 1)
	assert.Equal(t, "notes", delta.RequestFieldDiffs[0].Field)
}

func TestDiffEndpointNewAndDeleted(t *testing.T) {
	shape := shapeWith("/api/packages/[id]/archive", map[string]Field{}, []string{"archived"})

	newDelta := DiffEndpoint("POST", "app/api/packages/[id]/archive/route.ts", nil, shape)
	assert.Equal(t, models.EndpointNew, newDelta.ChangeType)
	assert.Equal(t, models.BreakingNo, newDelta.Breaking)

	delDelta := DiffEndpoint("POST", "app/api/packages/[id]/archive/route.ts", shape, nil)
	assert.Equal(t, models.EndpointDeleted, delDelta.ChangeType)
	assert.Equal(t, models.BreakingYes, delDelta.Breaking)
}

func TestDiffEndpointDynamicBodyIsUnknown(t *testing.T) {
	before := shapeWith("/api/packages/[id]", map[string]Field{
		"title": {Name: "title", Type: "string", Required: true},
	}, nil)
	after := &RouteShape{
		Path:          "/api/packages/[id]",
		Methods:       []string{"PATCH"},
		RequestFields: map[string]Field{},
		DynamicBody:   true,
	}

	delta := DiffEndpoint("PATCH", "app/api/packages/[id]/route.ts", before, after)
	assert.Equal(t, models.BreakingUnknown, delta.Breaking)
	assert.Contains(t, delta.BreakingReason, "manual review")
}

func TestDiffEndpointPathChangeWithDynamicBodyStaysBreaking(t *testing.T) {
	before := shapeWith("/api/packages/[id]", map[string]Field{}, nil)
	after := &RouteShape{
		Path:          "/api/procurement-packages/[id]",
		Methods:       []string{"PATCH"},
		RequestFields: map[string]Field{},
		DynamicBody:   true,
	}

	// A moved route is breaking on its own; an undecidable body must
	// not water the verdict down to unknown
	delta := DiffEndpoint("PATCH", "app/api/procurement-packages/[id]/route.ts", before, after)
	assert.Equal(t, models.BreakingYes, delta.Breaking)
	assert.Contains(t, delta.BreakingReason, "path changed")
}

func TestDiffEndpointAuthChange(t *testing.T) {
	before := shapeWith("/api/packages/[id]", map[string]Field{}, nil)
	after := shapeWith("/api/packages/[id]", map[string]Field{}, nil)
	after.Auth = "requireRole(CO)"

	delta := DiffEndpoint("PATCH", "app/api/packages/[id]/route.ts", before, after)
	assert.Equal(t, "none -> requireRole(CO)", delta.AuthChange)
	// Tightened auth is surfaced but not part of the four-condition rule
	assert.Equal(t, models.BreakingNo, delta.Breaking)
}
