package models

import (
	"time"
)

// ChangeStatus represents how a file changed between two refs
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "ADDED"
	StatusModified ChangeStatus = "MODIFIED"
	StatusDeleted  ChangeStatus = "DELETED"
	StatusRenamed  ChangeStatus = "RENAMED"
)

// Category is the classification bucket a changed file falls into.
// Exactly one category per file; first matching rule wins.
type Category string

const (
	CategoryAPI           Category = "API"
	CategoryDatabase      Category = "Database"
	CategoryAuth          Category = "Auth/Security"
	CategoryBusinessLogic Category = "Business Logic"
	CategoryTypes         Category = "Type Definitions"
	CategoryUI            Category = "UI Components"
	CategoryTierForms     Category = "Tier Forms"
	CategoryStyling       Category = "Styling"
	CategoryConfig        Category = "Configuration"
	CategoryDocs          Category = "Docs/Tests"
	CategoryOther         Category = "Other"
)

// Priority represents the QA review priority of a change
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// priorityRank orders priorities for sorting (lower rank = more urgent)
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns a sortable rank for the priority (0 = most urgent)
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// ChangeRecord is one changed path with its classification.
// Immutable after classification; one record per changed path.
type ChangeRecord struct {
	Path         string       `json:"path"`
	OldPath      string       `json:"old_path,omitempty"` // set for renames
	Status       ChangeStatus `json:"status"`
	Category     Category     `json:"category"`
	Priority     Priority     `json:"priority"`
	RawDiff      string       `json:"raw_diff,omitempty"`
	LinesAdded   int          `json:"lines_added"`
	LinesRemoved int          `json:"lines_removed"`
}

// ReviewNote flags a file that was dropped from the structured deltas
// and needs manual review. The file still appears in the generic change
// table.
type ReviewNote struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// EndpointChangeType describes what happened to a route
type EndpointChangeType string

const (
	EndpointNew      EndpointChangeType = "New"
	EndpointModified EndpointChangeType = "Modified"
	EndpointDeleted  EndpointChangeType = "Deleted"
)

// BreakingVerdict is the result of the breaking-change decision rule.
// Unknown is used when the request/response shape could not be determined.
type BreakingVerdict string

const (
	BreakingYes     BreakingVerdict = "yes"
	BreakingNo      BreakingVerdict = "no"
	BreakingUnknown BreakingVerdict = "unknown"
)

// FieldDiff records a single request or response field change
type FieldDiff struct {
	Field  string `json:"field"`
	Before string `json:"before"` // "" when the field did not exist
	After  string `json:"after"`  // "" when the field was removed
}

// EndpointDelta is the structured diff of one route handler.
// Always references a ChangeRecord whose category is API.
type EndpointDelta struct {
	Method             string             `json:"method"`
	Path               string             `json:"path"`
	File               string             `json:"file"`
	ChangeType         EndpointChangeType `json:"change_type"`
	RequestFieldDiffs  []FieldDiff        `json:"request_field_diffs,omitempty"`
	ResponseFieldDiffs []FieldDiff        `json:"response_field_diffs,omitempty"`
	AuthChange         string             `json:"auth_change,omitempty"`
	Breaking           BreakingVerdict    `json:"breaking"`
	BreakingReason     string             `json:"breaking_reason,omitempty"`
}

// ColumnChangeType describes what happened to a column
type ColumnChangeType string

const (
	ColumnAdded   ColumnChangeType = "Added"
	ColumnDropped ColumnChangeType = "Dropped"
	ColumnRetyped ColumnChangeType = "Retyped"
)

// ColumnDiff records a single column-level change
type ColumnDiff struct {
	Name       string           `json:"name"`
	ChangeType ColumnChangeType `json:"change_type"`
	TypeBefore string           `json:"type_before,omitempty"`
	TypeAfter  string           `json:"type_after,omitempty"`
	Nullable   bool             `json:"nullable"`
}

// RelationDiff describes a foreign-key relation change on a table
type RelationDiff struct {
	Field      string `json:"field"`
	References string `json:"references"` // target model
	Added      bool   `json:"added"`
}

// Reversibility of a schema migration
type Reversibility string

const (
	ReversibleYes     Reversibility = "yes"
	ReversibleNo      Reversibility = "no"
	ReversibleUnknown Reversibility = "unknown"
)

// SchemaDelta is the structured diff of one table definition
type SchemaDelta struct {
	Table         string         `json:"table"`
	ChangeType    string         `json:"change_type"` // "New" or "Modified"
	Columns       []ColumnDiff   `json:"columns,omitempty"`
	Relations     []RelationDiff `json:"relations,omitempty"`
	MigrationName string         `json:"migration_name,omitempty"`
	Reversible    Reversibility  `json:"reversible"`
	DataImpact    string         `json:"data_impact"`
}

// TestCase is one synthesized QA test case.
// IDs are unique within a report and monotonically numbered per
// priority bucket (Critical from 001, High from 010).
type TestCase struct {
	ID             string   `json:"id"`
	Priority       Priority `json:"priority"`
	Endpoint       string   `json:"endpoint,omitempty"`
	Title          string   `json:"title"`
	Preconditions  string   `json:"preconditions"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	EdgeCases      []string `json:"edge_cases,omitempty"`
}

// AnalysisRun is the envelope for one end-to-end analysis invocation
type AnalysisRun struct {
	ID        string        `json:"id"`
	Repo      string        `json:"repo"`
	BaseRef   string        `json:"base_ref"`
	HeadRef   string        `json:"head_ref"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Source    string        `json:"source"` // "git", "diff-file", "github-pr"
}

// Report aggregates everything the generator renders
type Report struct {
	Run          AnalysisRun     `json:"run"`
	NoChanges    bool            `json:"no_changes"`
	Changes      []ChangeRecord  `json:"changes"`
	Endpoints    []EndpointDelta `json:"endpoints"`
	Schemas      []SchemaDelta   `json:"schemas"`
	TestCases    []TestCase      `json:"test_cases"`
	ManualReview []ReviewNote    `json:"manual_review,omitempty"`
}

// OverallRisk returns the highest priority present in the change set
func (r *Report) OverallRisk() Priority {
	best := PriorityLow
	for _, c := range r.Changes {
		if c.Priority.Rank() < best.Rank() {
			best = c.Priority
		}
	}
	return best
}
