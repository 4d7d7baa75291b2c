package testgen

import (
	"fmt"

	"github.com/changescribe/changescribe/internal/logging"
	"github.com/changescribe/changescribe/internal/models"
)

// Synthesizer derives QA test cases from endpoint deltas and the
// domain invariant catalog
type Synthesizer struct {
	catalog []InvariantCheck
}

// NewSynthesizer creates a synthesizer with the built-in catalog
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{catalog: DefaultCatalog()}
}

// NewSynthesizerWithCatalog creates a synthesizer with a custom catalog
func NewSynthesizerWithCatalog(catalog []InvariantCheck) *Synthesizer {
	return &Synthesizer{catalog: catalog}
}

// Synthesize emits the full test-case list for a change set:
// one happy-path case per endpoint delta, a contract-regression case
// for each breaking change, and the triggered invariant checks.
// Ordering is file-encounter order, then severity; IDs are unique and
// monotonically numbered per priority bucket (Critical from 001, High
// from 010, the rest continue the sequence).
func (s *Synthesizer) Synthesize(deltas []models.EndpointDelta, records []models.ChangeRecord) []models.TestCase {
	var cases []models.TestCase

	for _, delta := range deltas {
		cases = append(cases, happyPathCase(delta))
		if delta.Breaking == models.BreakingYes {
			cases = append(cases, breakingRegressionCase(delta))
		}
	}

	for _, check := range triggeredChecks(s.catalog, records) {
		cases = append(cases, models.TestCase{
			Priority:       check.Priority,
			Title:          check.Name,
			Preconditions:  check.Preconditions,
			Steps:          check.Steps,
			ExpectedResult: check.Expected,
			EdgeCases:      check.EdgeCases,
		})
	}

	assignIDs(cases)
	logging.Info("test cases synthesized", "count", len(cases))
	return cases
}

// happyPathCase covers the endpoint's primary success path
func happyPathCase(delta models.EndpointDelta) models.TestCase {
	endpoint := fmt.Sprintf("%s %s", delta.Method, delta.Path)

	tc := models.TestCase{
		Priority:      priorityFor(delta),
		Endpoint:      endpoint,
		Title:         fmt.Sprintf("%s happy path", endpoint),
		Preconditions: "Authenticated user with permission on the target package",
		ExpectedResult: fmt.Sprintf("%s returns a success status and the documented response shape",
			endpoint),
	}

	switch delta.ChangeType {
	case models.EndpointNew:
		tc.Title = fmt.Sprintf("%s (new endpoint) happy path", endpoint)
		tc.Steps = []string{
			fmt.Sprintf("Send %s with a valid request body", endpoint),
			"Verify the response status and body fields",
		}
		tc.EdgeCases = []string{"Request with an unknown package id returns 404"}
	case models.EndpointDeleted:
		tc.Title = fmt.Sprintf("%s removal verified", endpoint)
		tc.Steps = []string{
			fmt.Sprintf("Send %s as a previously valid client would", endpoint),
		}
		tc.ExpectedResult = "Request fails with 404/405; no handler remains registered"
	default:
		tc.Steps = []string{
			fmt.Sprintf("Send %s with all currently required fields", endpoint),
			"Verify the response status and body fields against the updated contract",
		}
		for _, fd := range delta.RequestFieldDiffs {
			if fd.Before == "" && fd.After != "" {
				tc.EdgeCases = append(tc.EdgeCases,
					fmt.Sprintf("Omitting new field %q behaves per its required/optional contract", fd.Field))
			}
		}
	}
	return tc
}

// breakingRegressionCase asserts the prior contract now fails predictably
func breakingRegressionCase(delta models.EndpointDelta) models.TestCase {
	endpoint := fmt.Sprintf("%s %s", delta.Method, delta.Path)
	return models.TestCase{
		Priority: models.PriorityCritical,
		Endpoint: endpoint,
		Title:    fmt.Sprintf("%s breaking change: prior contract rejected", endpoint),
		Preconditions: "Client built against the previous API contract",
		Steps: []string{
			fmt.Sprintf("Send %s using the pre-change request shape", endpoint),
		},
		ExpectedResult: fmt.Sprintf("Request fails predictably with a validation error (%s), not a 500",
			delta.BreakingReason),
		EdgeCases: []string{"Error payload names the offending field or route"},
	}
}

// priorityFor maps endpoint deltas to test priority: breaking and
// deleted endpoints are Critical, the rest High
func priorityFor(delta models.EndpointDelta) models.Priority {
	if delta.Breaking == models.BreakingYes || delta.ChangeType == models.EndpointDeleted {
		return models.PriorityCritical
	}
	return models.PriorityHigh
}

// assignIDs numbers cases per priority bucket: Critical from 001,
// High from 010, Medium/Low continue from 100. Encounter order within
// a bucket is preserved, so two runs over the same input produce
// byte-identical IDs.
func assignIDs(cases []models.TestCase) {
	critical := 1
	for i := range cases {
		if cases[i].Priority == models.PriorityCritical {
			cases[i].ID = fmt.Sprintf("TC-%03d", critical)
			critical++
		}
	}

	// High starts at 010 but never collides with an overflowing
	// Critical bucket
	high := 10
	if critical > high {
		high = critical
	}
	for i := range cases {
		if cases[i].Priority == models.PriorityHigh {
			cases[i].ID = fmt.Sprintf("TC-%03d", high)
			high++
		}
	}

	rest := 100
	if high > rest {
		rest = high
	}
	for i := range cases {
		if cases[i].ID == "" {
			cases[i].ID = fmt.Sprintf("TC-%03d", rest)
			rest++
		}
	}
}
