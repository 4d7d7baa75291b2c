package apidiff

import (
	"fmt"
	"sort"

	"github.com/changescribe/changescribe/internal/models"
)

// DiffEndpoint produces an EndpointDelta for one method on one route,
// given the parsed shapes before and after. Either shape may be nil
// (new or deleted endpoint).
//
// Breaking is a decided rule, never a guess. A change is breaking iff:
//
//	(a) a previously required request field is removed or renamed
//	(b) a required request field is added without a default
//	(c) a response field present before is removed
//	(d) the HTTP method or path segment changes for an existing route
//
// Anything else (added optional field, new endpoint, widened
// validation) is non-breaking. When either shape has an undecidable
// body, the verdict is unknown and the endpoint is flagged for manual
// review.
func DiffEndpoint(method, file string, before, after *RouteShape) models.EndpointDelta {
	delta := models.EndpointDelta{
		Method:   method,
		File:     file,
		Breaking: models.BreakingNo,
	}

	switch {
	case before == nil && after == nil:
		delta.Breaking = models.BreakingUnknown
		delta.BreakingReason = "no shape on either side"
		return delta
	case before == nil:
		// New endpoint: additive, never breaking
		delta.Path = after.Path
		delta.ChangeType = models.EndpointNew
		delta.RequestFieldDiffs = addedFieldDiffs(after)
		return delta
	case after == nil:
		// Removed endpoint: condition (d), the method no longer exists
		delta.Path = before.Path
		delta.ChangeType = models.EndpointDeleted
		delta.Breaking = models.BreakingYes
		delta.BreakingReason = fmt.Sprintf("endpoint %s %s removed", method, before.Path)
		return delta
	}

	delta.Path = after.Path
	delta.ChangeType = models.EndpointModified

	// Condition (d): path segment changed for an existing route
	if before.Path != after.Path {
		delta.Breaking = models.BreakingYes
		delta.BreakingReason = fmt.Sprintf("path changed from %s to %s", before.Path, after.Path)
	}

	// An undecidable body only matters while no condition has fired;
	// a path change is breaking regardless of body shape
	if (before.DynamicBody || after.DynamicBody) && delta.Breaking != models.BreakingYes {
		delta.Breaking = models.BreakingUnknown
		delta.BreakingReason = "request body is dynamically constructed; manual review required"
		return delta
	}

	delta.RequestFieldDiffs = requestFieldDiffs(before, after)
	delta.ResponseFieldDiffs = responseFieldDiffs(before, after)

	if before.Auth != after.Auth {
		delta.AuthChange = fmt.Sprintf("%s -> %s", orNone(before.Auth), orNone(after.Auth))
	}

	if delta.Breaking == models.BreakingYes {
		return delta
	}

	// Condition (a): required request field removed (or renamed, which
	// presents as a removal of the old name)
	for _, f := range sortedFields(before.RequestFields) {
		if !f.Required {
			continue
		}
		if _, ok := after.RequestFields[f.Name]; !ok {
			delta.Breaking = models.BreakingYes
			delta.BreakingReason = fmt.Sprintf("required request field %q removed", f.Name)
			return delta
		}
	}

	// Condition (b): required request field added without a default
	for _, f := range sortedFields(after.RequestFields) {
		if !f.Required || f.Default {
			continue
		}
		if _, ok := before.RequestFields[f.Name]; !ok {
			delta.Breaking = models.BreakingYes
			delta.BreakingReason = fmt.Sprintf("required request field %q added without a default", f.Name)
			return delta
		}
	}

	// Condition (c): response field present before was removed
	afterResp := map[string]bool{}
	for _, k := range after.ResponseFields {
		afterResp[k] = true
	}
	for _, k := range before.ResponseFields {
		if !afterResp[k] {
			delta.Breaking = models.BreakingYes
			delta.BreakingReason = fmt.Sprintf("response field %q removed", k)
			return delta
		}
	}

	return delta
}

// requestFieldDiffs lists every request field that changed, ordered by
// field name for deterministic output
func requestFieldDiffs(before, after *RouteShape) []models.FieldDiff {
	var diffs []models.FieldDiff

	names := map[string]bool{}
	for n := range before.RequestFields {
		names[n] = true
	}
	for n := range after.RequestFields {
		names[n] = true
	}

	for _, n := range sortedKeys(names) {
		b, hasBefore := before.RequestFields[n]
		a, hasAfter := after.RequestFields[n]
		switch {
		case hasBefore && !hasAfter:
			diffs = append(diffs, models.FieldDiff{Field: n, Before: fieldDesc(b), After: ""})
		case !hasBefore && hasAfter:
			diffs = append(diffs, models.FieldDiff{Field: n, Before: "", After: fieldDesc(a)})
		case fieldDesc(b) != fieldDesc(a):
			diffs = append(diffs, models.FieldDiff{Field: n, Before: fieldDesc(b), After: fieldDesc(a)})
		}
	}
	return diffs
}

// responseFieldDiffs lists response keys that appeared or disappeared
func responseFieldDiffs(before, after *RouteShape) []models.FieldDiff {
	var diffs []models.FieldDiff

	beforeSet := map[string]bool{}
	for _, k := range before.ResponseFields {
		beforeSet[k] = true
	}
	afterSet := map[string]bool{}
	for _, k := range after.ResponseFields {
		afterSet[k] = true
	}

	for _, k := range before.ResponseFields {
		if !afterSet[k] {
			diffs = append(diffs, models.FieldDiff{Field: k, Before: "present", After: ""})
		}
	}
	for _, k := range after.ResponseFields {
		if !beforeSet[k] {
			diffs = append(diffs, models.FieldDiff{Field: k, Before: "", After: "present"})
		}
	}
	return diffs
}

// addedFieldDiffs renders every field of a new endpoint as an addition
func addedFieldDiffs(shape *RouteShape) []models.FieldDiff {
	var diffs []models.FieldDiff
	for _, f := range sortedFields(shape.RequestFields) {
		diffs = append(diffs, models.FieldDiff{Field: f.Name, Before: "", After: fieldDesc(f)})
	}
	return diffs
}

// fieldDesc renders a field as "type (required)" or "type (optional)"
func fieldDesc(f Field) string {
	req := "optional"
	if f.Required {
		req = "required"
	}
	if f.Default {
		req = "optional, has default"
	}
	return fmt.Sprintf("%s (%s)", f.Type, req)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFields(m map[string]Field) []Field {
	fields := make([]Field, 0, len(m))
	for _, f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
