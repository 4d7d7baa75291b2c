package apidiff

import (
	"sort"

	"github.com/changescribe/changescribe/internal/gitdiff"
	"github.com/changescribe/changescribe/internal/logging"
	"github.com/changescribe/changescribe/internal/models"
)

// DiffRoutes produces endpoint deltas for every change record whose
// category is API. Files that cannot be parsed are dropped from the
// structured deltas and returned as review notes; they never abort the
// pipeline. Deltas are ordered by file-encounter order, then method.
func DiffRoutes(records []models.ChangeRecord, files map[string]gitdiff.FileChange) ([]models.EndpointDelta, []models.ReviewNote) {
	var deltas []models.EndpointDelta
	var notes []models.ReviewNote

	for _, rec := range records {
		if rec.Category != models.CategoryAPI {
			continue
		}
		if !IsRouteFile(rec.Path) {
			// API-adjacent file (helpers, validators) with no handler
			// signature of its own
			continue
		}

		fc, ok := files[rec.Path]
		if !ok {
			continue
		}

		var before, after *RouteShape
		var parseErr error

		if fc.Before != "" {
			before, parseErr = ParseRoute(beforePath(rec), fc.Before)
			if parseErr != nil {
				logging.Warn("route parse failed on base side", "path", rec.Path, "error", parseErr)
				notes = append(notes, models.ReviewNote{Path: rec.Path, Reason: "base version could not be parsed; manual review needed"})
				continue
			}
		}
		if fc.After != "" {
			after, parseErr = ParseRoute(rec.Path, fc.After)
			if parseErr != nil {
				logging.Warn("route parse failed on head side", "path", rec.Path, "error", parseErr)
				notes = append(notes, models.ReviewNote{Path: rec.Path, Reason: "head version could not be parsed; manual review needed"})
				continue
			}
		}
		if before == nil && after == nil {
			continue
		}

		for _, method := range unionMethods(before, after) {
			b := shapeForMethod(before, method)
			a := shapeForMethod(after, method)
			delta := DiffEndpoint(method, rec.Path, b, a)
			if delta.Breaking == models.BreakingUnknown {
				notes = append(notes, models.ReviewNote{
					Path:   rec.Path,
					Reason: "breaking: unknown, manual review required (" + delta.BreakingReason + ")",
				})
			}
			deltas = append(deltas, delta)
		}
	}
	return deltas, notes
}

// beforePath returns the historical path for renamed files
func beforePath(rec models.ChangeRecord) string {
	if rec.OldPath != "" {
		return rec.OldPath
	}
	return rec.Path
}

// unionMethods merges the method sets of both sides, sorted
func unionMethods(before, after *RouteShape) []string {
	set := map[string]bool{}
	if before != nil {
		for _, m := range before.Methods {
			set[m] = true
		}
	}
	if after != nil {
		for _, m := range after.Methods {
			set[m] = true
		}
	}
	methods := make([]string, 0, len(set))
	for m := range set {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// shapeForMethod returns the shape if the side exports the method,
// nil otherwise
func shapeForMethod(shape *RouteShape, method string) *RouteShape {
	if shape == nil {
		return nil
	}
	for _, m := range shape.Methods {
		if m == method {
			return shape
		}
	}
	return nil
}
