package testgen

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/changescribe/changescribe/internal/models"
)

// InvariantCheck is one domain rule that must hold regardless of what
// changed. Checks are emitted whenever a changed file matches one of
// the trigger globs.
type InvariantCheck struct {
	Name          string          `yaml:"name"`
	TriggerGlobs  []string        `yaml:"trigger_globs"`
	Priority      models.Priority `yaml:"priority"`
	Preconditions string          `yaml:"preconditions"`
	Steps         []string        `yaml:"steps"`
	Expected      string          `yaml:"expected"`
	EdgeCases     []string        `yaml:"edge_cases"`
}

// DefaultCatalog is the built-in invariant catalog for the procurement
// workflow domain. Order is fixed so emitted test cases are stable.
func DefaultCatalog() []InvariantCheck {
	return []InvariantCheck{
		{
			Name:          "Session timeout enforcement",
			TriggerGlobs:  []string{"middleware.ts", "lib/auth/**", "lib/session/**", "**/auth/**"},
			Priority:      models.PriorityCritical,
			Preconditions: "Authenticated session older than the configured idle timeout",
			Steps: []string{
				"Sign in and leave the session idle past the timeout threshold",
				"Attempt any authenticated API call",
			},
			Expected:  "Request is rejected with 401 and the user is redirected to sign-in",
			EdgeCases: []string{"Session refreshed just under the threshold stays valid"},
		},
		{
			Name:          "Account lockout after failed attempts",
			TriggerGlobs:  []string{"middleware.ts", "lib/auth/**", "**/auth/**"},
			Priority:      models.PriorityCritical,
			Preconditions: "Account with a known password",
			Steps: []string{
				"Submit the wrong password repeatedly until the lockout threshold",
				"Submit the correct password",
			},
			Expected:  "Account is locked and the correct password is rejected until the lockout window expires",
			EdgeCases: []string{"Counter resets after a successful sign-in"},
		},
		{
			Name:          "Autosave debounce on package forms",
			TriggerGlobs:  []string{"components/forms/**", "components/tiers/**", "lib/packages/**", "app/api/packages/**"},
			Priority:      models.PriorityHigh,
			Preconditions: "Open package form with a draft in progress",
			Steps: []string{
				"Type continuously into a form field for several seconds",
				"Stop typing and wait for the debounce interval",
			},
			Expected:  "Exactly one autosave request fires after typing stops, none while typing",
			EdgeCases: []string{"Navigating away mid-debounce flushes the pending save"},
		},
		{
			Name:          "Conditional fields follow workflow rules",
			TriggerGlobs:  []string{"lib/workflow/**", "lib/rules/**", "components/tiers/**"},
			Priority:      models.PriorityHigh,
			Preconditions: "Package at a tier with conditional fields configured",
			Steps: []string{
				"Select each controlling value in turn",
				"Verify dependent fields show, hide, and clear accordingly",
			},
			Expected:  "Dependent fields appear only when their condition holds and stale values are cleared",
			EdgeCases: []string{"Switching the controlling value back restores prior defaults, not stale input"},
		},
		{
			Name:          "PALT minimum lead time on need dates",
			TriggerGlobs:  []string{"lib/palt*", "lib/packages/**", "app/api/packages/**"},
			Priority:      models.PriorityHigh,
			Preconditions: "New package draft with an editable need date",
			Steps: []string{
				"Enter a need date inside the PALT minimum lead-time window",
				"Attempt to submit the package",
			},
			Expected:  "Submission is blocked with a PALT validation message naming the minimum lead time",
			EdgeCases: []string{"Need date exactly on the PALT boundary is accepted"},
		},
		{
			Name:          "FITARA approval gate for IT purchases",
			TriggerGlobs:  []string{"lib/fitara*", "**/fitara/**", "prisma/**"},
			Priority:      models.PriorityHigh,
			Preconditions: "Package flagged as IT-related without a FITARA approval",
			Steps: []string{
				"Advance the package toward award",
			},
			Expected:  "Workflow halts at the FITARA gate until an approval is recorded",
			EdgeCases: []string{"Non-IT packages pass the gate without a FITARA record"},
		},
	}
}

// LoadCatalog reads an invariant catalog from a YAML file
func LoadCatalog(path string) ([]InvariantCheck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog []InvariantCheck
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// triggeredChecks returns catalog entries whose trigger globs match at
// least one changed path, in catalog order
func triggeredChecks(catalog []InvariantCheck, records []models.ChangeRecord) []InvariantCheck {
	var triggered []InvariantCheck
	for _, check := range catalog {
		if matchesAny(check, records) {
			triggered = append(triggered, check)
		}
	}
	return triggered
}

func matchesAny(check InvariantCheck, records []models.ChangeRecord) bool {
	for _, rec := range records {
		for _, glob := range check.TriggerGlobs {
			if doublestar.MatchUnvalidated(glob, rec.Path) {
				return true
			}
		}
	}
	return false
}
