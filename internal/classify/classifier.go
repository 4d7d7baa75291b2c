package classify

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/changescribe/changescribe/internal/gitdiff"
	"github.com/changescribe/changescribe/internal/logging"
	"github.com/changescribe/changescribe/internal/models"
)

// Rule maps a set of path globs to a category and priority.
// Rule order is part of the contract: the first rule with a matching
// glob wins, so a path matching two rules always resolves to the
// earlier one.
type Rule struct {
	Name     string          `yaml:"name"`
	Category models.Category `yaml:"category"`
	Priority models.Priority `yaml:"priority"`
	Globs    []string        `yaml:"globs"`
}

// Classifier assigns exactly one category to each changed path
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier with the built-in rule table
func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewClassifierFromRules creates a classifier with a custom ordered rule
// table, validating every glob up front
func NewClassifierFromRules(rules []Rule) (*Classifier, error) {
	for _, r := range rules {
		for _, g := range r.Globs {
			if !doublestar.ValidatePattern(g) {
				return nil, fmt.Errorf("rule %q has invalid glob %q", r.Name, g)
			}
		}
	}
	return &Classifier{rules: rules}, nil
}

// LoadRules reads an ordered rule table from a YAML file
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}

// Rules returns the ordered rule table
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify assigns the first matching rule's category and priority.
// Unmatched paths fall into the Other category at Low priority.
// Classification is deterministic and idempotent: the same path always
// yields the same result.
func (c *Classifier) Classify(path string) (models.Category, models.Priority) {
	for _, rule := range c.rules {
		for _, glob := range rule.Globs {
			if doublestar.MatchUnvalidated(glob, path) {
				return rule.Category, rule.Priority
			}
		}
	}
	return models.CategoryOther, models.PriorityLow
}

// ClassifyAll converts collected file changes into classified change
// records, preserving file-encounter order
func (c *Classifier) ClassifyAll(files []gitdiff.FileChange) []models.ChangeRecord {
	records := make([]models.ChangeRecord, 0, len(files))
	for _, f := range files {
		category, priority := c.Classify(f.Path)
		records = append(records, models.ChangeRecord{
			Path:         f.Path,
			OldPath:      f.OldPath,
			Status:       f.Status,
			Category:     category,
			Priority:     priority,
			RawDiff:      f.Diff,
			LinesAdded:   f.LinesAdded,
			LinesRemoved: f.LinesRemoved,
		})
		logging.Debug("classified", "path", f.Path, "category", category, "priority", priority)
	}
	return records
}
