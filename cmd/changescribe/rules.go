package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/changescribe/changescribe/internal/classify"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active classification rule table",
	Long: `Prints the ordered classification rules as YAML. With a configured
rules file the custom table is shown; otherwise the built-in one.
The output is a valid starting point for a custom rules file.`,
	RunE: runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	rules := classify.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := classify.LoadRules(cfg.RulesFile)
		if err != nil {
			return fmt.Errorf("loading rules from %s: %w", cfg.RulesFile, err)
		}
		rules = loaded
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(rules)
}
