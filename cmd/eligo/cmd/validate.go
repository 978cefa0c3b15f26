package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eligoproject/eligo/internal/rules"
)

var (
	validateStrict        bool
	validateMaxDepth      int
	validateMaxComplexity int
	validateJSONOut       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <rule.json>",
	Short: "Statically validate a rule file",
	Long:  `Validate checks a rule without evaluating it: structure, nesting depth, complexity score, and the operators and variables it references. The command exits non-zero when the rule is invalid.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat allow-list findings as errors")
	validateCmd.Flags().IntVar(&validateMaxDepth, "max-depth", 0, "override the nesting depth limit")
	validateCmd.Flags().IntVar(&validateMaxComplexity, "max-complexity", 0, "override the complexity limit")
	validateCmd.Flags().BoolVar(&validateJSONOut, "json", false, "print the full report as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rule: %w", err)
	}

	maxDepth := cfg.Engine.MaxRuleDepth
	if validateMaxDepth > 0 {
		maxDepth = validateMaxDepth
	}
	maxComplexity := cfg.Engine.MaxComplexity
	if validateMaxComplexity > 0 {
		maxComplexity = validateMaxComplexity
	}

	report := rules.ValidateJSON(data, rules.ValidateOptions{
		MaxDepth:      maxDepth,
		MaxComplexity: maxComplexity,
		Strict:        validateStrict,
	})

	if validateJSONOut {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "depth=%d complexity=%d\n", report.Depth, report.Complexity)
		if len(report.Operators) > 0 {
			fmt.Fprintf(out, "operators: %s\n", strings.Join(report.Operators, ", "))
		}
		if len(report.Variables) > 0 {
			fmt.Fprintf(out, "variables: %s\n", strings.Join(report.Variables, ", "))
		}
		for _, issue := range report.Errors {
			fmt.Fprintf(out, "error [%s]: %s\n", issue.Code, issue.Message)
		}
		for _, issue := range report.Warnings {
			fmt.Fprintf(out, "warning [%s]: %s\n", issue.Code, issue.Message)
		}
		if report.Valid {
			fmt.Fprintln(out, "rule is valid")
		}
	}

	if !report.Valid {
		return fmt.Errorf("rule is invalid (%d error(s))", len(report.Errors))
	}
	return nil
}
