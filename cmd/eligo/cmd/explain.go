package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eligoproject/eligo/internal/explain"
	"github.com/eligoproject/eligo/internal/rules"
)

var (
	explainLevel   string
	explainJSONOut bool
)

var explainCmd = &cobra.Command{
	Use:   "explain <rule.json>",
	Short: "Describe a rule in natural language",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.Flags().StringVar(&explainLevel, "level", "standard", "explanation level (simple, standard, technical)")
	explainCmd.Flags().BoolVar(&explainJSONOut, "json", false, "print the structured explanation")
}

func runExplain(cmd *cobra.Command, args []string) error {
	level, err := explain.ParseLevel(explainLevel)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rule: %w", err)
	}
	rule, err := rules.ParseRule(data)
	if err != nil {
		return fmt.Errorf("failed to parse rule: %w", err)
	}

	ex := explain.Rule(rule, level)
	if explainJSONOut {
		return printJSON(cmd, ex)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ex.Summary)
	fmt.Fprintf(out, "complexity: %d (%s)\n", ex.Complexity, ex.Band)
	if len(ex.Variables) > 0 {
		fmt.Fprintf(out, "variables: %s\n", strings.Join(ex.Variables, ", "))
	}
	if len(ex.Operators) > 0 {
		fmt.Fprintf(out, "operators: %s\n", strings.Join(ex.Operators, ", "))
	}
	return nil
}
