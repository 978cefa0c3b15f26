package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eligoproject/eligo/internal/eligibility"
	"github.com/eligoproject/eligo/internal/explain"
	"github.com/eligoproject/eligo/internal/store"
	"github.com/eligoproject/eligo/internal/types"
)

var (
	evalProfile     string
	evalProgram     string
	evalAll         bool
	evalForce       bool
	evalJSON        bool
	evalExplain     bool
	evalConcurrency int
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a profile against one or all programs",
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalProfile, "profile", "", "profile id (required)")
	evaluateCmd.Flags().StringVar(&evalProgram, "program", "", "program id")
	evaluateCmd.Flags().BoolVar(&evalAll, "all", false, "evaluate every active program")
	evaluateCmd.Flags().BoolVar(&evalForce, "force", false, "re-evaluate even when a cached result exists")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print raw JSON results")
	evaluateCmd.Flags().BoolVar(&evalExplain, "explain", false, "add a plain-language explanation")
	evaluateCmd.Flags().IntVar(&evalConcurrency, "concurrency", 0, "parallel program evaluations for --all (0 uses the configured default)")
	_ = evaluateCmd.MarkFlagRequired("profile")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evalProgram == "" && !evalAll {
		return fmt.Errorf("either --program or --all is required")
	}
	if evalProgram != "" && evalAll {
		return fmt.Errorf("--program and --all are mutually exclusive")
	}

	database, queries, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	st, err := store.NewSQL(queries, logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	engine, err := eligibility.NewEngine(st, cfg.Engine, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	concurrency := evalConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Engine.BatchConcurrency
	}
	opts := eligibility.Options{
		ForceReEvaluation: evalForce,
		Concurrency:       concurrency,
	}
	ctx := cmd.Context()

	if evalAll {
		batch, err := engine.EvaluateAllPrograms(ctx, types.ProfileID(evalProfile), opts)
		if err != nil {
			return err
		}
		if evalJSON {
			return printJSON(cmd, batch)
		}
		for i := range batch.Results {
			printResult(cmd, &batch.Results[i])
		}
		s := batch.Summary
		fmt.Fprintf(cmd.OutOrStdout(), "%d programs: %d eligible, %d ineligible, %d incomplete, %d errors, %d need review\n",
			s.Total, s.Eligible, s.Ineligible, s.Incomplete, s.Errors, s.NeedsReview)
		return nil
	}

	result, err := engine.EvaluateEligibility(ctx, types.ProfileID(evalProfile), types.ProgramID(evalProgram), opts)
	if err != nil {
		return err
	}
	if evalJSON {
		return printJSON(cmd, result)
	}
	printResult(cmd, result)
	if evalExplain {
		explanation := explain.Result(result, nil, nil, explain.ResultOptions{
			Level:              explain.Standard,
			IncludeSuggestions: true,
		})
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), explanation.PlainLanguage)
	}
	return nil
}

func printResult(cmd *cobra.Command, result *types.EvaluationResult) {
	status := "INELIGIBLE"
	switch {
	case result.RuleID == types.ErrorRuleID:
		status = "ERROR"
	case result.Incomplete:
		status = "INCOMPLETE"
	case result.Eligible:
		status = "ELIGIBLE"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-11s %-20s confidence=%-3d %s\n",
		status, result.ProgramID, result.Confidence, result.Reason)
}
